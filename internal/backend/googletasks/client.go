// Package googletasks implements mirror.Remote using the Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"geotask/internal/config"
	"geotask/internal/mirror"
)

const (
	// PageSize is the number of entries fetched per request.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"
)

var (
	// ErrAuth is returned when the stored token is expired or revoked.
	ErrAuth = errors.New("token expired or revoked (run: geotask login)")

	// ErrNotFound is returned for lists or entries that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrTimeout is returned when a request exceeds APITimeout.
	ErrTimeout = errors.New("request timed out")

	// ErrAmbiguous is returned when several lists share a name.
	ErrAmbiguous = errors.New("ambiguous list name")
)

// Client implements mirror.Remote using Google Tasks API.
type Client struct {
	svc *tasks.Service
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read oauth_client.json: %v", ErrAuth, err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid oauth_client.json: %v", ErrAuth, err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read token.json: %v", ErrAuth, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("%w: invalid token.json: %v", ErrAuth, err)
	}

	// refreshes the access token as needed
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))
	return NewWithHTTPClient(ctx, httpClient)
}

// NewWithHTTPClient creates a client with a custom HTTP client and options
// (for testing, e.g. option.WithEndpoint).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// EnsureList implements mirror.Remote. Names match case-insensitively after
// trimming.
func (c *Client) EnsureList(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	want := strings.ToLower(strings.TrimSpace(name))
	var matches []string
	err := c.svc.Tasklists.List().MaxResults(PageSize).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			if strings.ToLower(strings.TrimSpace(list.Title)) == want {
				matches = append(matches, list.Id)
			}
		}
		return nil
	})
	if err != nil {
		return "", wrapError(err)
	}

	switch len(matches) {
	case 0:
		list, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: strings.TrimSpace(name)}).Context(ctx).Do()
		if err != nil {
			return "", wrapError(err)
		}
		return list.Id, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, name)
	}
}

// ListTasks implements mirror.Remote.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]mirror.RemoteTask, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []mirror.RemoteTask
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, mirror.RemoteTask{
					ID:     t.Id,
					Title:  t.Title,
					Notes:  t.Notes,
					Status: t.Status,
				})
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// InsertTask implements mirror.Remote.
func (c *Client) InsertTask(ctx context.Context, listID string, t mirror.RemoteTask) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := c.svc.Tasks.Insert(listID, &tasks.Task{
		Title:  t.Title,
		Notes:  t.Notes,
		Status: t.Status,
	}).Context(ctx).Do()
	return wrapError(err)
}

// PatchTask implements mirror.Remote.
func (c *Client) PatchTask(ctx context.Context, listID string, t mirror.RemoteTask) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	patch := &tasks.Task{Title: t.Title, Notes: t.Notes, Status: t.Status}
	if t.Status == mirror.StatusNeedsAction {
		// reopening requires clearing the completion date
		patch.NullFields = []string{"Completed"}
	}
	_, err := c.svc.Tasks.Patch(listID, t.ID, patch).Context(ctx).Do()
	return wrapError(err)
}

// DeleteTask implements mirror.Remote.
func (c *Client) DeleteTask(ctx context.Context, listID, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	return wrapError(c.svc.Tasks.Delete(listID, taskID).Context(ctx).Do())
}

// wrapError maps API errors to the package's sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrAuth
		case http.StatusNotFound:
			return ErrNotFound
		}
	}

	// oauth2 refresh failures surface as plain errors
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return err
}
