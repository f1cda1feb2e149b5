package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"geotask/internal/backend/googletasks"
	"geotask/internal/config"
	"geotask/internal/exitcode"
	"geotask/internal/mirror"
	"geotask/internal/service"
)

func init() {
	Register(&PushCmd{})
}

// RemoteFactory creates the remote a push writes to.
type RemoteFactory func(ctx context.Context, cfg *config.Config) (mirror.Remote, error)

// PushCmd implements the push command: mirror all tasks into a Google Tasks
// list.
type PushCmd struct {
	listName string
	remote   RemoteFactory
}

// SetRemoteFactory replaces the Google Tasks client (for testing).
func (c *PushCmd) SetRemoteFactory(f RemoteFactory) {
	c.remote = f
}

func (c *PushCmd) Name() string       { return "push" }
func (c *PushCmd) Aliases() []string  { return []string{"sync"} }
func (c *PushCmd) Synopsis() string   { return "Mirror tasks into Google Tasks" }
func (c *PushCmd) Usage() string      { return "geotask push [--list <list-name>]" }
func (c *PushCmd) NeedsService() bool { return true }

func (c *PushCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *PushCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	listName := strings.TrimSpace(c.listName)
	if listName == "" {
		listName = cfg.MirrorList
	}
	if listName == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}

	factory := c.remote
	if factory == nil {
		if !cfg.HasOAuthClient() {
			fmt.Fprintf(errOut, "error: oauth_client.json not found in %s\n", cfg.Dir)
			return exitcode.AuthError
		}
		if !cfg.HasToken() {
			fmt.Fprintln(errOut, "error: not logged in (run: geotask login)")
			return exitcode.AuthError
		}
		factory = func(ctx context.Context, cfg *config.Config) (mirror.Remote, error) {
			return googletasks.New(ctx, cfg)
		}
	}

	remote, err := factory(ctx, cfg)
	if err != nil {
		return fail(errOut, err)
	}

	tasks, err := svc.Tasks(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	res, err := mirror.Push(ctx, remote, listName, tasks)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "pushed to %s: %d added, %d updated, %d removed, %d unchanged\n",
			listName, res.Inserted, res.Updated, res.Deleted, res.Unchanged)
	}
	return exitcode.Success
}
