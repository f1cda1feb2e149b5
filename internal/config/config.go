// Package config handles the XDG configuration directory, file paths and
// environment settings.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// AppName is the application directory name.
	AppName = "geotask"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"
)

// Storage backends.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrInvalid is returned for settings that parse but make no sense.
var ErrInvalid = errors.New("invalid configuration")

// Settings are read from the environment.
type Settings struct {
	Backend      string        `env:"GEOTASK_BACKEND" envDefault:"bolt"`
	DBPath       string        `env:"GEOTASK_DB"`
	Position     string        `env:"GEOTASK_POSITION"`
	PollInterval time.Duration `env:"GEOTASK_POLL_INTERVAL" envDefault:"60s"`
	ProbeAddr    string        `env:"GEOTASK_PROBE_ADDR"`
	MirrorList   string        `env:"GEOTASK_MIRROR_LIST" envDefault:"geotask"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings
}

// New creates a new Config with the default or specified config directory
// and the environment settings.
// If configDir is empty, uses XDG_CONFIG_HOME/geotask or $HOME/.config/geotask.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir}
	if err := ParseEnv(&cfg.Settings); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendBolt, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalid)
	}
	if c.Position != "" {
		if _, _, err := ParsePosition(c.Position); err != nil {
			return err
		}
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// DatabasePath returns the storage file for the configured backend.
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	if c.Backend == BackendSQLite {
		return filepath.Join(c.Dir, "geotask.sqlite")
	}
	return filepath.Join(c.Dir, "geotask.db")
}

// FixedPosition returns the configured position, if any.
func (c *Config) FixedPosition() (lat, lng float64, ok bool) {
	if c.Position == "" {
		return 0, 0, false
	}
	lat, lng, err := ParsePosition(c.Position)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// ParsePosition parses "lat,lng" in degrees.
func ParsePosition(s string) (lat, lng float64, err error) {
	latStr, lngStr, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, fmt.Errorf("%w: position %q must be \"lat,lng\"", ErrInvalid, s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || !finite(lat) || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("%w: latitude %q", ErrInvalid, latStr)
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil || !finite(lng) || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("%w: longitude %q", ErrInvalid, lngStr)
	}
	return lat, lng, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
