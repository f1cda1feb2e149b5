package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"geotask/internal/commands"
	"geotask/internal/config"
	"geotask/internal/exitcode"
	"geotask/internal/kv"
	"geotask/internal/service"
)

// ServiceFactory opens the Service a command runs against.
type ServiceFactory func(ctx context.Context, cfg *config.Config, logger *log.Logger) (service.Service, error)

// OpenLocal is the default ServiceFactory: the local task store and location
// cache described by cfg.
func OpenLocal(ctx context.Context, cfg *config.Config, logger *log.Logger) (service.Service, error) {
	svc, err := service.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
}

// NewDispatcher creates a new dispatcher. A nil factory means OpenLocal.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	if factory == nil {
		factory = OpenLocal
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> list
	name := "list"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}

	// Flags require a command
	if strings.HasPrefix(name, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(name)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) (code int) {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configDir string
		quiet     bool
		debug     bool
	)
	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// A leading dash after parsing is a flag the set did not know.
	positional := fs.Args()
	if len(positional) > 0 && strings.HasPrefix(positional[0], "-") && positional[0] != "-" {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positional[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	logger := log.New(io.Discard, "", 0)
	if debug {
		logger = log.New(errOut, config.AppName+": ", log.LstdFlags|log.Lmicroseconds)
	}

	var svc service.Service
	if cmd.NeedsService() {
		svc, err = d.factory(ctx, cfg, logger)
		if err != nil {
			return openError(errOut, err)
		}
		defer func() {
			err := svc.Close()
			if err == nil || code == exitcode.StorageError {
				return
			}
			fmt.Fprintf(errOut, "error: storage error: %v\n", err)
			if code == exitcode.Success {
				code = exitcode.StorageError
			}
		}()
		logger.Printf("dispatch %s backend=%s dir=%s", cmd.Name(), cfg.Backend, cfg.Dir)
	}

	return cmd.Run(ctx, cfg, svc, positional, out, errOut)
}

// flagError rewrites a flag package parse error into the CLI's wording.
func flagError(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "flag needs an argument:"):
		return "flag needs an argument: " + strings.TrimSpace(strings.TrimPrefix(msg, "flag needs an argument:"))
	case strings.HasPrefix(msg, "flag provided but not defined:"):
		return "unknown flag: " + strings.TrimSpace(strings.TrimPrefix(msg, "flag provided but not defined:"))
	default:
		return msg
	}
}

func openError(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, config.ErrInvalid):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, kv.ErrStorage):
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.StorageError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}
