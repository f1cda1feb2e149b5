package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"geotask/internal/config"
	"geotask/internal/exitcode"
	"geotask/internal/location"
	"geotask/internal/output"
	"geotask/internal/service"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command. It requests permissions, then
// prints every location change until interrupted.
type WatchCmd struct{}

func (c *WatchCmd) Name() string       { return "watch" }
func (c *WatchCmd) Aliases() []string  { return nil }
func (c *WatchCmd) Synopsis() string   { return "Track the location until interrupted" }
func (c *WatchCmd) Usage() string      { return "geotask watch" }
func (c *WatchCmd) NeedsService() bool { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	perms, err := svc.RequestPermissions(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	if !perms.Foreground {
		fmt.Fprintln(errOut, "error: location permission denied")
		return exitcode.UserError
	}
	if !perms.Background && !cfg.Quiet {
		fmt.Fprintln(errOut, "warning: background location not granted, polling only")
	}

	err = svc.Watch(ctx, func(r location.Reading) {
		output.FormatReading(out, r, "update")
	})
	if err != nil {
		return fail(errOut, err)
	}
	return exitcode.Success
}
