package commands

import (
	"context"
	"errors"
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
	Register(&WhereCmd{})
}

// WhereCmd implements the where command: one location refresh, then the
// current position and the map region around it and every task.
type WhereCmd struct{}

func (c *WhereCmd) Name() string       { return "where" }
func (c *WhereCmd) Aliases() []string  { return []string{"loc"} }
func (c *WhereCmd) Synopsis() string   { return "Refresh and print the current location" }
func (c *WhereCmd) Usage() string      { return "geotask where" }
func (c *WhereCmd) NeedsService() bool { return true }

func (c *WhereCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhereCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	w, err := svc.Where(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	if !w.Known {
		if w.Attempt.Source == location.SourceDenied {
			fmt.Fprintln(errOut, "error: location permission denied")
			return exitcode.UserError
		}
		if w.Attempt.Err != nil {
			fmt.Fprintf(errOut, "error: location unknown: %v\n", w.Attempt.Err)
		} else {
			fmt.Fprintln(errOut, "error: location unknown")
		}
		return exitcode.BackendError
	}

	if w.Attempt.Err != nil && !cfg.Quiet && !errors.Is(w.Attempt.Err, location.ErrOffline) {
		fmt.Fprintf(errOut, "warning: %v\n", w.Attempt.Err)
	}
	output.FormatReading(out, w.Reading, sourceLabel(w.Attempt.Source))
	output.FormatRegion(out, w.Region)
	return exitcode.Success
}

// sourceLabel names where the printed value came from. A value kept from an
// earlier run after a failed attempt is "cached".
func sourceLabel(s location.Source) string {
	switch s {
	case location.SourceLive, location.SourceStored:
		return s.String()
	default:
		return "cached"
	}
}
