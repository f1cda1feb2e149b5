package commands

import (
	"context"
	"flag"
	"io"

	"geotask/internal/config"
	"geotask/internal/exitcode"
	"geotask/internal/output"
	"geotask/internal/service"
)

func init() {
	Register(&ShowCmd{})
}

// ShowCmd implements the show command.
type ShowCmd struct{}

func (c *ShowCmd) Name() string       { return "show" }
func (c *ShowCmd) Aliases() []string  { return nil }
func (c *ShowCmd) Synopsis() string   { return "Show one task" }
func (c *ShowCmd) Usage() string      { return "geotask show <ref>" }
func (c *ShowCmd) NeedsService() bool { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	t, err := resolveArgs(ctx, svc, args)
	if err != nil {
		return fail(errOut, err)
	}
	output.FormatTaskDetail(out, t)
	return exitcode.Success
}
