package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"geotask/internal/config"
	"geotask/internal/exitcode"
	"geotask/internal/service"
	"geotask/internal/task"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only the flags given are changed;
// extra args after the reference replace the title.
type EditCmd struct {
	form   taskForm
	reopen bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task" }
func (c *EditCmd) Usage() string {
	return "geotask edit [--lat <deg>] [--lng <deg>] [--radius <m>] [--priority low|medium|high] [--desc <text>] [--at HH:MM] [--recurring=true|false] [--reopen] <ref> [title...]"
}
func (c *EditCmd) NeedsService() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.form.register(fs)
	fs.BoolVar(&c.reopen, "reopen", false, "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return fail(errOut, ErrTaskRefRequired)
	}
	t, err := resolveArgs(ctx, svc, args[:1])
	if err != nil {
		return fail(errOut, err)
	}

	patch, err := c.form.patch(t, args[1:])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if c.reopen {
		patch.IsComplete = task.Ptr(false)
		patch.ClearCompletedAt = true
	}
	if patch.IsEmpty() {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	if _, err := svc.UpdateTask(ctx, t.ID, patch); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
