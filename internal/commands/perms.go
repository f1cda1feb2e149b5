package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"geotask/internal/config"
	"geotask/internal/exitcode"
	"geotask/internal/service"
)

func init() {
	Register(&PermsCmd{})
}

// PermsCmd implements the perms command.
type PermsCmd struct{}

func (c *PermsCmd) Name() string       { return "perms" }
func (c *PermsCmd) Aliases() []string  { return nil }
func (c *PermsCmd) Synopsis() string   { return "Request location permissions" }
func (c *PermsCmd) Usage() string      { return "geotask perms" }
func (c *PermsCmd) NeedsService() bool { return true }

func (c *PermsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PermsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	p, err := svc.RequestPermissions(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	fmt.Fprintf(out, "foreground: %s\n", grantedWord(p.Foreground))
	fmt.Fprintf(out, "background: %s\n", grantedWord(p.Background))
	if p.Message != "" && !cfg.Quiet {
		fmt.Fprintln(out, p.Message)
	}

	if !p.Foreground {
		return exitcode.AuthError
	}
	return exitcode.Success
}

func grantedWord(ok bool) string {
	if ok {
		return "granted"
	}
	return "denied"
}
