package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"geotask/internal/config"
	"geotask/internal/exitcode"
	"geotask/internal/output"
	"geotask/internal/service"
)

func init() {
	Register(&ExportCmd{})
}

// ExportCmd implements the export command.
type ExportCmd struct {
	format string
	file   string
}

func (c *ExportCmd) Name() string       { return "export" }
func (c *ExportCmd) Aliases() []string  { return nil }
func (c *ExportCmd) Synopsis() string   { return "Write all tasks as JSON or YAML" }
func (c *ExportCmd) Usage() string      { return "geotask export [--format json|yaml] [--out <file>]" }
func (c *ExportCmd) NeedsService() bool { return true }

func (c *ExportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", output.FormatJSON, "")
	fs.StringVar(&c.file, "out", "", "")
}

func (c *ExportCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if c.format != output.FormatJSON && c.format != output.FormatYAML {
		fmt.Fprintf(errOut, "error: unknown format: %s\n", c.format)
		return exitcode.UserError
	}
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	tasks, err := svc.Tasks(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	w := out
	if c.file != "" {
		f, err := os.Create(c.file)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		defer f.Close()
		w = f
	}

	if err := output.Export(w, tasks, c.format); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}
