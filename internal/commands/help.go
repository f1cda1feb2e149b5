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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "geotask help" }
func (c *HelpCmd) NeedsService() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  geotask                                   List all tasks
  geotask list [common flags] [--open]      List tasks (completed hidden with --open)
  geotask add [common flags] --lat <deg> --lng <deg> [task flags] <title...>
  geotask create [common flags] --lat <deg> --lng <deg> [task flags] <title...>
  geotask edit [common flags] [task flags] <ref> [title...]
  geotask done [common flags] <ref>
  geotask rm [common flags] <ref>
  geotask show [common flags] <ref>
  geotask where [common flags]              Refresh and print the current location
  geotask watch [common flags]              Track the location until interrupted
  geotask perms [common flags]              Request location permissions
  geotask export [common flags] [--format json|yaml] [--out <file>]
  geotask push [common flags] [--list <list-name>]
  geotask login [common flags]
  geotask logout [common flags]
  geotask help
  geotask version

A <ref> is a number from list or a task id.

Task flags:
  --radius <m>                 Zone radius in meters (default 100)
  --priority low|medium|high   Priority (default medium)
  --desc <text>                Description
  --at HH:MM                   Time of day to remind
  --recurring                  Keep the task after it fires
  --reopen                     (edit) Mark a completed task open again

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Environment:
  GEOTASK_BACKEND        bolt (default), sqlite or memory
  GEOTASK_DB             Database file (default in the config directory)
  GEOTASK_POSITION       Device position as "lat,lng"
  GEOTASK_POLL_INTERVAL  Location polling period (default 60s)
  GEOTASK_PROBE_ADDR     host:port probed for connectivity
  GEOTASK_MIRROR_LIST    Google Tasks list used by push (default geotask)
`
