package opts

import (
	"io"

	"github.com/walteh/srpmproc/pkg/config"
	"github.com/walteh/srpmproc/pkg/log"
)

// RootOpts contains shared options used by all commands. It is filled in
// before any subcommand runs.
type RootOpts struct {
	// Settings holds the settings file merged with global flags. It is never
	// nil once a command runs, but it may be empty.
	Settings *config.Settings
	// Console is the operator-facing logger, also carried in the command context
	Console *log.Logger
	// Out receives command results such as tables and diffs
	Out io.Writer
}
