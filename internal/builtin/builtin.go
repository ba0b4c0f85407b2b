// Package builtin defines the tasks every redspot project starts with.
package builtin

import (
	"io"
	"os"

	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/exec"
	"github.com/bailuo/redspot/internal/logging"
)

var log = logging.New("builtin")

// Task names.
const (
	TaskHelp         = "help"
	TaskConfig       = "config"
	TaskContracts    = "contracts"
	TaskRPC          = "rpc"
	TaskInkMetadata  = "ink:metadata"
	TaskInkToolchain = "ink:toolchain"
)

// Options configures the builtin tasks.
type Options struct {
	// Out receives task output. Defaults to os.Stdout.
	Out io.Writer
	// Runner runs cargo. Defaults to exec.NewRunner().
	Runner exec.CommandRunner
	// Version is printed by help.
	Version string
}

// Register defines the builtin tasks on reg. Plugins loaded afterwards can
// override any of them.
func Register(reg *core.Registry, opts Options) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Runner == nil {
		opts.Runner = exec.NewRunner()
	}

	registerHelp(reg, opts)
	registerConfig(reg, opts)
	registerInk(reg, opts)
	registerRPC(reg, opts)
}
