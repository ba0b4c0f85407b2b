// Package exec runs the external tools redspot shells out to.
package exec

import (
	"context"
)

// CommandRunner runs external commands.
// Tests substitute a fake to avoid depending on installed toolchains.
type CommandRunner interface {
	// Run executes name with args and returns its stdout. The working
	// directory is set to workDir if non-empty. A non-zero exit returns
	// *CommandError carrying the captured stderr.
	Run(ctx context.Context, workDir string, name string, args ...string) (stdout []byte, err error)

	// LookPath reports whether name can be found on PATH.
	LookPath(name string) bool
}
