package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bailuo/redspot/internal/builtin"
	"github.com/bailuo/redspot/internal/cli"
	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/lifecycle"
)

var runCmd = &cobra.Command{
	Use:   "run <task> [task options] [task arguments]",
	Short: "Run a task",
	Long: `Run a task with its options and positional arguments.

Task options are written --name value, --name=value or --flag.
Run "redspot run help <task>" to see what a task accepts.`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		rtArgs, rest := splitGlobalArgs(runtimeArguments(), args)
		name := builtin.TaskHelp
		if len(rest) > 0 {
			name, rest = rest[0], rest[1:]
		}
		_, err := runTask(ctx, rtArgs, name, rest, cmd.OutOrStdout())
		return err
	},
}

// runTask bootstraps a fresh context, runs one task and resets the context.
func runTask(ctx context.Context, rtArgs core.RuntimeArguments, name string, raw []string, out io.Writer) (interface{}, error) {
	defer lifecycle.Reset()

	_, env, err := bootstrap(rtArgs, out)
	if err != nil {
		return nil, err
	}
	return execute(ctx, env, name, raw)
}

// execute parses raw task arguments against the task's definition and runs it.
func execute(ctx context.Context, env *core.Environment, name string, raw []string) (interface{}, error) {
	def, ok := env.Tasks.Lookup(name)
	if !ok {
		return nil, &core.UnrecognizedTaskError{Name: name}
	}
	taskArgs, err := cli.ParseTaskArguments(def, raw)
	if err != nil {
		return nil, err
	}
	return env.Run(ctx, name, taskArgs)
}

// splitGlobalArgs applies global options written after "run" but before
// the task name, since flag parsing is disabled for task arguments.
func splitGlobalArgs(rt core.RuntimeArguments, args []string) (core.RuntimeArguments, []string) {
	for len(args) > 0 && strings.HasPrefix(args[0], "--") {
		name, value, hasValue := strings.Cut(args[0][2:], "=")
		takeValue := func() bool {
			if hasValue {
				args = args[1:]
				return true
			}
			if len(args) < 2 {
				return false
			}
			value = args[1]
			args = args[2:]
			return true
		}

		switch name {
		case "verbose":
			rt.Verbose = true
			if rt.LogLevel == "" {
				rt.LogLevel = "debug"
			}
			args = args[1:]
			continue
		case "network", "config", "log-level", "log-file":
			if !takeValue() {
				return rt, args
			}
		default:
			return rt, args
		}

		switch name {
		case "network":
			rt.Network = value
		case "config":
			rt.Config = value
		case "log-level":
			rt.LogLevel = value
		case "log-file":
			rt.LogFile = value
		}
	}
	return rt, args
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
