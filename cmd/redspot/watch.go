package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bailuo/redspot/internal/config"
	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/lifecycle"
	"github.com/bailuo/redspot/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <task> [task options] [task arguments]",
	Short: "Run a task and rerun it when project files change",
	Long: `Run a task, then watch the config file, the plugins and the contract
sources. Every change resets the context, reloads the config and plugins,
and runs the task again. Stop with Ctrl+C.`,
	DisableFlagParsing: true,
	Args:               cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		rtArgs, rest := splitGlobalArgs(runtimeArguments(), args)
		if len(rest) == 0 {
			return errors.New("watch needs a task name")
		}
		name, raw := rest[0], rest[1:]
		out := cmd.OutOrStdout()

		for {
			paths, err := watchIteration(ctx, cmd, rtArgs, name, raw)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("Error %s", err))
			}

			w, err := watch.New(watch.DefaultDebounce)
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			for _, p := range paths {
				if err := w.Add(p); err != nil {
					w.Close()
					return fmt.Errorf("watch %s: %w", p, err)
				}
			}
			fmt.Fprintln(out, color.CyanString("Watching for changes..."))

			select {
			case <-ctx.Done():
				w.Close()
				return nil
			case changed := <-w.Changes():
				w.Close()
				fmt.Fprintf(out, "%s changed, rerunning %s\n", changed, name)
			}
		}
	},
}

// watchIteration runs the task once on a fresh context and returns the
// paths whose changes should trigger the next run.
func watchIteration(ctx context.Context, cmd *cobra.Command, rtArgs core.RuntimeArguments, name string, raw []string) (paths []string, err error) {
	defer lifecycle.Reset()

	_, env, err := bootstrap(rtArgs, cmd.OutOrStdout())
	if env != nil {
		paths = watchedPaths(env.Config)
	} else {
		paths = fallbackPaths(rtArgs.Config)
	}
	if err != nil {
		return paths, err
	}

	_, err = execute(ctx, env, name, raw)
	return paths, err
}

func watchedPaths(cfg *config.Config) []string {
	var paths []string
	if cfg.Paths.ConfigFile != "" {
		paths = append(paths, cfg.Paths.ConfigFile)
	}
	paths = append(paths, cfg.Plugins...)
	if cfg.Paths.Sources != "" {
		paths = append(paths, cfg.Paths.Sources)
	}
	for i, p := range paths {
		paths[i] = existingOrParent(p)
	}
	return paths
}

// existingOrParent returns path, or its directory when path doesn't exist
// yet, so creating the file is noticed.
func existingOrParent(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return filepath.Dir(path)
	}
	return path
}

// fallbackPaths is used when the environment could not be built, so fixing
// a broken config still triggers a rerun.
func fallbackPaths(explicit string) []string {
	if explicit != "" {
		return []string{existingOrParent(explicit)}
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil
	}
	if found, err := config.FindConfigPath(wd); err == nil {
		return []string{found}
	}
	return []string{wd}
}
