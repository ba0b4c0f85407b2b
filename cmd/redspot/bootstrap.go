package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bailuo/redspot/internal/builtin"
	"github.com/bailuo/redspot/internal/config"
	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/lifecycle"
	"github.com/bailuo/redspot/internal/logging"
	"github.com/bailuo/redspot/internal/version"
)

// bootstrap creates the process context, registers the builtin tasks,
// loads the project config and its plugins, and builds the environment.
// The caller must call lifecycle.Reset when done, also on error.
func bootstrap(args core.RuntimeArguments, out io.Writer) (*lifecycle.Context, *core.Environment, error) {
	if args.LogFile != "" {
		if err := logging.OpenFile(args.LogFile); err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
	}

	ctx, err := lifecycle.Create()
	if err != nil {
		return nil, nil, err
	}
	builtin.Register(ctx.Tasks, builtin.Options{Out: out, Version: version.Get()})

	cfg, err := loadConfig(args.Config)
	if err != nil {
		return ctx, nil, err
	}

	env, err := ctx.CreateEnvironment(cfg, args)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, env, nil
}

// loadConfig loads the config at path, or the one found from the working
// directory. Outside of a project the defaults are used.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	found, err := config.FindConfigPath(wd)
	if errors.Is(err, config.ErrNotInProject) {
		return config.Default(wd)
	}
	if err != nil {
		return nil, err
	}
	return config.Load(found)
}
