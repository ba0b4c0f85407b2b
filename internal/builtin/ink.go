package builtin

import (
	"context"
	"fmt"

	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/ink"
	"github.com/bailuo/redspot/internal/params"
)

func registerInk(reg *core.Registry, opts Options) {
	reg.DefineInternalTask(TaskInkMetadata, "Reads the cargo workspace and keeps the ink! contract packages", func(ctx context.Context, args core.Arguments, env *core.Environment, runSuper *core.RunSuper) (interface{}, error) {
		dir, _ := args["dir"].(string)
		if dir == "" && env.Config != nil {
			dir = env.Config.Paths.Sources
		}
		md, err := ink.GetResolvedWorkspace(ctx, opts.Runner, dir)
		if err != nil {
			return nil, err
		}
		return ink.FilterContractPackages(md), nil
	}).AddOptionalParam("dir", "Directory to look for Cargo.toml in", nil, params.String)

	reg.DefineInternalTask(TaskInkToolchain, "Resolves the rust toolchain used for contracts", func(ctx context.Context, args core.Arguments, env *core.Environment, runSuper *core.RunSuper) (interface{}, error) {
		override, _ := args["toolchain"].(string)
		return ink.Toolchain(env.Config, override), nil
	}).AddOptionalParam("toolchain", "Toolchain to use instead of the configured one", nil, params.String)

	reg.DefineTask(TaskContracts, "Lists the ink! contracts of the workspace", func(ctx context.Context, args core.Arguments, env *core.Environment, runSuper *core.RunSuper) (interface{}, error) {
		res, err := env.Run(ctx, TaskInkMetadata, core.Arguments{"dir": args["dir"]})
		if err != nil {
			return nil, err
		}
		md, ok := res.(*ink.Metadata)
		if !ok {
			return nil, fmt.Errorf("%s returned %T, want cargo metadata", TaskInkMetadata, res)
		}

		toolchain, err := env.Run(ctx, TaskInkToolchain, nil)
		if err != nil {
			return nil, err
		}
		log.Debugf("using toolchain %v", toolchain)

		names := make([]string, 0, len(md.Packages))
		for _, p := range md.Packages {
			names = append(names, p.Name)
			fmt.Fprintf(opts.Out, "%s %s  %s\n", p.Name, p.Version, p.ManifestPath)
		}
		if len(names) == 0 {
			fmt.Fprintln(opts.Out, "No ink! contracts found")
		}
		return names, nil
	}).AddOptionalParam("dir", "Directory to look for Cargo.toml in", nil, params.String)
}
