package builtin

import (
	"context"
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/bailuo/redspot/internal/core"
)

func registerConfig(reg *core.Registry, opts Options) {
	reg.DefineTask(TaskConfig, "Prints the resolved project config", func(ctx context.Context, args core.Arguments, env *core.Environment, runSuper *core.RunSuper) (interface{}, error) {
		m, err := env.Config.ToMap()
		if err != nil {
			return nil, err
		}
		data, err := yaml.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		if _, err := opts.Out.Write(data); err != nil {
			return nil, err
		}
		return m, nil
	})
}
