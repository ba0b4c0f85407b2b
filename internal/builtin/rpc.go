package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/params"
)

func registerRPC(reg *core.Registry, opts Options) {
	reg.DefineTask(TaskRPC, "Sends a JSON-RPC request to the selected network", func(ctx context.Context, args core.Arguments, env *core.Environment, runSuper *core.RunSuper) (interface{}, error) {
		method := args["method"].(string)

		var callParams []interface{}
		switch raw := args["params"].(type) {
		case []interface{}:
			for _, p := range raw {
				callParams = append(callParams, rpcParam(p))
			}
		case []string:
			for _, p := range raw {
				callParams = append(callParams, rpcParam(p))
			}
		}

		res, err := env.Network.Provider.Call(ctx, method, callParams...)
		if err != nil {
			return nil, fmt.Errorf("call %s on %s: %w", method, env.Network.Name, err)
		}
		fmt.Fprintln(opts.Out, res.Raw)
		return res.Value(), nil
	}).
		AddPositionalParam("method", "The RPC method, e.g. system_chain", nil, params.String, false).
		AddOptionalVariadicPositionalParam("params", "Method parameters; JSON values are decoded, anything else is sent as a string", nil, params.String)
}

// rpcParam decodes JSON parameters so numbers, objects and arrays keep their
// type; other strings are sent as they are.
func rpcParam(p interface{}) interface{} {
	s, ok := p.(string)
	if !ok {
		return p
	}
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
