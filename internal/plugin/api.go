package plugin

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/bailuo/redspot/internal/config"
	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/params"
)

const (
	taskTypeName = "redspot.task"
	argTypeName  = "redspot.argtype"
)

// installAPI registers the globals plugins use:
//
//	task(name, [description], [action])
//	internalTask(name, [description], [action])
//	extendEnvironment(function(env) ... end)
//	extendConfig(function(config) ... end)
//	types.string, types.int, ..., types.choice("a", "b")
func (h *Host) installAPI() {
	h.installErrorType()
	h.installEnvType()
	h.installArgTypes()
	h.installTaskType()

	h.L.SetGlobal("task", h.L.NewFunction(func(L *lua.LState) int { return h.defineTask(L, false) }))
	h.L.SetGlobal("internalTask", h.L.NewFunction(func(L *lua.LState) int { return h.defineTask(L, true) }))
	h.L.SetGlobal("extendEnvironment", h.L.NewFunction(h.extendEnvironment))
	h.L.SetGlobal("extendConfig", h.L.NewFunction(h.extendConfig))
}

func (h *Host) installArgTypes() {
	mt := h.L.NewTypeMetatable(argTypeName)
	h.L.SetField(mt, "__tostring", h.L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		if t, ok := ud.Value.(params.ArgumentType); ok {
			L.Push(lua.LString(t.Name()))
			return 1
		}
		L.Push(lua.LString("argtype"))
		return 1
	}))

	types := h.L.NewTable()
	for _, t := range []params.ArgumentType{params.String, params.Boolean, params.Int, params.Float, params.InputFile, params.JSON} {
		types.RawSetString(t.Name(), h.argTypeValue(t))
	}
	types.RawSetString("choice", h.L.NewFunction(func(L *lua.LState) int {
		values := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			values = append(values, L.CheckString(i))
		}
		L.Push(h.argTypeValue(params.Choice(values...)))
		return 1
	}))
	h.L.SetGlobal("types", types)
}

func (h *Host) argTypeValue(t params.ArgumentType) *lua.LUserData {
	ud := h.L.NewUserData()
	ud.Value = t
	h.L.SetMetatable(ud, h.L.GetTypeMetatable(argTypeName))
	return ud
}

// checkArgType accepts a types.* value, a type name, or nil for string.
func checkArgType(L *lua.LState, n int) params.ArgumentType {
	switch v := L.Get(n).(type) {
	case *lua.LNilType:
		return nil
	case lua.LString:
		t, ok := params.ByName(string(v))
		if !ok {
			L.ArgError(n, "unknown argument type "+string(v))
		}
		return t
	case *lua.LUserData:
		if t, ok := v.Value.(params.ArgumentType); ok {
			return t
		}
	}
	L.ArgError(n, "argument type expected")
	return nil
}

func (h *Host) defineTask(L *lua.LState, internal bool) int {
	if h.hooks.Registry == nil {
		L.RaiseError("no task registry available")
		return 0
	}

	name := L.CheckString(1)
	description := ""
	var fn *lua.LFunction
	switch v := L.Get(2).(type) {
	case lua.LString:
		description = string(v)
		if f, ok := L.Get(3).(*lua.LFunction); ok {
			fn = f
		}
	case *lua.LFunction:
		fn = v
	}

	var action core.Action
	if fn != nil {
		action = h.action(name, fn)
	}

	var def *core.TaskDefinition
	if internal {
		def = h.hooks.Registry.DefineInternalTask(name, description, action)
	} else {
		def = h.hooks.Registry.DefineTask(name, description, action)
	}
	log.Debugf("plugin defined task %s", name)

	ud := L.NewUserData()
	ud.Value = def
	L.SetMetatable(ud, L.GetTypeMetatable(taskTypeName))
	L.Push(ud)
	return 1
}

// action adapts a Lua function to a task action. The function receives
// (args, env, runSuper) and its first result is the task's result.
func (h *Host) action(name string, fn *lua.LFunction) core.Action {
	return func(ctx context.Context, args core.Arguments, env *core.Environment, runSuper *core.RunSuper) (interface{}, error) {
		return h.call(ctx, "task "+name, fn, h.toLua(args), h.envValue(env), h.runSuperValue(runSuper))
	}
}

func checkTask(L *lua.LState) *core.TaskDefinition {
	ud := L.CheckUserData(1)
	def, ok := ud.Value.(*core.TaskDefinition)
	if !ok {
		L.ArgError(1, "task expected")
	}
	return def
}

func (h *Host) installTaskType() {
	mt := h.L.NewTypeMetatable(taskTypeName)

	chain := func(fn func(L *lua.LState, def *core.TaskDefinition)) lua.LGFunction {
		return func(L *lua.LState) int {
			def := checkTask(L)
			fn(L, def)
			L.Push(L.Get(1))
			return 1
		}
	}

	methods := map[string]lua.LGFunction{
		"setDescription": chain(func(L *lua.LState, def *core.TaskDefinition) {
			def.SetDescription(L.CheckString(2))
		}),
		"setAction": chain(func(L *lua.LState, def *core.TaskDefinition) {
			def.SetAction(h.action(def.Name(), L.CheckFunction(2)))
		}),
		"addParam": chain(func(L *lua.LState, def *core.TaskDefinition) {
			def.AddParam(L.CheckString(2), L.OptString(3, ""), h.toGo(L.Get(4)), checkArgType(L, 5), L.OptBool(6, false))
		}),
		"addOptionalParam": chain(func(L *lua.LState, def *core.TaskDefinition) {
			def.AddOptionalParam(L.CheckString(2), L.OptString(3, ""), h.toGo(L.Get(4)), checkArgType(L, 5))
		}),
		"addFlag": chain(func(L *lua.LState, def *core.TaskDefinition) {
			def.AddFlag(L.CheckString(2), L.OptString(3, ""))
		}),
		"addPositionalParam": chain(func(L *lua.LState, def *core.TaskDefinition) {
			def.AddPositionalParam(L.CheckString(2), L.OptString(3, ""), h.toGo(L.Get(4)), checkArgType(L, 5), L.OptBool(6, false))
		}),
		"addOptionalPositionalParam": chain(func(L *lua.LState, def *core.TaskDefinition) {
			def.AddOptionalPositionalParam(L.CheckString(2), L.OptString(3, ""), h.toGo(L.Get(4)), checkArgType(L, 5))
		}),
		"addVariadicPositionalParam": chain(func(L *lua.LState, def *core.TaskDefinition) {
			def.AddVariadicPositionalParam(L.CheckString(2), L.OptString(3, ""), h.toGo(L.Get(4)), checkArgType(L, 5), L.OptBool(6, false))
		}),
		"addOptionalVariadicPositionalParam": chain(func(L *lua.LState, def *core.TaskDefinition) {
			def.AddOptionalVariadicPositionalParam(L.CheckString(2), L.OptString(3, ""), h.toGo(L.Get(4)), checkArgType(L, 5))
		}),
	}
	h.L.SetField(mt, "__index", h.L.SetFuncs(h.L.NewTable(), methods))
}

func (h *Host) extendEnvironment(L *lua.LState) int {
	fn := L.CheckFunction(1)
	if h.hooks.ExtendEnvironment == nil {
		L.RaiseError("environment extenders are not available")
		return 0
	}
	h.hooks.ExtendEnvironment(func(env *core.Environment) error {
		_, err := h.call(context.Background(), "environment extender", fn, h.envValue(env))
		return err
	})
	return 0
}

// extendConfig registers a function that receives the config as a table.
// Changes made to the table are decoded back into the config.
func (h *Host) extendConfig(L *lua.LState) int {
	fn := L.CheckFunction(1)
	if h.hooks.ExtendConfig == nil {
		L.RaiseError("config extenders are not available")
		return 0
	}
	h.hooks.ExtendConfig(func(cfg *config.Config) error {
		m, err := cfg.ToMap()
		if err != nil {
			return err
		}
		tbl := h.mapToTable(m)
		if _, err := h.call(context.Background(), "config extender", fn, tbl); err != nil {
			return err
		}
		changed, ok := h.toGo(tbl).(map[string]interface{})
		if !ok {
			return errors.New("config extender left an invalid config table")
		}
		updated, err := config.FromMap(changed)
		if err != nil {
			return fmt.Errorf("decode extended config: %w", err)
		}
		*cfg = *updated
		return nil
	})
	return 0
}
