package plugin

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/bailuo/redspot/internal/config"
	"github.com/bailuo/redspot/internal/core"
)

const envTypeName = "redspot.env"

// toGo converts a Lua value to a Go value. Functions and userdata are kept
// as they are so they survive a round trip through Go.
func (h *Host) toGo(lv lua.LValue) interface{} {
	return h.toGoWithVisited(lv, make(map[*lua.LTable]bool))
}

func (h *Host) toGoWithVisited(lv lua.LValue, visited map[*lua.LTable]bool) interface{} {
	if lv == nil {
		return nil
	}

	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return h.tableToGo(v, visited)
	case *lua.LNilType:
		return nil
	case *lua.LFunction:
		return v
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

// tableToGo converts a sequence to a slice and anything else to a map.
func (h *Host) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) interface{} {
	isArray := true
	maxN := 0
	count := 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if kn, ok := k.(lua.LNumber); ok {
			n := int(kn)
			if float64(n) == float64(kn) && n > 0 {
				if n > maxN {
					maxN = n
				}
				return
			}
		}
		isArray = false
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]interface{}, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = h.toGoWithVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]interface{})
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = h.toGoWithVisited(v, visited)
	})
	return m
}

// toArguments converts a Lua value to task arguments. nil stays nil so
// runSuper can tell "no arguments" from "empty arguments".
func (h *Host) toArguments(lv lua.LValue) (core.Arguments, error) {
	if lv == lua.LNil {
		return nil, nil
	}
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("task arguments must be a table, got %s", lv.Type())
	}
	args := make(core.Arguments)
	t.ForEach(func(k, v lua.LValue) {
		args[k.String()] = h.toGo(v)
	})
	return args, nil
}

// toLua converts a Go value to a Lua value. Runtime values get a Lua face:
// runSuper is callable, network exposes call, and the environment is an
// indexable userdata.
func (h *Host) toLua(v interface{}) lua.LValue {
	if v == nil {
		return lua.LNil
	}

	switch val := v.(type) {
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []interface{}:
		t := h.L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, h.toLua(item))
		}
		return t
	case []string:
		t := h.L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, lua.LString(item))
		}
		return t
	case map[string]interface{}:
		return h.mapToTable(val)
	case core.Arguments:
		return h.mapToTable(val)
	case error:
		ud := h.L.NewUserData()
		ud.Value = val
		h.L.SetMetatable(ud, h.L.GetTypeMetatable(errorTypeName))
		return ud
	case *core.RunSuper:
		return h.runSuperValue(val)
	case core.RunFunc:
		return h.runFuncValue(val)
	case *core.Network:
		return h.networkValue(val)
	case *config.Config:
		m, err := val.ToMap()
		if err != nil {
			log.Warnf("converting config for lua: %v", err)
			return lua.LNil
		}
		return h.mapToTable(m)
	case core.RuntimeArguments:
		t := h.L.NewTable()
		t.RawSetString("network", lua.LString(val.Network))
		t.RawSetString("logLevel", lua.LString(val.LogLevel))
		t.RawSetString("config", lua.LString(val.Config))
		t.RawSetString("verbose", lua.LBool(val.Verbose))
		t.RawSetString("logFile", lua.LString(val.LogFile))
		return t
	case *core.Registry:
		return h.registryValue(val)
	case *core.Environment:
		return h.envValue(val)
	default:
		return h.reflectToLua(v)
	}
}

func (h *Host) mapToTable(m map[string]interface{}) *lua.LTable {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := h.L.NewTable()
	for _, k := range keys {
		t.RawSetString(k, h.toLua(m[k]))
	}
	return t
}

// reflectToLua converts other slices, maps and structs; anything else
// becomes userdata.
func (h *Host) reflectToLua(v interface{}) lua.LValue {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return lua.LNil
		}
		return h.reflectToLua(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return lua.LNumber(rv.Convert(reflect.TypeOf(float64(0))).Float())
	case reflect.Float32:
		return lua.LNumber(rv.Float())
	case reflect.Slice, reflect.Array:
		t := h.L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, h.toLua(rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		t := h.L.NewTable()
		for _, key := range rv.MapKeys() {
			t.RawSet(h.toLua(key.Interface()), h.toLua(rv.MapIndex(key).Interface()))
		}
		return t
	case reflect.Struct:
		t := h.L.NewTable()
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if field.PkgPath != "" {
				continue
			}
			t.RawSetString(field.Name, h.toLua(rv.Field(i).Interface()))
		}
		return t
	default:
		ud := h.L.NewUserData()
		ud.Value = v
		return ud
	}
}

// runSuperValue exposes a runSuper binding as a callable table:
// runSuper(args), runSuper.run(args) and runSuper.isDefined.
func (h *Host) runSuperValue(rs *core.RunSuper) lua.LValue {
	run := func(L *lua.LState, argIdx int) int {
		args, err := h.toArguments(L.Get(argIdx))
		if err != nil {
			L.ArgError(argIdx, err.Error())
			return 0
		}
		res, err := rs.Run(h.context(), args)
		if err != nil {
			return h.raise(err)
		}
		L.Push(h.toLua(res))
		return 1
	}

	t := h.L.NewTable()
	t.RawSetString("isDefined", lua.LBool(rs.IsDefined()))
	t.RawSetString("taskName", lua.LString(rs.TaskName()))
	t.RawSetString("run", h.L.NewFunction(func(L *lua.LState) int { return run(L, 1) }))

	mt := h.L.NewTable()
	mt.RawSetString("__call", h.L.NewFunction(func(L *lua.LState) int { return run(L, 2) }))
	h.L.SetMetatable(t, mt)
	return t
}

func (h *Host) runFuncValue(run core.RunFunc) lua.LValue {
	return h.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		args, err := h.toArguments(L.Get(2))
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		res, err := run(h.context(), name, args)
		if err != nil {
			return h.raise(err)
		}
		L.Push(h.toLua(res))
		return 1
	})
}

// networkValue exposes the selected network. network.call(method, ...)
// sends a JSON-RPC request through the lazily built provider.
func (h *Host) networkValue(n *core.Network) lua.LValue {
	t := h.L.NewTable()
	t.RawSetString("name", lua.LString(n.Name))
	t.RawSetString("endpoint", lua.LString(n.Config.Endpoint))
	t.RawSetString("explorerUrl", lua.LString(n.Config.ExplorerURL))
	t.RawSetString("call", h.L.NewFunction(func(L *lua.LState) int {
		method := L.CheckString(1)
		params := make([]interface{}, 0, L.GetTop()-1)
		for i := 2; i <= L.GetTop(); i++ {
			params = append(params, h.toGo(L.Get(i)))
		}
		res, err := n.Provider.Call(h.context(), method, params...)
		if err != nil {
			return h.raise(err)
		}
		L.Push(h.toLua(res.Value()))
		return 1
	}))
	return t
}

// registryValue exposes task names mapped to their descriptions.
func (h *Host) registryValue(reg *core.Registry) lua.LValue {
	t := h.L.NewTable()
	for _, name := range reg.Names(true) {
		def, _ := reg.Lookup(name)
		t.RawSetString(name, lua.LString(def.Description()))
	}
	return t
}

// envValue wraps an environment so Lua can read members with env.name and
// add extensions with env.name = value.
func (h *Host) envValue(env *core.Environment) lua.LValue {
	ud := h.L.NewUserData()
	ud.Value = env
	h.L.SetMetatable(ud, h.L.GetTypeMetatable(envTypeName))
	return ud
}

func (h *Host) installEnvType() {
	mt := h.L.NewTypeMetatable(envTypeName)
	h.L.SetField(mt, "__index", h.L.NewFunction(func(L *lua.LState) int {
		env := checkEnv(L)
		v, ok := env.Get(L.CheckString(2))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(h.toLua(v))
		return 1
	}))
	h.L.SetField(mt, "__newindex", h.L.NewFunction(func(L *lua.LState) int {
		env := checkEnv(L)
		if err := env.Set(L.CheckString(2), h.toGo(L.Get(3))); err != nil {
			return h.raise(err)
		}
		return 0
	}))
}

func checkEnv(L *lua.LState) *core.Environment {
	ud := L.CheckUserData(1)
	env, ok := ud.Value.(*core.Environment)
	if !ok {
		L.ArgError(1, "environment expected")
	}
	return env
}

// context returns the context attached to the running call.
func (h *Host) context() context.Context {
	if ctx := h.L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
