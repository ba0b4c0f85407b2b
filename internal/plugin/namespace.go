package plugin

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/bailuo/redspot/internal/globals"
)

// Namespace returns the host's Lua global table as a publication target.
// Published Go values are converted with the same rules as action
// arguments; Lookup returns raw Lua values so restoring them is exact.
func (h *Host) Namespace() globals.Namespace {
	return luaNamespace{h: h}
}

type luaNamespace struct {
	h *Host
}

func (n luaNamespace) Lookup(key string) (interface{}, bool) {
	v := n.h.L.GetGlobal(key)
	if v == lua.LNil {
		return nil, false
	}
	return v, true
}

func (n luaNamespace) Set(key string, value interface{}) {
	n.h.L.SetGlobal(key, n.h.toLua(value))
}

func (n luaNamespace) Delete(key string) {
	n.h.L.SetGlobal(key, lua.LNil)
}
