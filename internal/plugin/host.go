// Package plugin runs Lua plugins that define tasks, override them and
// extend the environment.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/bailuo/redspot/internal/config"
	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/logging"
)

var log = logging.New("plugin")

// ErrHostClosed is returned when a closed host is used.
var ErrHostClosed = errors.New("plugin host is closed")

// Hooks connect a host to the process context it loads plugins into.
type Hooks struct {
	// Registry receives tasks defined by plugins.
	Registry *core.Registry
	// ExtendEnvironment registers an environment extender.
	ExtendEnvironment func(core.Extender)
	// ExtendConfig registers a config extender.
	ExtendConfig func(config.Extender)
}

// Host owns a Lua state shared by every plugin of a process context.
//
// gopher-lua states are not goroutine-safe. Task actions defined in Lua run
// on the goroutine that calls Environment.Run, which is also where nested
// runSuper calls re-enter the state, so only loading and closing are locked.
type Host struct {
	L *lua.LState

	mu     sync.Mutex
	hooks  Hooks
	loaded map[string]bool
	order  []string
	closed bool
}

// NewHost creates a host with only the safe standard libraries opened and
// the redspot API installed.
func NewHost(hooks Hooks) *Host {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	h := &Host{
		L:      L,
		hooks:  hooks,
		loaded: make(map[string]bool),
	}
	h.installAPI()
	return h
}

// openSafeLibraries opens the libraries plugins may use. io, os, debug and
// package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// LoadFile runs a plugin file. Each file is run at most once per host; a
// repeated load is a no-op.
func (h *Host) LoadFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve plugin path: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	if h.loaded[abs] {
		log.Debugf("plugin %s already loaded", abs)
		return nil
	}

	log.Debugf("loading plugin %s", abs)
	if err := h.doWithRecovery(func() error { return h.L.DoFile(abs) }); err != nil {
		return fmt.Errorf("load plugin %s: %w", path, unwrapLuaError(abs, err))
	}
	h.loaded[abs] = true
	h.order = append(h.order, abs)
	return nil
}

// DoString runs a chunk of Lua code with the redspot API available.
func (h *Host) DoString(code string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	if err := h.doWithRecovery(func() error { return h.L.DoString(code) }); err != nil {
		return unwrapLuaError("<string>", err)
	}
	return nil
}

// Loaded returns the absolute paths of loaded plugins in load order.
func (h *Host) Loaded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// doWithRecovery executes a function with panic recovery.
func (h *Host) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// call invokes a Lua function with already converted arguments and returns
// its first result converted to Go. The context is attached to the state
// for the outermost call only; nested calls inherit it.
func (h *Host) call(ctx context.Context, source string, fn *lua.LFunction, args ...lua.LValue) (interface{}, error) {
	if h.L.Context() == nil && ctx != nil {
		h.L.SetContext(ctx)
		defer h.L.RemoveContext()
	}

	stackTop := h.L.GetTop()
	h.L.Push(fn)
	for _, arg := range args {
		h.L.Push(arg)
	}

	var callErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("lua panic: %v", r)
			}
		}()
		callErr = h.L.PCall(len(args), lua.MultRet, nil)
	}()
	if callErr != nil {
		h.L.SetTop(stackTop)
		return nil, unwrapLuaError(source, callErr)
	}

	nRet := h.L.GetTop() - stackTop
	if nRet <= 0 {
		return nil, nil
	}
	result := h.toGo(h.L.Get(stackTop + 1))
	h.L.Pop(nRet)
	return result, nil
}

// IsClosed reports whether Close has been called.
func (h *Host) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close releases the Lua state. Later calls return ErrHostClosed.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.L.Close()
	h.closed = true
	return nil
}
