package plugin

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

const errorTypeName = "redspot.error"

// ScriptError is an error raised by Lua code with a plain value, e.g.
// error("boom").
type ScriptError struct {
	Source  string
	Message string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua error in %s: %s", e.Source, e.Message)
}

// raise aborts the running Lua call with err. The Go error travels as
// userdata so the Go caller at the other end of the call receives it
// unchanged.
func (h *Host) raise(err error) int {
	ud := h.L.NewUserData()
	ud.Value = err
	h.L.SetMetatable(ud, h.L.GetTypeMetatable(errorTypeName))
	h.L.Error(ud, 0)
	return 0
}

func (h *Host) installErrorType() {
	mt := h.L.NewTypeMetatable(errorTypeName)
	h.L.SetField(mt, "__tostring", h.L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		if err, ok := ud.Value.(error); ok {
			L.Push(lua.LString(err.Error()))
			return 1
		}
		L.Push(lua.LString("error"))
		return 1
	}))
}

// unwrapLuaError recovers the Go error carried by a Lua error, or wraps the
// raised value in a *ScriptError.
func unwrapLuaError(source string, err error) error {
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return err
	}
	if ud, ok := apiErr.Object.(*lua.LUserData); ok {
		if goErr, ok := ud.Value.(error); ok {
			return goErr
		}
	}
	msg := apiErr.Error()
	if apiErr.Object != nil && apiErr.Object != lua.LNil {
		msg = apiErr.Object.String()
	}
	return &ScriptError{Source: source, Message: msg}
}
