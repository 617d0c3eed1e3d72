package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/logstore"
)

// ErrStateClosed is returned when calling into a closed state.
var ErrStateClosed = errors.New("lua state is closed")

// state wraps one gopher-lua interpreter. LState is not goroutine-safe, so
// every call holds mu.
type state struct {
	L    *lua.LState
	mu   sync.Mutex
	path string

	closed bool
}

func newState(path string, logs *logstore.Store) (*state, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	installLogging(L, logs, path)

	s := &state{L: L, path: path}
	if err := s.doWithRecovery(func() error { return L.DoFile(path) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if fn := L.GetGlobal("step"); fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("load %s: no global function step", path)
	}
	return s, nil
}

// openSafeLibraries opens only the libraries that cannot touch the host.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// installLogging exposes log(level, msg) and routes print to the store.
func installLogging(L *lua.LState, logs *logstore.Store, path string) {
	details := map[string]any{"script": path}

	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		level, err := logstore.ParseLevel(L.CheckString(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		if logs != nil {
			logs.Append(level, L.CheckString(2), logstore.SourceAgent, details, taskIDOf(L))
		}
		return 0
	}))

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		if logs != nil {
			logs.Append(logstore.LevelDebug, strings.Join(parts, "\t"), logstore.SourceAgent, details, taskIDOf(L))
		}
		return 0
	}))
}

const taskIDGlobal = "__task_id"

func taskIDOf(L *lua.LState) string {
	return lua.LVAsString(L.GetGlobal(taskIDGlobal))
}

// call invokes step(label, index, input, params) under ctx. index is
// 1-based.
func (s *state) call(ctx context.Context, sc agent.StepContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	s.L.SetGlobal(taskIDGlobal, lua.LString(sc.Task.ID))
	args := []lua.LValue{
		lua.LString(sc.Label),
		lua.LNumber(sc.Index + 1),
		lua.LString(sc.Input),
		toLValue(s.L, sc.Params),
	}

	top := s.L.GetTop()
	defer s.L.SetTop(top)

	err := s.doWithRecovery(func() error {
		return s.L.CallByParam(lua.P{
			Fn:      s.L.GetGlobal("step"),
			NRet:    2,
			Protect: true,
		}, args...)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return context.Cause(ctx)
		}
		return unwrapLuaError(err)
	}

	ok, msg := s.L.Get(-2), s.L.Get(-1)
	if ok == lua.LFalse {
		if msg == lua.LNil {
			return errors.New("step returned false")
		}
		return errors.New(lua.LVAsString(msg))
	}
	return nil
}

func (s *state) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// unwrapLuaError keeps the message raised by error() and drops the
// traceback.
func unwrapLuaError(err error) error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return errors.New(apiErr.Object.String())
	}
	return err
}

func (s *state) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.L.Close()
		s.closed = true
	}
}

// toLValue converts a Go value from step params into Lua.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(v)
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case []any:
		t := L.NewTable()
		for _, item := range v {
			t.Append(toLValue(L, item))
		}
		return t
	case []string:
		t := L.NewTable()
		for _, item := range v {
			t.Append(lua.LString(item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range v {
			t.RawSetString(k, toLValue(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(v))
	}
}
