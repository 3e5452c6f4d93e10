// Package script embeds a sandboxed Lua runtime so a table definition can
// ship custom cell renderers and footer aggregates as a script instead of
// compiled code. Scripts see a single `gridkit` module with register
// functions; io, os, debug, and package loading are withheld.
package script

import (
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/gridkit/internal/footer"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/logging"
	"github.com/dshills/gridkit/internal/render"
)

// ErrClosed is returned when a Runtime is used after Close.
var ErrClosed = fmt.Errorf("script: runtime closed")

// ScriptError wraps a Lua evaluation failure with its source.
type ScriptError struct {
	Source string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s: %v", e.Source, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// Runtime hosts one Lua state per table. The state is not goroutine-safe,
// so every renderer or aggregate call funnels through the runtime mutex.
type Runtime struct {
	mu     sync.Mutex
	state  *lua.LState
	closed bool

	log     *logging.Logger
	renders *render.Registry
	aggs    *footer.Registry
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(r *Runtime) { r.log = log }
}

// New creates a runtime whose scripts register into the given renderer and
// aggregate registries. Either registry may be nil; the corresponding
// register call then becomes a logged no-op.
func New(renders *render.Registry, aggs *footer.Registry, opts ...Option) *Runtime {
	r := &Runtime{
		log:     logging.Discard(),
		renders: renders,
		aggs:    aggs,
	}
	for _, o := range opts {
		o(r)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// No io, os, debug, or package. Neutralize the loaders base opens.
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	r.state = L

	mod := L.NewTable()
	L.SetField(mod, "render", L.NewFunction(r.luaRegisterRender))
	L.SetField(mod, "aggregate", L.NewFunction(r.luaRegisterAggregate))
	L.SetGlobal("gridkit", mod)

	return r
}

// Close releases the Lua state. Renderers and aggregates already
// registered stop working and render their input unchanged.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.state.Close()
}

// LoadFile evaluates a script file.
func (r *Runtime) LoadFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if err := r.state.DoFile(path); err != nil {
		return &ScriptError{Source: path, Err: err}
	}
	return nil
}

// LoadString evaluates inline script source.
func (r *Runtime) LoadString(src string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if err := r.state.DoString(src); err != nil {
		return &ScriptError{Source: "inline", Err: err}
	}
	return nil
}

// luaRegisterRender implements gridkit.render(name, fn). The Lua function
// receives (value, row) where row is a table of the row's top-level fields
// as strings, and returns the rendered text.
func (r *Runtime) luaRegisterRender(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	if r.renders == nil {
		r.log.Warn("script registered renderer %q with no registry attached", name)
		return 0
	}

	r.renders.Register(name, func(value string, row grid.Row) string {
		out, err := r.callRender(fn, value, row)
		if err != nil {
			r.log.Warn("renderer %q failed: %v", name, err)
			return value
		}
		return out
	})
	r.log.Debug("script renderer %q registered", name)
	return 0
}

// luaRegisterAggregate implements gridkit.aggregate(name, fn). The Lua
// function receives a table of column values and returns the footer text.
func (r *Runtime) luaRegisterAggregate(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	if r.aggs == nil {
		r.log.Warn("script registered aggregate %q with no registry attached", name)
		return 0
	}

	r.aggs.Register(name, func(values []string) string {
		out, err := r.callAggregate(fn, values)
		if err != nil {
			r.log.Warn("aggregate %q failed: %v", name, err)
			return ""
		}
		return out
	})
	return 0
}

func (r *Runtime) callRender(fn *lua.LFunction, value string, row grid.Row) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}

	tbl := r.state.NewTable()
	gjson.ParseBytes(row.Data).ForEach(func(key, value gjson.Result) bool {
		r.state.SetField(tbl, key.String(), lua.LString(value.String()))
		return true
	})

	if err := r.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
		lua.LString(value), tbl); err != nil {
		return "", err
	}
	ret := r.state.Get(-1)
	r.state.Pop(1)
	return lua.LVAsString(ret), nil
}

func (r *Runtime) callAggregate(fn *lua.LFunction, values []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}

	tbl := r.state.NewTable()
	for _, v := range values {
		tbl.Append(lua.LString(v))
	}

	if err := r.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, tbl); err != nil {
		return "", err
	}
	ret := r.state.Get(-1)
	r.state.Pop(1)
	return lua.LVAsString(ret), nil
}
