// Package filter selects items by user-supplied criteria: Lua predicate
// expressions evaluated against item metadata, and index range
// specifications like "1-5,8,10-".
//
// An expression sees metadata keys as plain variables:
//
//	width >= 1200 and rating ~= "explicit"
//
// Missing keys read as nil. The Lua standard library is restricted to
// the base, string, table, and math modules; the file and module
// loaders are removed.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Sentinel errors for matching with errors.Is.
var (
	// ErrBadExpr indicates an expression that does not compile.
	ErrBadExpr = errors.New("bad filter expression")

	// ErrEval indicates an expression that failed at evaluation time,
	// for example a comparison against a missing key.
	ErrEval = errors.New("filter evaluation failed")

	// ErrBadRange indicates a range specification that does not parse.
	ErrBadRange = errors.New("bad range specification")
)

// Expr is a compiled filter expression, safe for concurrent use.
type Expr struct {
	src   string
	proto *lua.FunctionProto
}

// Compile compiles a Lua expression into a reusable filter.
func Compile(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrBadExpr)
	}
	// Wrapping in "return (...)" accepts exactly one expression and
	// rejects statements.
	chunk, err := parse.Parse(strings.NewReader("return ("+src+")"), "<filter>")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadExpr, err)
	}
	proto, err := lua.Compile(chunk, "<filter>")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadExpr, err)
	}
	return &Expr{src: src, proto: proto}, nil
}

// MustCompile compiles an expression and panics on error. Useful for
// built-in filters known to be valid.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source the expression was compiled from.
func (e *Expr) String() string {
	return e.src
}

// Match evaluates the expression against metadata and reports Lua
// truthiness: false and nil fail, everything else passes.
func (e *Expr) Match(data map[string]any) (bool, error) {
	L := statePool.Get().(*lua.LState)
	defer statePool.Put(L)

	ret, err := e.eval(L, data)
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(ret), nil
}

// Eval evaluates the expression against metadata and returns the result
// as a Go value.
func (e *Expr) Eval(data map[string]any) (any, error) {
	L := statePool.Get().(*lua.LState)
	defer statePool.Put(L)

	ret, err := e.eval(L, data)
	if err != nil {
		return nil, err
	}
	return toGo(ret, make(map[*lua.LTable]bool)), nil
}

func (e *Expr) eval(L *lua.LState, data map[string]any) (lua.LValue, error) {
	top := L.GetTop()
	fn := L.NewFunctionFromProto(e.proto)
	fn.Env = metadataEnv(L, data)
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		L.SetTop(top)
		return nil, fmt.Errorf("%w: %q: %v", ErrEval, e.src, err)
	}
	ret := L.Get(-1)
	L.SetTop(top)
	return ret, nil
}

// statePool reuses sandboxed Lua states across evaluations. States are
// expression-independent; each evaluation installs a fresh environment.
var statePool = sync.Pool{
	New: func() any { return newState() },
}

func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Expressions have no business loading code.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// metadataEnv builds the expression's environment: metadata keys as
// variables, falling back to the state's globals for the standard
// modules.
func metadataEnv(L *lua.LState, data map[string]any) *lua.LTable {
	env := L.NewTable()
	for k, v := range data {
		env.RawSetString(k, toLua(L, v))
	}
	mt := L.NewTable()
	mt.RawSetString("__index", L.Get(lua.GlobalsIndex))
	L.SetMetatable(env, mt)
	return env
}

// toLua converts a metadata value to its Lua representation. Values
// outside the metadata vocabulary read as nil.
func toLua(L *lua.LState, v any) lua.LValue {
	switch t := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(t)
	case int:
		return lua.LNumber(t)
	case int64:
		return lua.LNumber(t)
	case float64:
		return lua.LNumber(t)
	case string:
		return lua.LString(t)
	case []string:
		tbl := L.NewTable()
		for i, el := range t {
			tbl.RawSetInt(i+1, lua.LString(el))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, el := range t {
			tbl.RawSetInt(i+1, toLua(L, el))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, el := range t {
			tbl.RawSetString(k, toLua(L, el))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// toGo converts a Lua value back to a Go value. Integral numbers come
// back as int64, tables as slices or maps.
func toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
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
		return tableToGo(v, visited)
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	arrayKeys := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 || int(kn) > n {
			arrayKeys = false
		}
	})

	if arrayKeys && count == n && n > 0 {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = toGo(v, visited)
	})
	return m
}
