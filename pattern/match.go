package pattern

import (
	"fmt"
)

// Func is a function reachable from a pattern, either as a #funcall or as
// a predicate method. value is the matched value (or its type tag at a
// sequence head); the result is tested for truthiness.
type Func func(value any, args ...any) any

// FuncMap maps #funcall names to functions.
type FuncMap map[string]Func

// MethodMap maps predicate names (with their trailing '?') to functions
// that take the receiver as first argument.
type MethodMap map[string]Func

// Env is the owner-supplied environment of a match: #name funcalls resolve
// in Funcs, name? predicates fall back to Methods when the receiver does
// not implement them itself. A nil *Env is valid and empty.
type Env struct {
	Funcs   FuncMap
	Methods MethodMap
}

// Pattern is a compiled NodePattern. It is immutable and safe for
// concurrent use; each match allocates its own state.
type Pattern struct {
	src        string
	expr       Expr
	match      matchFunc
	captures   int
	maxParam   int
	unifySlots int
}

// String returns the source text of the pattern.
func (p *Pattern) String() string { return p.src }

// AST returns the parsed form of the pattern.
func (p *Pattern) AST() Expr { return p.expr }

// NumCaptures returns the number of values a successful match yields.
func (p *Pattern) NumCaptures() int { return p.captures }

// NumParams returns the number of positional parameters the pattern takes,
// the highest %N it references. %0 is the match root and does not count.
func (p *Pattern) NumParams() int { return p.maxParam }

// NumUnify returns the number of distinct named wildcards.
func (p *Pattern) NumUnify() int { return p.unifySlots }

// Match runs the pattern against root with an empty environment.
func (p *Pattern) Match(root any, params ...any) (Result, error) {
	return p.MatchEnv(nil, root, params...)
}

// MatchEnv runs the pattern against root. A non-match is not an error:
// errors report a wrong parameter count or a predicate or function that
// could not be resolved.
func (p *Pattern) MatchEnv(env *Env, root any, params ...any) (res Result, err error) {
	if err := p.checkParams(params); err != nil {
		return Result{}, err
	}

	st := p.newState(env, root, params)
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(dispatchError)
			if !ok {
				panic(r)
			}
			res, err = Result{}, de.err
		}
	}()

	if !p.match(st, root) {
		return Result{}, nil
	}
	node, _ := asNode(root)
	return Result{matched: true, captures: st.captures, node: node}, nil
}

// Matches is a shorthand for MatchEnv that only reports success.
func (p *Pattern) Matches(env *Env, root any, params ...any) (bool, error) {
	res, err := p.MatchEnv(env, root, params...)
	return res.Matched(), err
}

func (p *Pattern) checkParams(params []any) error {
	if len(params) != p.maxParam {
		return fmt.Errorf("%w: %q takes %d, got %d", ErrParamCount, p.src, p.maxParam, len(params))
	}
	return nil
}

func (p *Pattern) newState(env *Env, root any, params []any) *state {
	st := &state{
		env:    env,
		params: make([]any, 0, len(params)+1),
	}
	st.params = append(st.params, root)
	st.params = append(st.params, params...)
	if p.captures > 0 {
		st.captures = make([]any, p.captures)
	}
	if p.unifySlots > 0 {
		st.unify = make([]any, p.unifySlots)
		st.bound = make([]bool, p.unifySlots)
	}
	return st
}

// state is the per-match scratch space. Captures are written as matchers
// succeed and are not rolled back; only a successful match exposes them.
type state struct {
	env      *Env
	params   []any // params[0] is the root
	captures []any
	unify    []any
	bound    []bool
}

// mark snapshots which unification slots are bound, so that a failed
// alternative does not leak its bindings into the next one.
func (st *state) mark() []bool {
	if len(st.bound) == 0 {
		return nil
	}
	m := make([]bool, len(st.bound))
	copy(m, st.bound)
	return m
}

func (st *state) reset(m []bool) {
	copy(st.bound, m)
}

// callMethod resolves a predicate: the receiver first, then the
// environment, then the builtins.
func (st *state) callMethod(name string, recv any, args []any) any {
	if mc, ok := recv.(MethodCaller); ok && !isNil(mc) {
		if res, ok := mc.CallMethod(name, args); ok {
			return res
		}
	}
	if st.env != nil {
		if fn, ok := st.env.Methods[name]; ok {
			return fn(recv, args...)
		}
	}
	if b, ok := builtins[name]; ok {
		return b.call(name, recv, args)
	}
	raiseDispatch(ErrUnknownMethod, name, recv)
	return nil
}

func (st *state) callFunc(name string, value any, args []any) any {
	if st.env != nil {
		if fn, ok := st.env.Funcs[name]; ok {
			return fn(value, args...)
		}
	}
	raiseDispatch(ErrUnknownFunc, name, value)
	return nil
}

type noMatch struct{}

func (noMatch) String() string { return "NoMatch" }

// NoMatch is the Value of a failed match. It is distinct from nil, which a
// successful single capture may legitimately hold.
var NoMatch any = noMatch{}

// Result is the outcome of one match.
type Result struct {
	matched  bool
	captures []any
	node     Node
}

// Matched reports whether the pattern matched.
func (r Result) Matched() bool { return r.matched }

// Captures returns the captured values in slot order. It is empty for a
// failed match and for patterns without captures.
func (r Result) Captures() []any { return r.captures }

// Node returns the root of the match when it was a Node.
func (r Result) Node() Node { return r.node }

// Value collapses the result the way a matcher returns it: NoMatch on
// failure, true without captures, the value with one capture and the list
// of captures otherwise.
func (r Result) Value() any {
	switch {
	case !r.matched:
		return NoMatch
	case len(r.captures) == 0:
		return true
	case len(r.captures) == 1:
		return r.captures[0]
	default:
		return r.captures
	}
}

// Yield passes the captures to fn on success and returns its result. On
// failure fn is not called and Yield returns NoMatch.
func (r Result) Yield(fn func(captures ...any) any) any {
	if !r.matched {
		return NoMatch
	}
	return fn(r.captures...)
}
