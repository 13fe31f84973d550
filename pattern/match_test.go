package pattern

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// putsCall is (send nil :puts (int 1)).
func putsCall() *SNode {
	return S("send", nil, Atom("puts"), S("int", int64(1)))
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		node    func() any
		want    bool
	}{
		{"exact", "(send nil :puts (int 1))", func() any { return putsCall() }, true},
		{"shorthand", "send", func() any { return putsCall() }, true},
		{"wrong type", "(int ...)", func() any { return putsCall() }, false},
		{"too few terms", "(send _ _)", func() any { return putsCall() }, false},
		{"too many terms", "(send _ _ _ _)", func() any { return putsCall() }, false},
		{"rest", "(send ...)", func() any { return putsCall() }, true},
		{"empty rest", "(send _ _ _ ...)", func() any { return putsCall() }, true},
		{"rest needs fixed terms", "(send _ _ _ _ ...)", func() any { return putsCall() }, false},
		{"trailing term after rest", "(send ... (int _))", func() any { return putsCall() }, true},
		{"wildcard head", "(_ nil ...)", func() any { return putsCall() }, true},
		{"union head", "({csend send} ...)", func() any { return putsCall() }, true},
		{"union term", "(send _ {:print :puts} _)", func() any { return putsCall() }, true},
		{"union miss", "(send _ {:print :p} _)", func() any { return putsCall() }, false},
		{"intersection", "[send (send nil ...)]", func() any { return putsCall() }, true},
		{"intersection miss", "[send (send :x ...)]", func() any { return putsCall() }, false},
		{"negation", "(send _ !:puts ...)", func() any { return putsCall() }, false},
		{"negation of other atom", "(send _ !:print ...)", func() any { return putsCall() }, true},
		{"negated predicate", "(send _ _ !nil?)", func() any { return putsCall() }, true},
		{"nil predicate", "(send nil? ...)", func() any { return putsCall() }, true},
		{"builtin with literal arg", "(send _ _ (int equal?(1)))", func() any { return putsCall() }, true},
		{"odd", "(send _ _ (int odd?))", func() any { return putsCall() }, true},
		{"even", "(send _ _ (int even?))", func() any { return putsCall() }, false},
		{"float literal equals int", "(send _ _ (int 1.0))", func() any { return putsCall() }, true},
		{"string literal", `(str "hi")`, func() any { return S("str", "hi") }, true},
		{"string is not atom", `(str :hi)`, func() any { return S("str", "hi") }, false},
		{"non node", "(send ...)", func() any { return Atom("send") }, false},
		{"nil root", "send", func() any { return nil }, false},
		{"typed nil root", "send", func() any { return (*SNode)(nil) }, false},
		{"unify", "(send _x :+ _x)", func() any {
			return S("send", S("lvar", Atom("a")), Atom("+"), S("lvar", Atom("a")))
		}, true},
		{"unify mismatch", "(send _x :+ _x)", func() any {
			return S("send", S("lvar", Atom("a")), Atom("+"), S("lvar", Atom("b")))
		}, false},
		{"unify across depth", "(send (lvar _x) _ (lvar _x))", func() any {
			return S("send", S("lvar", Atom("a")), Atom("+"), S("lvar", Atom("a")))
		}, true},
		{"unify used by predicate", "(send _x :+ equal?(_x))", func() any {
			return S("send", int64(2), Atom("+"), int64(2))
		}, true},
		{"failed union branch drops its bindings", "{(send _x :nope _) (send _ _x _)}", func() any { return putsCall() }, true},
		{"match root param", "(send _ _ ^%0)", func() any { return putsCall() }, true},
		{"double negation keeps binding", "(send !!_x _ _x)", func() any {
			return S("send", S("lvar", Atom("a")), Atom("+"), S("lvar", Atom("b")))
		}, false},
		{"double negation equal", "(send !!_x _ _x)", func() any {
			return S("send", S("lvar", Atom("a")), Atom("+"), S("lvar", Atom("a")))
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			require.NoError(t, err)

			res, err := p.Match(tt.node())
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Matched())
		})
	}
}

func TestMatchCaptures(t *testing.T) {
	t.Parallel()

	node := putsCall()
	intNode := node.Children()[2]

	tests := []struct {
		pattern string
		want    any
	}{
		{"(send nil :puts (int 1))", true},
		{"(send nil :puts $_)", intNode},
		{"(send $_ $_ $_)", []any{nil, Atom("puts"), intNode}},
		{"(send $...)", []any{nil, Atom("puts"), intNode}},
		{"(send nil $... (int _))", []any{Atom("puts")}},
		{"(send $... $(int _))", []any{[]any{nil, Atom("puts")}, intNode}},
		{"($_ ...)", Atom("send")},
		{"(send _ $:puts (int $_))", []any{Atom("puts"), int64(1)}},
		{"(send _ {$:print $:puts} $_)", []any{Atom("puts"), intNode}},
		{"$(send ...)", node},
		{"(send _ _ $[int (int odd?)])", intNode},
		{"(send _ :nope $_)", NoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			require.NoError(t, err)

			res, err := p.Match(node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Value())
		})
	}
}

func TestMatchCaptureCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern  string
		captures int
		params   int
		unify    int
	}{
		{"send", 0, 0, 0},
		{"(send $_ $... $_)", 3, 0, 0},
		{"(send {$_ $:a} ...)", 1, 0, 0},
		{"(send %1 _ %3)", 0, 3, 0},
		{"(send % _ %0)", 0, 1, 0},
		{"(send _a _b _a)", 0, 0, 2},
		{"$(send $(int $_) ...)", 3, 0, 0},
		// one capture in each branch: compiles despite the nested sequence
		{"{ $foo $(bar baz) }", 1, 0, 0},
		{"{ $a $b }", 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.captures, p.NumCaptures())
			assert.Equal(t, tt.params, p.NumParams())
			assert.Equal(t, tt.unify, p.NumUnify())
			assert.Equal(t, tt.pattern, p.String())
		})
	}
}

func TestCompileIdempotent(t *testing.T) {
	t.Parallel()

	const src = "(send $_ {:puts :print} (int %1))"
	a, err := Compile(src)
	require.NoError(t, err)
	b, err := Compile(src)
	require.NoError(t, err)

	assert.Equal(t, a.NumCaptures(), b.NumCaptures())
	assert.Equal(t, a.NumParams(), b.NumParams())
	assert.Equal(t, a.AST().String(), b.AST().String())

	for _, param := range []any{int64(1), int64(2)} {
		ra, err := a.Match(putsCall(), param)
		require.NoError(t, err)
		rb, err := b.Match(putsCall(), param)
		require.NoError(t, err)
		assert.Equal(t, ra.Value(), rb.Value())
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		msg     string
	}{
		{"{$_ _}", "each branch of {} must have same # of captures"},
		{"(send {(int $_) (str _)} ...)", "each branch of {} must have same # of captures"},
		{"{ $a (b $c $d) }", "each branch of {} must have same # of captures"},
		{"(send _ #foo(_x))", "invalid in arglist: _x"},
		{"(send equal?(_y) _y)", "invalid in arglist: _y"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			_, err := Compile(tt.pattern)
			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.msg, perr.Msg)
		})
	}

	assert.Panics(t, func() { MustCompile("(send") })
	assert.NotPanics(t, func() { MustCompile("(send ...)") })
}

func TestMatchParams(t *testing.T) {
	t.Parallel()

	p := MustCompile("(send %1 _ _)")
	require.Equal(t, 1, p.NumParams())

	res, err := p.Match(putsCall(), nil)
	require.NoError(t, err)
	assert.True(t, res.Matched())

	res, err = p.Match(putsCall(), Atom("x"))
	require.NoError(t, err)
	assert.False(t, res.Matched())

	_, err = p.Match(putsCall())
	assert.ErrorIs(t, err, ErrParamCount)

	_, err = p.Match(putsCall(), nil, nil)
	assert.ErrorIs(t, err, ErrParamCount)

	second := MustCompile("(send _ %2 #big(%1))")
	env := &Env{Funcs: FuncMap{
		"big": func(v any, args ...any) any {
			n, ok := v.(*SNode)
			return ok && n.Children()[0].(int64) < args[0].(int64)
		},
	}}
	ok, err := second.Matches(env, putsCall(), int64(5), Atom("puts"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Matches(env, putsCall(), int64(1), Atom("puts"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchAscend(t *testing.T) {
	t.Parallel()

	// (block (send nil :each) (args) (int 1))
	leaf := S("int", int64(1))
	send := S("send", nil, Atom("each"))
	S("block", send, S("args"), leaf)

	tests := []struct {
		pattern string
		node    Node
		want    bool
	}{
		{"^block", leaf, true},
		{"^send", leaf, false},
		{"^^block", leaf, false},
		{"(int ^(block (send ...) ...))", leaf, false},
		{"[int ^(block (send ...) ...)]", leaf, true},
		{"^send", send, false},
		{"^block", send, true},
		{"^(block $_ ...)", leaf, true},
		{"(^_ ...)", leaf, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			res, err := MustCompile(tt.pattern).Match(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Matched())
		})
	}

	t.Run("grandparent", func(t *testing.T) {
		inner := S("int", int64(2))
		S("send", S("args", inner))
		res, err := MustCompile("^^send").Match(inner)
		require.NoError(t, err)
		assert.True(t, res.Matched())
	})
}

func TestMatchDispatch(t *testing.T) {
	t.Parallel()

	env := &Env{
		Methods: MethodMap{
			"call_type?": func(v any, _ ...any) any { return v == Atom("send") || v == Atom("csend") },
		},
		Funcs: FuncMap{
			"puts_or": func(v any, args ...any) any { return v == Atom("puts") || v == args[0] },
		},
	}

	tests := []struct {
		name    string
		pattern string
		want    bool
		wantErr error
	}{
		{name: "env method at head", pattern: "(call_type? ...)", want: true},
		{name: "env funcall with arg", pattern: "(send _ #puts_or(:print) _)", want: true},
		{name: "builtin", pattern: "(send _ atom? node?)", want: true},
		{name: "unknown method", pattern: "(send nope? ...)", wantErr: ErrUnknownMethod},
		{name: "unknown func", pattern: "(send #nope ...)", wantErr: ErrUnknownFunc},
		{name: "builtin arity", pattern: "(send _ equal? _)", wantErr: ErrMethodArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := MustCompile(tt.pattern).MatchEnv(env, putsCall())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, res.Matched())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Matched())
		})
	}
}

// callerNode answers predicates itself.
type callerNode struct {
	*SNode
}

func (c callerNode) CallMethod(name string, _ []any) (any, bool) {
	if name == "special?" {
		return true, true
	}
	return nil, false
}

func TestMatchMethodCaller(t *testing.T) {
	t.Parallel()

	node := callerNode{S("sym", Atom("x"))}
	res, err := MustCompile("[special? (sym _)]").Match(node)
	require.NoError(t, err)
	assert.True(t, res.Matched())

	// unknown to the receiver, falls back to builtins
	res, err = MustCompile("[node? !nil?]").Match(node)
	require.NoError(t, err)
	assert.True(t, res.Matched())
}

func TestResultYield(t *testing.T) {
	t.Parallel()

	p := MustCompile("(send $_ $_ _)")

	res, err := p.Match(putsCall())
	require.NoError(t, err)
	got := res.Yield(func(captures ...any) any { return captures[1] })
	assert.Equal(t, Atom("puts"), got)
	assert.NotNil(t, res.Node())

	res, err = p.Match(S("int", int64(1)))
	require.NoError(t, err)
	called := false
	got = res.Yield(func(...any) any { called = true; return nil })
	assert.False(t, called)
	assert.Equal(t, NoMatch, got)
	assert.Empty(t, res.Captures())
	assert.Equal(t, "NoMatch", NoMatch.(interface{ String() string }).String())
}

func TestMatchArgOfAbandonedBranch(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []any
	)
	env := &Env{Funcs: FuncMap{
		"record": func(_ any, args ...any) any {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, args[0])
			return true
		},
	}}
	node := S("send", S("lvar", Atom("a")), Atom("puts"), S("int", int64(1)))

	res, err := MustCompile("{(send _x :nope _) (send _ _ #record(_x))}").MatchEnv(env, node)
	require.NoError(t, err)
	assert.True(t, res.Matched())
	// _x was bound by the first branch only, which failed
	assert.Equal(t, []any{nil}, seen)
}

func TestMatchConcurrent(t *testing.T) {
	t.Parallel()

	p := MustCompile("(send $_x :+ $_x)")
	same := func(name string) *SNode {
		return S("send", S("lvar", Atom(name)), Atom("+"), S("lvar", Atom(name)))
	}
	differ := S("send", S("lvar", Atom("a")), Atom("+"), S("lvar", Atom("b")))

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				name := string(rune('a' + (i+j)%26))
				res, err := p.Match(same(name))
				if err != nil {
					errs <- err
					return
				}
				want := []any{S("lvar", Atom(name)), S("lvar", Atom(name))}
				if !Equal(want, res.Value()) {
					errs <- errors.New("wrong captures for " + name)
					return
				}

				res, err = p.Match(differ)
				if err != nil {
					errs <- err
					return
				}
				if res.Value() != NoMatch {
					errs <- errors.New("unequal children matched")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
