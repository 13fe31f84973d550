package pattern

// matchFunc tests one value against a compiled sub-pattern.
type matchFunc func(st *state, v any) bool

// argFunc evaluates a predicate or funcall argument.
type argFunc func(st *state) any

// compiler threads the slot counters through one walk of the pattern AST.
type compiler struct {
	src      string
	captures int            // next free capture slot
	unify    map[string]int // named wildcard -> unification slot
	maxParam int            // highest %N seen
}

// Compile parses and compiles a pattern string.
func Compile(src string) (*Pattern, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, err
	}

	c := &compiler{
		src:   src,
		unify: make(map[string]int),
	}
	fn, err := c.compile(expr, false)
	if err != nil {
		return nil, err
	}

	return &Pattern{
		src:        src,
		expr:       expr,
		match:      fn,
		captures:   c.captures,
		maxParam:   c.maxParam,
		unifySlots: len(c.unify),
	}, nil
}

// MustCompile is like Compile but panics if the pattern is invalid. It is
// meant for patterns fixed at program start.
func MustCompile(src string) *Pattern {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// compile emits the matcher for e. In head mode leaf expressions look at
// the type tag of the value instead of the value itself.
func (c *compiler) compile(e Expr, head bool) (matchFunc, error) {
	switch e := e.(type) {
	case *NodeMatch:
		return c.compileNode(e)
	case *Any:
		return func(*state, any) bool { return true }, nil
	case *Literal:
		return c.compileLiteral(e, head), nil
	case *Wildcard:
		return c.compileWildcard(e, head), nil
	case *Predicate:
		return c.compilePredicate(e, head)
	case *FuncCall:
		return c.compileFuncall(e, head)
	case *Negation:
		return c.compileNegation(e, head)
	case *Union:
		return c.compileUnion(e, head)
	case *Intersect:
		return c.compileIntersect(e, head)
	case *Capture:
		return c.compileCapture(e, head)
	case *Ascend:
		return c.compileAscend(e, head)
	case *Param:
		return c.compileParam(e, head), nil
	case *Rest:
		return nil, newError(c.src, e.Pos(), "%s in invalid position", e.String())
	}
	return nil, newError(c.src, e.Pos(), "unsupported expression %s", e.String())
}

// observe returns what a leaf expression compares: the value, or its type
// tag at a sequence head.
func observe(v any, head bool) any {
	if head {
		return typeOf(v)
	}
	return v
}

func (c *compiler) compileNode(n *NodeMatch) (matchFunc, error) {
	headFn, err := c.compile(n.Head, true)
	if err != nil {
		return nil, err
	}
	before, err := c.compileAll(n.Before)
	if err != nil {
		return nil, err
	}

	variable := n.Variable()
	restSlot := -1
	if variable && n.Rest.Capture {
		restSlot = c.nextCapture()
	}

	after, err := c.compileAll(n.After)
	if err != nil {
		return nil, err
	}
	fixed := n.FixedTerms()

	return func(st *state, v any) bool {
		node, ok := asNode(v)
		if !ok || !headFn(st, node) {
			return false
		}

		children := node.Children()
		if variable {
			if len(children) < fixed {
				return false
			}
		} else if len(children) != fixed {
			return false
		}

		for i, fn := range before {
			if !fn(st, children[i]) {
				return false
			}
		}
		tail := len(children) - len(after)
		if restSlot >= 0 {
			rest := make([]any, tail-len(before))
			copy(rest, children[len(before):tail])
			st.captures[restSlot] = rest
		}
		for i, fn := range after {
			if !fn(st, children[tail+i]) {
				return false
			}
		}
		return true
	}, nil
}

func (c *compiler) compileAll(exprs []Expr) ([]matchFunc, error) {
	fns := make([]matchFunc, 0, len(exprs))
	for _, e := range exprs {
		fn, err := c.compile(e, false)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func (c *compiler) compileLiteral(l *Literal, head bool) matchFunc {
	want := l.Value
	return func(_ *state, v any) bool {
		return Equal(observe(v, head), want)
	}
}

// compileWildcard emits a unification variable. The first binding at run
// time records the value; later occurrences compare against it.
func (c *compiler) compileWildcard(w *Wildcard, head bool) matchFunc {
	slot, seen := c.unify[w.Name]
	if !seen {
		slot = len(c.unify)
		c.unify[w.Name] = slot
	}

	return func(st *state, v any) bool {
		got := observe(v, head)
		if !st.bound[slot] {
			st.unify[slot] = got
			st.bound[slot] = true
			return true
		}
		return Equal(st.unify[slot], got)
	}
}

func (c *compiler) compilePredicate(p *Predicate, head bool) (matchFunc, error) {
	args, err := c.compileArgs(p.Args)
	if err != nil {
		return nil, err
	}
	name := p.Name

	return func(st *state, v any) bool {
		return Truthy(st.callMethod(name, observe(v, head), evalArgs(st, args)))
	}, nil
}

func (c *compiler) compileFuncall(f *FuncCall, head bool) (matchFunc, error) {
	args, err := c.compileArgs(f.Args)
	if err != nil {
		return nil, err
	}
	name := f.Name

	return func(st *state, v any) bool {
		return Truthy(st.callFunc(name, observe(v, head), evalArgs(st, args)))
	}, nil
}

func (c *compiler) compileArgs(args []Expr) ([]argFunc, error) {
	fns := make([]argFunc, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case *Wildcard:
			slot, ok := c.unify[a.Name]
			if !ok {
				return nil, newError(c.src, a.Pos(), "invalid in arglist: _%s", a.Name)
			}
			fns = append(fns, func(st *state) any {
				if !st.bound[slot] {
					return nil
				}
				return st.unify[slot]
			})
		case *Literal:
			value := a.Value
			fns = append(fns, func(*state) any { return value })
		case *Param:
			index := c.useParam(a.Index)
			fns = append(fns, func(st *state) any { return st.params[index] })
		default:
			return nil, newError(c.src, arg.Pos(), "invalid in arglist: %s", arg.String())
		}
	}
	return fns, nil
}

func evalArgs(st *state, args []argFunc) []any {
	if len(args) == 0 {
		return nil
	}
	values := make([]any, len(args))
	for i, fn := range args {
		values[i] = fn(st)
	}
	return values
}

func (c *compiler) compileNegation(n *Negation, head bool) (matchFunc, error) {
	inner, err := c.compile(n.Inner, head)
	if err != nil {
		return nil, err
	}
	// Bindings made by inner stay, whatever the outcome: in (send !!_x _x)
	// both children must be equal.
	return func(st *state, v any) bool {
		return !inner(st, v)
	}, nil
}

// compileUnion requires every alternative to fill the same capture slots,
// since only one of them can match.
func (c *compiler) compileUnion(u *Union, head bool) (matchFunc, error) {
	start := c.captures
	alts := make([]matchFunc, 0, len(u.Alts))
	end := -1

	for _, alt := range u.Alts {
		c.captures = start
		fn, err := c.compile(alt, head)
		if err != nil {
			return nil, err
		}
		if end >= 0 && c.captures != end {
			return nil, newError(c.src, u.Pos(), "each branch of {} must have same # of captures")
		}
		end = c.captures
		alts = append(alts, fn)
	}

	return func(st *state, v any) bool {
		for _, fn := range alts {
			mark := st.mark()
			if fn(st, v) {
				return true
			}
			st.reset(mark)
		}
		return false
	}, nil
}

func (c *compiler) compileIntersect(i *Intersect, head bool) (matchFunc, error) {
	members := make([]matchFunc, 0, len(i.Members))
	for _, m := range i.Members {
		fn, err := c.compile(m, head)
		if err != nil {
			return nil, err
		}
		members = append(members, fn)
	}

	return func(st *state, v any) bool {
		for _, fn := range members {
			if !fn(st, v) {
				return false
			}
		}
		return true
	}, nil
}

// compileCapture takes its slot before compiling the inner expression so
// that slots follow the preorder of the pattern text.
func (c *compiler) compileCapture(cp *Capture, head bool) (matchFunc, error) {
	slot := c.nextCapture()
	inner, err := c.compile(cp.Inner, head)
	if err != nil {
		return nil, err
	}
	return func(st *state, v any) bool {
		st.captures[slot] = observe(v, head)
		return inner(st, v)
	}, nil
}

func (c *compiler) compileAscend(a *Ascend, head bool) (matchFunc, error) {
	inner, err := c.compile(a.Inner, head)
	if err != nil {
		return nil, err
	}
	return func(st *state, v any) bool {
		node, ok := asNode(v)
		if !ok {
			return false
		}
		parent := node.Parent()
		if isNil(parent) {
			return false
		}
		return inner(st, parent)
	}, nil
}

func (c *compiler) compileParam(p *Param, head bool) matchFunc {
	index := c.useParam(p.Index)
	return func(st *state, v any) bool {
		return Equal(observe(v, head), st.params[index])
	}
}

func (c *compiler) nextCapture() int {
	slot := c.captures
	c.captures++
	return slot
}

func (c *compiler) useParam(index int) int {
	if index > c.maxParam {
		c.maxParam = index
	}
	return index
}
