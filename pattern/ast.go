package pattern

import (
	"fmt"
	"strconv"
	"strings"
)

// ExprKind defines the variants of the pattern AST.
type ExprKind int

const (
	ExprNodeMatch ExprKind = iota
	ExprAny
	ExprLiteral
	ExprWildcard
	ExprPredicate
	ExprFuncCall
	ExprNegation
	ExprUnion
	ExprIntersect
	ExprCapture
	ExprRest
	ExprAscend
	ExprParam
)

// Expr is a node of a parsed pattern. Exprs are immutable once the parser
// has built them.
type Expr interface {
	Kind() ExprKind
	String() string // s-expression form, for debugging and tests
	Pos() int       // byte offset of the expression in the pattern
}

var (
	_ Expr = (*NodeMatch)(nil)
	_ Expr = (*Any)(nil)
	_ Expr = (*Literal)(nil)
	_ Expr = (*Wildcard)(nil)
	_ Expr = (*Predicate)(nil)
	_ Expr = (*FuncCall)(nil)
	_ Expr = (*Negation)(nil)
	_ Expr = (*Union)(nil)
	_ Expr = (*Intersect)(nil)
	_ Expr = (*Capture)(nil)
	_ Expr = (*Rest)(nil)
	_ Expr = (*Ascend)(nil)
	_ Expr = (*Param)(nil)
)

// NodeMatch matches a node by its type tag and children. Head is matched
// against the type tag. Before terms anchor to the first children and After
// terms to the last ones. Without a Rest marker the arity is fixed and After
// is empty.
type NodeMatch struct {
	Head   Expr
	Before []Expr
	Rest   *Rest
	After  []Expr
	pos    int
}

func (n *NodeMatch) Kind() ExprKind { return ExprNodeMatch }
func (n *NodeMatch) Pos() int       { return n.pos }

// Variable reports whether the node accepts more children than it has
// fixed terms.
func (n *NodeMatch) Variable() bool { return n.Rest != nil }

// FixedTerms returns the number of child terms other than the rest marker.
func (n *NodeMatch) FixedTerms() int { return len(n.Before) + len(n.After) }

func (n *NodeMatch) String() string {
	parts := []string{"node", n.Head.String()}
	for _, e := range n.Before {
		parts = append(parts, e.String())
	}
	if n.Rest != nil {
		parts = append(parts, n.Rest.String())
	}
	for _, e := range n.After {
		parts = append(parts, e.String())
	}
	return sexp(parts...)
}

// Any matches every value.
type Any struct{ pos int }

func (a *Any) Kind() ExprKind { return ExprAny }
func (a *Any) Pos() int       { return a.pos }
func (a *Any) String() string { return "(any)" }

// Literal matches a value equal to Value, which is an Atom, int64, float64,
// string or nil.
type Literal struct {
	Value any
	pos   int
}

func (l *Literal) Kind() ExprKind { return ExprLiteral }
func (l *Literal) Pos() int       { return l.pos }
func (l *Literal) String() string { return sexp("literal", formatValue(l.Value)) }

// Wildcard is a named unification variable such as _recv. The unnamed
// wildcard parses to Any.
type Wildcard struct {
	Name string
	pos  int
}

func (w *Wildcard) Kind() ExprKind { return ExprWildcard }
func (w *Wildcard) Pos() int       { return w.pos }
func (w *Wildcard) String() string { return sexp("wildcard", w.Name) }

// Predicate calls a method on the matched value.
type Predicate struct {
	Name    string
	Args    []Expr
	HasArgs bool
	pos     int
}

func (p *Predicate) Kind() ExprKind { return ExprPredicate }
func (p *Predicate) Pos() int       { return p.pos }
func (p *Predicate) String() string { return callString("predicate", p.Name, p.Args) }

// FuncCall calls a function of the pattern owner with the matched value.
type FuncCall struct {
	Name    string
	Args    []Expr
	HasArgs bool
	pos     int
}

func (f *FuncCall) Kind() ExprKind { return ExprFuncCall }
func (f *FuncCall) Pos() int       { return f.pos }
func (f *FuncCall) String() string { return callString("funcall", f.Name, f.Args) }

// Negation succeeds when Inner fails.
type Negation struct {
	Inner Expr
	pos   int
}

func (n *Negation) Kind() ExprKind { return ExprNegation }
func (n *Negation) Pos() int       { return n.pos }
func (n *Negation) String() string { return sexp("not", n.Inner.String()) }

// Union succeeds with its first matching alternative.
type Union struct {
	Alts []Expr
	pos  int
}

func (u *Union) Kind() ExprKind { return ExprUnion }
func (u *Union) Pos() int       { return u.pos }
func (u *Union) String() string { return listString("or", u.Alts) }

// Intersect succeeds when all of its members match the same value.
type Intersect struct {
	Members []Expr
	pos     int
}

func (i *Intersect) Kind() ExprKind { return ExprIntersect }
func (i *Intersect) Pos() int       { return i.pos }
func (i *Intersect) String() string { return listString("and", i.Members) }

// Capture records the matched value and then matches Inner.
type Capture struct {
	Inner Expr
	pos   int
}

func (c *Capture) Kind() ExprKind { return ExprCapture }
func (c *Capture) Pos() int       { return c.pos }
func (c *Capture) String() string { return sexp("capture", c.Inner.String()) }

// Rest is the variable-arity marker of a sequence: ... or, with Capture
// set, $... which records the unclaimed children.
type Rest struct {
	Capture bool
	pos     int
}

func (r *Rest) Kind() ExprKind { return ExprRest }
func (r *Rest) Pos() int       { return r.pos }
func (r *Rest) String() string {
	if r.Capture {
		return "(capture-rest)"
	}
	return "(ellipsis)"
}

// Ascend matches Inner against the parent of the value.
type Ascend struct {
	Inner Expr
	pos   int
}

func (a *Ascend) Kind() ExprKind { return ExprAscend }
func (a *Ascend) Pos() int       { return a.pos }
func (a *Ascend) String() string { return sexp("ascend", a.Inner.String()) }

// Param matches a value equal to the Index-th match parameter; %0 is the
// root of the match.
type Param struct {
	Index int
	pos   int
}

func (p *Param) Kind() ExprKind { return ExprParam }
func (p *Param) Pos() int       { return p.pos }
func (p *Param) String() string { return sexp("param", strconv.Itoa(p.Index)) }

func sexp(parts ...string) string {
	return "(" + strings.Join(parts, " ") + ")"
}

func listString(head string, exprs []Expr) string {
	parts := []string{head}
	for _, e := range exprs {
		parts = append(parts, e.String())
	}
	return sexp(parts...)
}

func callString(head, name string, args []Expr) string {
	parts := []string{head, name}
	for _, a := range args {
		parts = append(parts, a.String())
	}
	return sexp(parts...)
}

// formatValue renders a value in pattern literal syntax.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case Atom:
		return x.String()
	case string:
		return strconv.Quote(x)
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case Node:
		return Sprint(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return fmt.Sprint(x)
	}
}
