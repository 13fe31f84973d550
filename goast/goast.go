// Package goast exposes go/ast syntax trees as pattern nodes.
//
// Every go/ast node becomes a Node tagged with its struct name (CallExpr,
// Ident, ...). Its children are the exported fields in declaration order,
// minus positions, comments and resolver objects:
//
//	x.Foo(1)  =>  (CallExpr (SelectorExpr (Ident :x) (Ident :Foo)) (List (BasicLit :INT 1)))
//
// Slices become synthetic List nodes so that arity stays fixed, tokens
// become atoms (:+, :=, :INT) and literal values are decoded.
package goast

import (
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"math"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnolang/nodepat/pattern"
)

// ListType is the type tag of the synthetic nodes built for slice fields.
const ListType pattern.Atom = "List"

// Node wraps one go/ast node, or a field slice, as a pattern.Node.
type Node struct {
	typ      pattern.Atom
	children []any
	parent   *Node
	node     ast.Node // nil for List nodes
	fset     *token.FileSet
	pos, end token.Pos
}

var (
	_ pattern.Node         = (*Node)(nil)
	_ pattern.MethodCaller = (*Node)(nil)
)

// ParseSource parses a Go file and converts it.
func ParseSource(filename string, src []byte) (*Node, *token.FileSet, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, nil, err
	}
	return FromFile(fset, f), fset, nil
}

// FromFile converts a parsed file.
func FromFile(fset *token.FileSet, f *ast.File) *Node {
	return From(fset, f)
}

// From converts any go/ast node. The result is a root: its Parent is nil.
func From(fset *token.FileSet, n ast.Node) *Node {
	if n == nil || reflect.ValueOf(n).IsNil() {
		return nil
	}
	c := converter{fset: fset}
	return c.node(n, nil)
}

type converter struct {
	fset *token.FileSet
}

var (
	posType       = reflect.TypeOf(token.NoPos)
	tokenType     = reflect.TypeOf(token.ILLEGAL)
	objectType    = reflect.TypeOf((*ast.Object)(nil))
	scopeType     = reflect.TypeOf((*ast.Scope)(nil))
	commentsType  = reflect.TypeOf((*ast.CommentGroup)(nil))
	fileType      = reflect.TypeOf(ast.File{})
	skippedFields = map[reflect.Type]map[string]bool{
		fileType: {"Imports": true, "Unresolved": true, "Comments": true, "GoVersion": true},
	}
)

func skipField(owner reflect.Type, f reflect.StructField) bool {
	if !f.IsExported() {
		return true
	}
	switch f.Type {
	case posType, objectType, scopeType, commentsType:
		return true
	}
	return skippedFields[owner][f.Name]
}

func (c *converter) node(n ast.Node, parent *Node) *Node {
	out := &Node{
		typ:    pattern.Atom(reflect.TypeOf(n).Elem().Name()),
		parent: parent,
		node:   n,
		fset:   c.fset,
		pos:    n.Pos(),
		end:    n.End(),
	}

	switch x := n.(type) {
	case *ast.Ident:
		out.children = []any{pattern.Atom(x.Name)}
		return out
	case *ast.BasicLit:
		out.children = []any{pattern.Atom(x.Kind.String()), literalValue(x)}
		return out
	}

	rv := reflect.ValueOf(n).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		if skipField(rt, rt.Field(i)) {
			continue
		}
		out.children = append(out.children, c.value(rv.Field(i), out))
	}
	return out
}

func (c *converter) value(v reflect.Value, parent *Node) any {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if n, ok := v.Interface().(ast.Node); ok {
			return c.node(n, parent)
		}
		return nil
	case reflect.Slice:
		return c.list(v, parent)
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Type() == tokenType {
			return pattern.Atom(token.Token(v.Int()).String())
		}
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := v.Uint(); u > math.MaxInt64 {
			return u
		}
		return int64(v.Uint())
	}
	return nil
}

func (c *converter) list(v reflect.Value, parent *Node) *Node {
	out := &Node{
		typ:    ListType,
		parent: parent,
		fset:   c.fset,
	}
	if parent != nil {
		out.pos, out.end = parent.pos, parent.end
	}

	out.children = make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		child := c.value(v.Index(i), out)
		out.children = append(out.children, child)
		if n, ok := child.(*Node); ok {
			if i == 0 {
				out.pos = n.pos
			}
			out.end = n.end
		}
	}
	return out
}

// literalValue decodes a literal the way the compiler would, falling back
// to the source text when it does not parse.
func literalValue(lit *ast.BasicLit) any {
	switch lit.Kind {
	case token.INT:
		if i, err := strconv.ParseInt(lit.Value, 0, 64); err == nil {
			return i
		}
	case token.FLOAT:
		if f, err := strconv.ParseFloat(lit.Value, 64); err == nil {
			return f
		}
	case token.STRING, token.CHAR:
		if s, err := strconv.Unquote(lit.Value); err == nil {
			return s
		}
	}
	return lit.Value
}

func (n *Node) Type() pattern.Atom { return n.typ }
func (n *Node) Children() []any    { return n.children }

func (n *Node) Parent() pattern.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// AST returns the wrapped go/ast node, or nil for List nodes.
func (n *Node) AST() ast.Node { return n.node }

// Pos returns the start position of the node.
func (n *Node) Pos() token.Position { return n.position(n.pos) }

// End returns the position right after the node.
func (n *Node) End() token.Position { return n.position(n.end) }

func (n *Node) position(p token.Pos) token.Position {
	if n.fset == nil || !p.IsValid() {
		return token.Position{}
	}
	return n.fset.Position(p)
}

// Describe returns a human readable name for the node kind, such as
// "function call" or "identifier".
func (n *Node) Describe() string {
	if n.node == nil {
		return "list"
	}
	return astutil.NodeDescription(n.node)
}

func (n *Node) String() string { return pattern.Sprint(n) }

// Source prints the node back as Go source. List nodes print their elements
// separated by ", ".
func (n *Node) Source() string {
	if n.node == nil {
		parts := make([]string, 0, len(n.children))
		for _, c := range n.children {
			if child, ok := c.(*Node); ok && child != nil {
				parts = append(parts, child.Source())
			}
		}
		return strings.Join(parts, ", ")
	}

	fset := n.fset
	if fset == nil {
		fset = token.NewFileSet()
	}
	var sb strings.Builder
	if err := printer.Fprint(&sb, fset, n.node); err != nil {
		return n.String()
	}
	return sb.String()
}

// Walk calls fn for n and every descendant Node in preorder until fn
// returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if child, ok := c.(*Node); ok && child != nil {
			if !child.Walk(fn) {
				return false
			}
		}
	}
	return true
}
