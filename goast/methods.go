package goast

import (
	"go/ast"
	"reflect"

	"github.com/gnolang/nodepat/pattern"
)

// CallMethod answers the Go specific predicates. Unknown names fall through
// to the pattern builtins.
func (n *Node) CallMethod(name string, args []any) (any, bool) {
	switch name {
	case "exported?":
		ident := n.name()
		return ident != nil && ast.IsExported(ident.Name), true
	case "blank?":
		ident := n.name()
		return ident != nil && ident.Name == "_", true
	case "expr?":
		_, ok := n.node.(ast.Expr)
		return ok, true
	case "stmt?":
		_, ok := n.node.(ast.Stmt)
		return ok, true
	case "decl?":
		_, ok := n.node.(ast.Decl)
		return ok, true
	case "spec?":
		_, ok := n.node.(ast.Spec)
		return ok, true
	case "list?":
		return n.typ == ListType, true
	case "name?":
		if len(args) != 1 {
			return nil, false
		}
		ident := n.name()
		return ident != nil && pattern.Equal(pattern.Atom(ident.Name), toAtom(args[0])), true
	case "arity?":
		if len(args) != 1 {
			return nil, false
		}
		return pattern.Equal(int64(len(n.children)), args[0]), true
	}
	return nil, false
}

// name returns the identifier naming the node: the node itself for an
// Ident, otherwise its Name field (FuncDecl, TypeSpec, File, ...).
func (n *Node) name() *ast.Ident {
	if n.node == nil {
		return nil
	}
	if ident, ok := n.node.(*ast.Ident); ok {
		return ident
	}

	rv := reflect.ValueOf(n.node).Elem()
	f := rv.FieldByName("Name")
	if !f.IsValid() {
		return nil
	}
	ident, _ := f.Interface().(*ast.Ident)
	return ident
}

func toAtom(v any) any {
	if s, ok := v.(string); ok {
		return pattern.Atom(s)
	}
	return v
}
