package pattern

import (
	"strings"
)

// Sprint renders a node tree as an s-expression, e.g. (send nil :puts (int 1)).
func Sprint(n Node) string {
	if isNil(n) {
		return "nil"
	}
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(string(n.Type()))
	for _, c := range n.Children() {
		sb.WriteString(" ")
		sb.WriteString(formatValue(c))
	}
	sb.WriteString(")")
	return sb.String()
}

// SNode is a plain in-memory Node, handy for building trees by hand.
type SNode struct {
	typ      Atom
	children []any
	parent   *SNode
}

var _ Node = (*SNode)(nil)

// S builds an SNode and adopts the SNode children.
func S(typ string, children ...any) *SNode {
	n := &SNode{typ: Atom(typ), children: children}
	for _, c := range children {
		if child, ok := c.(*SNode); ok && child != nil {
			child.parent = n
		}
	}
	return n
}

func (n *SNode) Type() Atom      { return n.typ }
func (n *SNode) Children() []any { return n.children }

func (n *SNode) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *SNode) String() string { return Sprint(n) }
