package pattern

import (
	"math"
	"reflect"
)

// Atom is an interned name: a node type tag, an operator or a symbol
// literal such as :foo.
type Atom string

func (a Atom) String() string { return ":" + string(a) }

// Node is the capability a tree node must offer to be matched.
//
// Children may hold nested Nodes as well as plain values (Atom, integers,
// floats, strings, nil). Parent returns nil for a root node.
type Node interface {
	Type() Atom
	Children() []any
	Parent() Node
}

// MethodCaller is implemented by values that answer predicate calls
// themselves. ok is false when the method is unknown to the receiver.
type MethodCaller interface {
	CallMethod(name string, args []any) (result any, ok bool)
}

// Equaler overrides structural equality for a value.
type Equaler interface {
	Equal(other any) bool
}

// Equal reports whether a and b are structurally equal: nodes compare by
// type tag and children, numbers compare by numeric value across integer
// and float types, slices compare element-wise.
func Equal(a, b any) bool {
	if an, bn := isNil(a), isNil(b); an || bn {
		return an && bn
	}
	if eq, ok := a.(Equaler); ok {
		return eq.Equal(b)
	}

	if an, ok := a.(Node); ok {
		bn, ok := b.(Node)
		if !ok {
			return false
		}
		return equalNodes(an, bn)
	}
	if _, ok := b.(Node); ok {
		return false
	}

	if x, xok := toNumber(a); xok {
		y, yok := toNumber(b)
		return yok && x.equal(y)
	}

	switch av := a.(type) {
	case Atom:
		bv, ok := b.(Atom)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		return ok && equalSlices(av, bv)
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func equalNodes(a, b Node) bool {
	if reflect.TypeOf(a).Comparable() && a == b {
		return true
	}
	if a.Type() != b.Type() {
		return false
	}
	return equalSlices(a.Children(), b.Children())
}

func equalSlices(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// isNil treats typed nil pointers, maps and slices like an untyped nil, so
// that an absent child compares equal to the nil literal.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// number is a normalized numeric value.
type number struct {
	i       int64
	f       float64
	isFloat bool
}

func (n number) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func (n number) equal(o number) bool {
	if !n.isFloat && !o.isFloat {
		return n.i == o.i
	}
	return n.float() == o.float()
}

func toNumber(v any) (number, bool) {
	switch x := v.(type) {
	case int:
		return number{i: int64(x)}, true
	case int8:
		return number{i: int64(x)}, true
	case int16:
		return number{i: int64(x)}, true
	case int32:
		return number{i: int64(x)}, true
	case int64:
		return number{i: x}, true
	case uint:
		return unsigned(uint64(x)), true
	case uint8:
		return number{i: int64(x)}, true
	case uint16:
		return number{i: int64(x)}, true
	case uint32:
		return number{i: int64(x)}, true
	case uint64:
		return unsigned(x), true
	case float32:
		return number{f: float64(x), isFloat: true}, true
	case float64:
		return number{f: x, isFloat: true}, true
	}
	return number{}, false
}

// unsigned keeps values above MaxInt64 from wrapping to negative integers.
func unsigned(x uint64) number {
	if x > math.MaxInt64 {
		return number{f: float64(x), isFloat: true}
	}
	return number{i: int64(x)}
}

// Truthy reports whether a predicate or funcall result counts as success:
// everything except nil and false.
func Truthy(v any) bool {
	if isNil(v) {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// typeOf returns the type tag of v, or nil when v is not a Node.
func typeOf(v any) any {
	if n, ok := asNode(v); ok {
		return n.Type()
	}
	return nil
}

// asNode unwraps v as a Node, rejecting typed nil pointers.
func asNode(v any) (Node, bool) {
	n, ok := v.(Node)
	if !ok || isNil(n) {
		return nil, false
	}
	return n, true
}
