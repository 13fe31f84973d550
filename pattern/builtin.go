package pattern

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/cast"
)

// builtin is a predicate method available on every value.
type builtin struct {
	nargs int // -1 accepts any count
	fn    func(recv any, args []any) any
}

func (b builtin) call(name string, recv any, args []any) any {
	if b.nargs >= 0 && len(args) != b.nargs {
		panic(dispatchError{err: fmt.Errorf("%w: %s takes %d, got %d", ErrMethodArgs, name, b.nargs, len(args))})
	}
	return b.fn(recv, args)
}

var builtins = map[string]builtin{
	"nil?":    {0, func(v any, _ []any) any { return isNil(v) }},
	"true?":   {0, func(v any, _ []any) any { return v == true }},
	"false?":  {0, func(v any, _ []any) any { return v == false }},
	"atom?":   {0, func(v any, _ []any) any { _, ok := v.(Atom); return ok }},
	"string?": {0, func(v any, _ []any) any { _, ok := v.(string); return ok }},
	"node?":   {0, func(v any, _ []any) any { _, ok := asNode(v); return ok }},
	"list?":   {0, func(v any, _ []any) any { _, ok := v.([]any); return ok }},
	"number?": {0, func(v any, _ []any) any { _, ok := toNumber(v); return ok }},
	"integer?": {0, func(v any, _ []any) any {
		n, ok := toNumber(v)
		return ok && !n.isFloat
	}},
	"float?": {0, func(v any, _ []any) any {
		n, ok := toNumber(v)
		return ok && n.isFloat
	}},
	"zero?":     {0, numberTest(func(f float64) bool { return f == 0 })},
	"positive?": {0, numberTest(func(f float64) bool { return f > 0 })},
	"negative?": {0, numberTest(func(f float64) bool { return f < 0 })},
	"odd?":      {0, integerTest(func(i int64) bool { return i%2 != 0 })},
	"even?":     {0, integerTest(func(i int64) bool { return i%2 == 0 })},
	"empty?":    {0, func(v any, _ []any) any { n, ok := length(v); return ok && n == 0 }},

	"equal?": {1, func(v any, args []any) any { return Equal(v, args[0]) }},
	"size?": {1, func(v any, args []any) any {
		n, ok := length(v)
		want, err := cast.ToIntE(args[0])
		return ok && err == nil && n == want
	}},
	"type?": {1, func(v any, args []any) any {
		node, ok := asNode(v)
		return ok && Equal(node.Type(), args[0])
	}},
	"gt?": {1, compare(func(a, b float64) bool { return a > b })},
	"ge?": {1, compare(func(a, b float64) bool { return a >= b })},
	"lt?": {1, compare(func(a, b float64) bool { return a < b })},
	"le?": {1, compare(func(a, b float64) bool { return a <= b })},
	"start_with?": {1, stringTest(strings.HasPrefix)},
	"end_with?":   {1, stringTest(strings.HasSuffix)},
	"include?": {1, func(v any, args []any) any {
		switch x := v.(type) {
		case string, Atom:
			return stringTest(strings.Contains)(x, args)
		case []any:
			return containsValue(x, args[0])
		}
		if node, ok := asNode(v); ok {
			return containsValue(node.Children(), args[0])
		}
		return false
	}},
	"match?": {1, func(v any, args []any) any {
		s, ok := text(v)
		if !ok {
			return false
		}
		re, err := compileRegexp(args[0])
		return err == nil && re.MatchString(s)
	}},
	"in?": {-1, func(v any, args []any) any { return containsValue(args, v) }},
}

func numberTest(test func(float64) bool) func(any, []any) any {
	return func(v any, _ []any) any {
		n, ok := toNumber(v)
		return ok && test(n.float())
	}
}

func integerTest(test func(int64) bool) func(any, []any) any {
	return func(v any, _ []any) any {
		n, ok := toNumber(v)
		return ok && !n.isFloat && test(n.i)
	}
}

// compare converts both sides with cast, so that numeric strings coming
// from configuration compare as numbers.
func compare(test func(a, b float64) bool) func(any, []any) any {
	return func(v any, args []any) any {
		if _, ok := v.(Atom); ok {
			return false
		}
		a, err := cast.ToFloat64E(v)
		if err != nil {
			return false
		}
		b, err := cast.ToFloat64E(args[0])
		if err != nil {
			return false
		}
		return test(a, b)
	}
}

func stringTest(test func(s, affix string) bool) func(any, []any) any {
	return func(v any, args []any) any {
		s, ok := text(v)
		if !ok {
			return false
		}
		affix, ok := text(args[0])
		return ok && test(s, affix)
	}
}

// text returns the textual content of strings and atoms. Atoms are read
// without their leading colon.
func text(v any) (string, bool) {
	switch x := v.(type) {
	case Atom:
		return string(x), true
	case string:
		return x, true
	case nil, Node, []any:
		return "", false
	}
	s, err := cast.ToStringE(v)
	return s, err == nil
}

func length(v any) (int, bool) {
	switch x := v.(type) {
	case string:
		return len(x), true
	case []any:
		return len(x), true
	}
	if node, ok := asNode(v); ok {
		return len(node.Children()), true
	}
	return 0, false
}

func containsValue(values []any, want any) bool {
	for _, v := range values {
		if Equal(v, want) {
			return true
		}
	}
	return false
}

var regexpCache sync.Map // string -> *regexp.Regexp

func compileRegexp(v any) (*regexp.Regexp, error) {
	src, ok := text(v)
	if !ok {
		return nil, fmt.Errorf("not a regexp: %s", formatValue(v))
	}
	if re, ok := regexpCache.Load(src); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	regexpCache.Store(src, re)
	return re, nil
}

// Builtins returns the names of the predicate methods every value answers.
func Builtins() []string {
	return slices.Sorted(maps.Keys(builtins))
}
