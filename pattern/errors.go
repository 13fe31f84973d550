package pattern

import (
	"errors"
	"fmt"
)

// Error is returned for every pattern that fails to compile, whether the
// lexer, the parser or the compiler rejected it.
type Error struct {
	Msg     string // the reason
	Pattern string // the offending pattern text
	Pos     int    // byte offset of the problem, -1 if unknown
}

func (e *Error) Error() string {
	return fmt.Sprintf("couldn't compile due to %s. Pattern: %s", e.Msg, e.Pattern)
}

func newError(src string, pos int, format string, args ...any) *Error {
	return &Error{
		Msg:     fmt.Sprintf(format, args...),
		Pattern: src,
		Pos:     pos,
	}
}

var (
	// ErrParamCount is returned when a match is invoked with a number of
	// parameters different from the pattern's NumParams.
	ErrParamCount = errors.New("wrong number of pattern parameters")

	// ErrUnknownMethod is returned when a predicate names a method that
	// neither the receiver, the environment nor the builtins provide.
	ErrUnknownMethod = errors.New("unknown predicate method")

	// ErrUnknownFunc is returned when a funcall names a function missing
	// from the environment.
	ErrUnknownFunc = errors.New("unknown pattern function")

	// ErrMethodArgs is returned when a builtin predicate gets the wrong
	// number of arguments.
	ErrMethodArgs = errors.New("wrong number of predicate arguments")
)

// dispatchError aborts a running match. It is raised with panic deep in the
// closure tree and recovered at the match entry point.
type dispatchError struct {
	err error
}

func raiseDispatch(kind error, name string, recv any) {
	panic(dispatchError{err: fmt.Errorf("%w %q for %s", kind, name, describeValue(recv))})
}

// describeValue renders a value for error messages without printing whole
// subtrees.
func describeValue(v any) string {
	if n, ok := asNode(v); ok {
		return fmt.Sprintf("(%s ...)", string(n.Type()))
	}
	return formatValue(v)
}
