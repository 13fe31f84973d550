/*
Package pattern implements NodePattern, a small language describing the shape
of tree-structured data such as syntax trees.

# Overview

A pattern string is compiled once into a *Pattern and then matched against
many candidate nodes. Matching tests the node's type tag and children,
optionally consults predicates and owner functions, and extracts captures.

	p := pattern.MustCompile(`(send nil? :puts $_)`)
	res, err := p.Match(node)
	if err == nil && res.Matched() {
		fmt.Println(res.Captures()[0])
	}

The pipeline is Lex -> Parse -> Compile. The lexer is a lexmachine DFA, the
parser builds an Expr tree and the compiler turns that tree into closures.
Nothing is parsed or generated at match time.

# Syntax

	(type a b)     node with type tag :type and exactly two children
	(type a ...)   at least one child; ... accepts the rest
	(type $... b)  capture the unclaimed middle children as a list
	type           shorthand for (type ...)
	_              any value
	_name          unification: every use must see an equal value
	nil            the nil literal (at a sequence head: a node typed nil)
	:sym 1 2.5 "s" atom, integer, float and string literals
	$expr          capture what expr matched
	!expr          negation
	{a b c}        union, first alternative that matches
	[a b c]        intersection, all must match
	^expr          match expr against the parent node
	name?          predicate method, name?(args) with arguments
	#name          owner function, #name(args) with arguments
	%1 %2 %        positional parameters, % is %1; %0 is the match root

At the head of a sequence leaf expressions look at the type tag instead of
the node, so (_ ...) matches any node and ({send csend} ...) matches either
type.

# Captures

Captures are numbered in the order their $ appears in the pattern text. A
successful Result collapses them by Value: true without captures, the value
itself for one capture, the list otherwise. Every alternative of a union must
capture the same number of values.

# Nodes

Trees are consumed through the Node interface only. Nodes may implement
MethodCaller to answer predicates, and Equaler to customize equality.
Predicates not answered by the node are looked up in Env.Methods and then in
the builtins (nil?, odd?, start_with?, ...). Funcalls are looked up in
Env.Funcs. A name that resolves nowhere is reported as an error from Match,
never as a failed match.

# Search

Search walks a tree in depth-first preorder and yields every matching node as
an iter.Seq2. Cache shares compiled patterns between callers.
*/
package pattern
