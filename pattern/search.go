package pattern

import (
	"iter"

	"github.com/emirpasic/gods/stacks/arraystack"
)

// Search applies the pattern to root and to every descendant node in
// depth-first preorder, yielding each match. The sequence is lazy and can
// be ranged over any number of times. A match error ends the sequence after
// it is yielded.
func (p *Pattern) Search(env *Env, root Node, params ...any) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		if err := p.checkParams(params); err != nil {
			yield(Result{}, err)
			return
		}
		if isNil(root) {
			return
		}

		stack := arraystack.New()
		stack.Push(root)
		for !stack.Empty() {
			top, _ := stack.Pop()
			node := top.(Node)

			res, err := p.MatchEnv(env, node, params...)
			if err != nil {
				yield(Result{}, err)
				return
			}
			if res.Matched() && !yield(res, nil) {
				return
			}

			children := node.Children()
			for i := len(children) - 1; i >= 0; i-- {
				if child, ok := asNode(children[i]); ok {
					stack.Push(child)
				}
			}
		}
	}
}

// Find returns the first match of a preorder search, or a failed Result
// when nothing matches.
func (p *Pattern) Find(env *Env, root Node, params ...any) (Result, error) {
	for res, err := range p.Search(env, root, params...) {
		return res, err
	}
	return Result{}, nil
}

// Hit is the value a descendant search yields for a match: the captures
// collapsed as by Value, or the matched node when the pattern captures
// nothing.
func (r Result) Hit() any {
	if r.matched && len(r.captures) == 0 {
		return r.node
	}
	return r.Value()
}
