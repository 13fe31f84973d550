// Package registry holds named, compiled patterns for a consumer.
//
// A Registry replaces a global namespace of generated matchers: the consumer
// creates one, defines its patterns under names at initialization, and calls
// them by name later. Matchers run the pattern at one node; searches run it
// over a whole tree.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"go.uber.org/zap"

	"github.com/gnolang/nodepat/pattern"
)

var (
	// ErrNotDefined is returned for names that were never defined.
	ErrNotDefined = errors.New("pattern not defined")

	// ErrDuplicate is returned when a name is defined twice.
	ErrDuplicate = errors.New("pattern already defined")
)

// Kind tells matchers and searches apart.
type Kind int

const (
	KindMatcher Kind = iota
	KindSearch
)

func (k Kind) String() string {
	if k == KindSearch {
		return "search"
	}
	return "matcher"
}

// Signature describes the calling shape of a defined pattern.
type Signature struct {
	Name     string
	Kind     Kind
	Pattern  string
	Captures int
	Params   int
}

func (s Signature) String() string {
	return fmt.Sprintf("%s %s(node%s) -> %d captures", s.Kind, s.Name, strings.Repeat(", _", s.Params), s.Captures)
}

type entry struct {
	kind    Kind
	pattern *pattern.Pattern
}

// Registry maps names to compiled patterns. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries *linkedhashmap.Map // name -> entry, in definition order
	env     *pattern.Env
	cache   *pattern.Cache
	logger  *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithFuncs adds owner functions reachable as #name from every pattern.
func WithFuncs(funcs pattern.FuncMap) Option {
	return func(r *Registry) {
		for name, fn := range funcs {
			r.env.Funcs[name] = fn
		}
	}
}

// WithMethods adds predicate methods available on every value.
func WithMethods(methods pattern.MethodMap) Option {
	return func(r *Registry) {
		for name, fn := range methods {
			r.env.Methods[name] = fn
		}
	}
}

// WithCache shares a compile cache between registries.
func WithCache(cache *pattern.Cache) Option {
	return func(r *Registry) {
		r.cache = cache
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		entries: linkedhashmap.New(),
		env: &pattern.Env{
			Funcs:   make(pattern.FuncMap),
			Methods: make(pattern.MethodMap),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = pattern.NewCache()
	}
	return r
}

// DefMatcher compiles src and defines it as a matcher called name.
func (r *Registry) DefMatcher(name, src string) error {
	return r.define(name, src, KindMatcher)
}

// DefSearch compiles src and defines it as a descendant search called name.
// By convention names ending in '?' are used with Any.
func (r *Registry) DefSearch(name, src string) error {
	return r.define(name, src, KindSearch)
}

func (r *Registry) define(name, src string, kind Kind) error {
	if name == "" {
		return errors.New("pattern name must not be empty")
	}

	p, err := r.cache.Compile(src)
	if err != nil {
		return fmt.Errorf("defining %s %q: %w", kind, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.entries.Get(name); found {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.entries.Put(name, entry{kind: kind, pattern: p})

	r.logger.Debug("pattern defined",
		zap.String("name", name),
		zap.Stringer("kind", kind),
		zap.Int("captures", p.NumCaptures()),
		zap.Int("params", p.NumParams()),
	)
	return nil
}

// DefFunc adds or replaces an owner function after construction.
func (r *Registry) DefFunc(name string, fn pattern.Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	funcs := make(pattern.FuncMap, len(r.env.Funcs)+1)
	for k, v := range r.env.Funcs {
		funcs[k] = v
	}
	funcs[name] = fn
	r.env = &pattern.Env{Funcs: funcs, Methods: r.env.Methods}
}

func (r *Registry) lookup(name string) (entry, *pattern.Env, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, found := r.entries.Get(name)
	if !found {
		return entry{}, nil, fmt.Errorf("%w: %s", ErrNotDefined, name)
	}
	return v.(entry), r.env, nil
}

// Match runs the named pattern at node. For searches this tests only node
// itself.
func (r *Registry) Match(name string, node any, params ...any) (pattern.Result, error) {
	e, env, err := r.lookup(name)
	if err != nil {
		return pattern.Result{}, err
	}
	res, err := e.pattern.MatchEnv(env, node, params...)
	if err != nil {
		return pattern.Result{}, fmt.Errorf("%s: %w", name, err)
	}
	return res, nil
}

// Search runs the named pattern over root and its descendants in preorder.
func (r *Registry) Search(name string, root pattern.Node, params ...any) iter.Seq2[pattern.Result, error] {
	e, env, err := r.lookup(name)
	if err != nil {
		return func(yield func(pattern.Result, error) bool) {
			yield(pattern.Result{}, err)
		}
	}
	return e.pattern.Search(env, root, params...)
}

// Any reports whether the named pattern matches root or any descendant. It
// stops at the first hit.
func (r *Registry) Any(name string, root pattern.Node, params ...any) (bool, error) {
	for res, err := range r.Search(name, root, params...) {
		if err != nil {
			return false, err
		}
		if res.Matched() {
			return true, nil
		}
	}
	return false, nil
}

// Lookup returns the compiled pattern defined under name.
func (r *Registry) Lookup(name string) (*pattern.Pattern, bool) {
	e, _, err := r.lookup(name)
	if err != nil {
		return nil, false
	}
	return e.pattern, true
}

// Names returns the defined names in definition order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, r.entries.Size())
	for _, k := range r.entries.Keys() {
		names = append(names, k.(string))
	}
	return names
}

// Signature returns the calling shape of the named pattern, so that callers
// can validate the parameters they are about to pass.
func (r *Registry) Signature(name string) (Signature, error) {
	e, _, err := r.lookup(name)
	if err != nil {
		return Signature{}, err
	}
	return Signature{
		Name:     name,
		Kind:     e.kind,
		Pattern:  e.pattern.String(),
		Captures: e.pattern.NumCaptures(),
		Params:   e.pattern.NumParams(),
	}, nil
}

// Env returns the environment patterns run in.
func (r *Registry) Env() *pattern.Env {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.env
}
