package internal

import (
	"bytes"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/gnolang/nodepat/goast"
	"github.com/gnolang/nodepat/internal/nolint"
	tt "github.com/gnolang/nodepat/internal/types"
	"github.com/gnolang/nodepat/pattern"
	"github.com/gnolang/nodepat/registry"
)

// Engine manages the linting process.
type Engine struct {
	fs           afero.Fs
	logger       *zap.Logger
	patternCache *pattern.Cache
	registry     *registry.Registry
	cache        *Cache
	rules        []*patternRule

	mu           sync.RWMutex
	ignoredRules map[string]bool
	ignoredPaths []string

	watchState
}

// patternRule is one configured rule, compiled and ready to run.
type patternRule struct {
	name    string
	config  tt.ConfigRule
	params  []any
	message *template.Template
}

// messageData is what rule message templates are rendered with.
type messageData struct {
	Rule     string
	Captures []string
	Node     string
	Kind     string
}

// Option configures an Engine.
type Option func(*Engine)

// WithFs makes the engine read files from fs instead of the OS.
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) {
		e.fs = fs
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCache reuses results for files whose content did not change.
func WithCache(cache *Cache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithPatternCache shares compiled patterns with other engines.
func WithPatternCache(cache *pattern.Cache) Option {
	return func(e *Engine) {
		e.patternCache = cache
	}
}

// NewEngine compiles every rule. A rule with severity off is skipped.
func NewEngine(rules map[string]tt.ConfigRule, opts ...Option) (*Engine, error) {
	e := &Engine{
		fs:           afero.NewOsFs(),
		logger:       zap.NewNop(),
		ignoredRules: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = registry.New(registry.WithCache(e.patternCache), registry.WithLogger(e.logger))

	if err := e.applyRules(rules); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) applyRules(rules map[string]tt.ConfigRule) error {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := rules[name]
		if cfg.Severity == tt.SeverityOff {
			e.logger.Debug("rule disabled", zap.String("rule", name))
			continue
		}
		rule, err := e.compileRule(name, cfg)
		if err != nil {
			return fmt.Errorf("rule %s: %w", name, err)
		}
		e.rules = append(e.rules, rule)
	}
	return nil
}

func (e *Engine) compileRule(name string, cfg tt.ConfigRule) (*patternRule, error) {
	if strings.TrimSpace(cfg.Pattern) == "" {
		return nil, errors.New("missing pattern")
	}
	if err := e.registry.DefSearch(name, cfg.Pattern); err != nil {
		return nil, err
	}

	params := make([]any, 0, len(cfg.Params))
	for _, text := range cfg.Params {
		v, err := pattern.ParseLiteral(text)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", text, err)
		}
		params = append(params, v)
	}
	sig, err := e.registry.Signature(name)
	if err != nil {
		return nil, err
	}
	if sig.Params != len(params) {
		return nil, fmt.Errorf("%w: pattern takes %d, configured %d", pattern.ErrParamCount, sig.Params, len(params))
	}

	msg := cfg.Message
	if msg == "" {
		msg = name
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(msg)
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}

	return &patternRule{name: name, config: cfg, params: params, message: tmpl}, nil
}

// Rules returns the names of the active rules, sorted.
func (e *Engine) Rules() []string {
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.name)
	}
	return names
}

// Run applies all lint rules to the given file and returns a slice of Issues.
func (e *Engine) Run(filename string) ([]tt.Issue, error) {
	if e.isIgnoredPath(filename) {
		return nil, nil
	}

	source, err := afero.ReadFile(e.fs, filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if e.cache != nil {
		if issues, ok := e.cache.Get(filename, source); ok {
			e.logger.Debug("cache hit", zap.String("file", filename))
			return e.filterIgnoredRules(issues), nil
		}
	}

	issues, err := e.run(filename, source)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(filename, source, issues); err != nil {
			e.logger.Warn("failed to update cache", zap.String("file", filename), zap.Error(err))
		}
	}
	return e.filterIgnoredRules(issues), nil
}

// RunSource applies all lint rules to the given source and returns a slice of Issues.
func (e *Engine) RunSource(source []byte) ([]tt.Issue, error) {
	issues, err := e.run("", source)
	if err != nil {
		return nil, err
	}
	return e.filterIgnoredRules(issues), nil
}

// run lints one file with every rule, ignored ones included, so that cached
// results stay valid when the ignore list changes.
func (e *Engine) run(filename string, source []byte) ([]tt.Issue, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, source, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("error parsing file: %w", err)
	}

	root := goast.FromFile(fset, file)
	nolintMgr := nolint.ParseComments(file, fset)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		allIssues []tt.Issue
		errs      []error
	)
	for _, rule := range e.rules {
		wg.Add(1)
		go func(r *patternRule) {
			defer wg.Done()

			issues, err := e.check(r, filename, root)
			if err != nil {
				e.logger.Error("rule failed", zap.String("rule", r.name), zap.String("file", filename), zap.Error(err))
			}
			issues = filterNolintIssues(nolintMgr, issues)

			mu.Lock()
			defer mu.Unlock()
			allIssues = append(allIssues, issues...)
			if err != nil {
				errs = append(errs, fmt.Errorf("rule %s: %w", r.name, err))
			}
		}(rule)
	}
	wg.Wait()

	sortIssues(allIssues)
	return allIssues, errors.Join(errs...)
}

// check runs one rule over the whole file.
func (e *Engine) check(r *patternRule, filename string, root *goast.Node) ([]tt.Issue, error) {
	var issues []tt.Issue
	for res, err := range e.registry.Search(r.name, root, r.params...) {
		if err != nil {
			return issues, err
		}
		node, ok := res.Node().(*goast.Node)
		if !ok {
			continue
		}
		msg, err := r.render(res, node)
		if err != nil {
			return issues, err
		}

		start, end := node.Pos(), node.End()
		start.Filename, end.Filename = filename, filename
		issues = append(issues, tt.Issue{
			Rule:       r.name,
			Category:   r.config.Category,
			Filename:   filename,
			Message:    msg,
			Suggestion: r.config.Suggestion,
			Note:       r.config.Note,
			Severity:   r.config.Severity,
			Start:      start,
			End:        end,
		})
	}
	return issues, nil
}

func (r *patternRule) render(res pattern.Result, node *goast.Node) (string, error) {
	data := messageData{
		Rule: r.name,
		Node: node.Source(),
		Kind: node.Describe(),
	}
	for _, c := range res.Captures() {
		data.Captures = append(data.Captures, DisplayValue(c))
	}

	var buf bytes.Buffer
	if err := r.message.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering message: %w", err)
	}
	return buf.String(), nil
}

// DisplayValue renders a captured value the way it reads in Go source.
func DisplayValue(v any) string {
	switch x := v.(type) {
	case *goast.Node:
		if x == nil {
			return "nil"
		}
		return x.Source()
	case pattern.Atom:
		return string(x)
	case []any:
		parts := make([]string, len(x))
		for i, c := range x {
			parts[i] = DisplayValue(c)
		}
		return strings.Join(parts, ", ")
	case nil:
		return "nil"
	}
	return fmt.Sprint(v)
}

func (e *Engine) IgnoreRule(rule string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ignoredRules[rule] = true
}

// IgnorePath excludes files matching a glob, or any file below a directory.
func (e *Engine) IgnorePath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ignoredPaths = append(e.ignoredPaths, filepath.Clean(path))
}

func (e *Engine) isIgnoredPath(filename string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	filename = filepath.Clean(filename)
	for _, p := range e.ignoredPaths {
		if ok, _ := filepath.Match(p, filename); ok {
			return true
		}
		if ok, _ := filepath.Match(p, filepath.Base(filename)); ok {
			return true
		}
		if strings.HasPrefix(filename, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (e *Engine) filterIgnoredRules(issues []tt.Issue) []tt.Issue {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.ignoredRules) == 0 {
		return issues
	}
	return slices.DeleteFunc(slices.Clone(issues), func(issue tt.Issue) bool {
		return e.ignoredRules[issue.Rule]
	})
}

// filterNolintIssues filters issues based on nolint comments.
func filterNolintIssues(mgr *nolint.Manager, issues []tt.Issue) []tt.Issue {
	if mgr == nil {
		return issues
	}
	filtered := make([]tt.Issue, 0, len(issues))
	for _, issue := range issues {
		if !mgr.IsNolint(issue.Start, issue.Rule) {
			filtered = append(filtered, issue)
		}
	}
	return filtered
}

func sortIssues(issues []tt.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Start.Offset != b.Start.Offset {
			return a.Start.Offset < b.Start.Offset
		}
		return a.Rule < b.Rule
	})
}
