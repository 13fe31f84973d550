// Package nolint finds //nolint directives in Go files and answers whether
// an issue at a given position is suppressed.
//
// A directive is either "//nolint", which suppresses every rule, or
// "//nolint:rule1,rule2". Anything after a following " //" is an
// explanation and is ignored. The range a directive covers depends on where
// it sits:
//
//   - above the package clause: the whole file
//   - in the doc comment of a declaration or spec: that declaration
//   - at the end of a line holding a statement: that statement
//   - on its own line right above a statement: the comment line and the statement
//   - anywhere else: the comment line only
package nolint

import (
	"errors"
	"go/ast"
	"go/token"
	"strings"
)

const directive = "//nolint"

var (
	errNotDirective = errors.New("not a nolint directive")
	errNoRules      = errors.New("no rules specified after colon")
)

// Manager holds the suppressed line ranges of one or more files.
type Manager struct {
	// scopes maps filename to the ranges found in that file.
	scopes map[string][]scope
}

type scope struct {
	rules    map[string]struct{} // empty means every rule
	from, to int                 // lines, inclusive
}

func (s scope) covers(line int, rule string) bool {
	if line < s.from || line > s.to {
		return false
	}
	if len(s.rules) == 0 {
		return true
	}
	_, ok := s.rules[rule]
	return ok
}

// ParseComments collects the directives of f. Malformed directives are
// ignored.
func ParseComments(f *ast.File, fset *token.FileSet) *Manager {
	m := &Manager{scopes: make(map[string][]scope)}
	m.Add(f, fset)
	return m
}

// Add collects the directives of one more file.
func (m *Manager) Add(f *ast.File, fset *token.FileSet) {
	idx := newFileIndex(f, fset)
	for _, cg := range f.Comments {
		for _, c := range cg.List {
			rules, err := parseDirective(c.Text)
			if err != nil {
				continue
			}
			pos := fset.Position(c.Slash)
			s := idx.scopeOf(cg, pos)
			s.rules = rules
			m.scopes[pos.Filename] = append(m.scopes[pos.Filename], s)
		}
	}
}

// IsNolint reports whether rule is suppressed at pos.
func (m *Manager) IsNolint(pos token.Position, rule string) bool {
	if m == nil {
		return false
	}
	for _, s := range m.scopes[pos.Filename] {
		if s.covers(pos.Line, rule) {
			return true
		}
	}
	return false
}

// parseDirective returns the rule set of a directive.
func parseDirective(text string) (map[string]struct{}, error) {
	rest, ok := strings.CutPrefix(text, directive)
	if !ok {
		return nil, errNotDirective
	}
	if i := strings.Index(rest, " //"); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimRight(rest, " \t")

	rules := make(map[string]struct{})
	if rest == "" {
		return rules, nil
	}
	if rest[0] != ':' {
		return nil, errNotDirective
	}

	for _, rule := range strings.Split(rest[1:], ",") {
		if rule = strings.TrimSpace(rule); rule != "" {
			rules[rule] = struct{}{}
		}
	}
	if len(rules) == 0 {
		return nil, errNoRules
	}
	return rules, nil
}

type fileIndex struct {
	fset        *token.FileSet
	packageLine int
	fileEnd     int
	docs        map[*ast.CommentGroup]ast.Node
	stmts       map[int]ast.Stmt // first statement starting on each line
}

func newFileIndex(f *ast.File, fset *token.FileSet) *fileIndex {
	idx := &fileIndex{
		fset:        fset,
		packageLine: fset.Position(f.Package).Line,
		fileEnd:     fset.Position(f.End()).Line,
		docs:        make(map[*ast.CommentGroup]ast.Node),
		stmts:       make(map[int]ast.Stmt),
	}

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			idx.addDoc(d.Doc, d)
		case *ast.GenDecl:
			idx.addDoc(d.Doc, d)
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					idx.addDoc(s.Doc, s)
				case *ast.ValueSpec:
					idx.addDoc(s.Doc, s)
				}
			}
		}
	}

	ast.Inspect(f, func(n ast.Node) bool {
		if stmt, ok := n.(ast.Stmt); ok {
			line := fset.Position(stmt.Pos()).Line
			if _, seen := idx.stmts[line]; !seen {
				idx.stmts[line] = stmt
			}
		}
		return true
	})
	return idx
}

func (idx *fileIndex) addDoc(cg *ast.CommentGroup, n ast.Node) {
	if cg != nil {
		idx.docs[cg] = n
	}
}

func (idx *fileIndex) line(p token.Pos) int {
	return idx.fset.Position(p).Line
}

func (idx *fileIndex) scopeOf(cg *ast.CommentGroup, pos token.Position) scope {
	if pos.Line < idx.packageLine {
		return scope{from: 1, to: idx.fileEnd}
	}
	if decl, ok := idx.docs[cg]; ok {
		return scope{from: pos.Line, to: idx.line(decl.End())}
	}
	if stmt, ok := idx.stmts[pos.Line]; ok && idx.fset.Position(stmt.Pos()).Offset < pos.Offset {
		return scope{from: idx.line(stmt.Pos()), to: idx.line(stmt.End())}
	}
	if stmt, ok := idx.stmts[pos.Line+1]; ok {
		return scope{from: pos.Line, to: idx.line(stmt.End())}
	}
	return scope{from: pos.Line, to: pos.Line}
}
