package goast

import (
	"go/ast"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/nodepat/pattern"
)

const helloSrc = `package main

import "fmt"

func Hello(name string) {
	fmt.Println("hi", name)
	x := 1 + 2
	_ = x
}
`

func parseHello(t *testing.T) *Node {
	t.Helper()
	root, fset, err := ParseSource("hello.go", []byte(helloSrc))
	require.NoError(t, err)
	require.NotNil(t, fset)
	return root
}

func search(t *testing.T, root *Node, src string, params ...any) []pattern.Result {
	t.Helper()
	var results []pattern.Result
	for res, err := range pattern.MustCompile(src).Search(nil, root, params...) {
		require.NoError(t, err)
		results = append(results, res)
	}
	return results
}

func TestConvertShape(t *testing.T) {
	t.Parallel()

	root := parseHello(t)
	assert.Equal(t, pattern.Atom("File"), root.Type())
	assert.Nil(t, root.Parent())
	require.Len(t, root.Children(), 2)
	assert.Equal(t, "(Ident :main)", root.Children()[0].(*Node).String())

	decls := root.Children()[1].(*Node)
	assert.Equal(t, ListType, decls.Type())
	require.Len(t, decls.Children(), 2)
	assert.Equal(t,
		`(GenDecl :import (List (ImportSpec nil (BasicLit :STRING "fmt"))))`,
		decls.Children()[0].(*Node).String())

	fn := decls.Children()[1].(*Node)
	assert.Equal(t, pattern.Atom("FuncDecl"), fn.Type())
	assert.Same(t, decls, fn.Parent())
	assert.IsType(t, &ast.FuncDecl{}, fn.AST())
}

func TestConvertStatements(t *testing.T) {
	t.Parallel()

	root := parseHello(t)
	assign := search(t, root, "AssignStmt")
	require.Len(t, assign, 2)
	assert.Equal(t,
		"(AssignStmt (List (Ident :x)) ::= (List (BinaryExpr (BasicLit :INT 1) :+ (BasicLit :INT 2))))",
		pattern.Sprint(assign[0].Node()))
}

func TestPatternsOnGoCode(t *testing.T) {
	t.Parallel()

	root := parseHello(t)

	tests := []struct {
		name    string
		pattern string
		want    []any
	}{
		{
			name:    "selector call",
			pattern: "(CallExpr (SelectorExpr (Ident :fmt) (Ident $_)) ...)",
			want:    []any{pattern.Atom("Println")},
		},
		{
			name:    "binary literal operands",
			pattern: "(BinaryExpr (BasicLit :INT $_) :+ (BasicLit :INT $_))",
			want:    []any{[]any{int64(1), int64(2)}},
		},
		{
			name:    "string literal value",
			pattern: "(BasicLit :STRING $_)",
			want:    []any{"fmt", "hi"},
		},
		{
			name:    "short variable declaration",
			pattern: "(AssignStmt (List (Ident $_)) ::= ...)",
			want:    []any{pattern.Atom("x")},
		},
		{
			name:    "plain assignment",
			pattern: "(AssignStmt (List (Ident :_)) := (List (Ident $_)))",
			want:    []any{pattern.Atom("x")},
		},
		{
			name:    "parent of selector",
			pattern: "[(Ident $_) ^SelectorExpr]",
			want:    []any{pattern.Atom("fmt"), pattern.Atom("Println")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []any
			for _, res := range search(t, root, tt.pattern) {
				got = append(got, res.Value())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMethods(t *testing.T) {
	t.Parallel()

	root := parseHello(t)

	tests := []struct {
		pattern string
		count   int
	}{
		{"(FuncDecl nil exported? _ _)", 1},
		{"[FuncDecl name?(:Hello)]", 1},
		{`[FuncDecl name?("Goodbye")]`, 0},
		{"[Ident blank?]", 1},
		{"[List arity?(2)]", 2},
		{"[_ list?]", 10},
		{"[expr? CallExpr]", 1},
		{"[stmt? ExprStmt]", 1},
		{"[decl? GenDecl]", 1},
		{"[spec? ImportSpec]", 1},
		{"[Ident exported?]", 2},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Len(t, search(t, root, tt.pattern), tt.count)
		})
	}
}

func TestPositionsAndDescribe(t *testing.T) {
	t.Parallel()

	root := parseHello(t)
	calls := search(t, root, "CallExpr")
	require.Len(t, calls, 1)

	call := calls[0].Node().(*Node)
	pos := call.Pos()
	assert.Equal(t, "hello.go", pos.Filename)
	assert.Equal(t, 6, pos.Line)
	assert.Equal(t, 2, pos.Column)
	assert.Equal(t, 6, call.End().Line)
	assert.Equal(t, "function call", call.Describe())

	assert.Equal(t, `fmt.Println("hi", name)`, call.Source())

	args := call.Children()[1].(*Node)
	assert.Equal(t, `"hi", name`, args.Source())
	assert.Equal(t, "list", args.Describe())
	assert.Equal(t, 6, args.Pos().Line)
	assert.Nil(t, args.AST())
}

func TestWalk(t *testing.T) {
	t.Parallel()

	root := parseHello(t)
	idents := 0
	root.Walk(func(n *Node) bool {
		if n.Type() == "Ident" {
			idents++
		}
		return true
	})
	// main, Hello, name, string, fmt, Println, name, x, _, x
	assert.Equal(t, 10, idents)

	visited := 0
	root.Walk(func(*Node) bool {
		visited++
		return visited < 3
	})
	assert.Equal(t, 3, visited)
}

func TestFromNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, From(token.NewFileSet(), nil))
	assert.Nil(t, From(token.NewFileSet(), (*ast.File)(nil)))

	_, _, err := ParseSource("bad.go", []byte("package"))
	assert.Error(t, err)
}
