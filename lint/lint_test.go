package lint

import (
	"context"
	"errors"
	"go/token"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gnolang/nodepat/internal"
	"github.com/gnolang/nodepat/internal/types"
)

type mockLintEngine struct {
	mock.Mock
}

func (m *mockLintEngine) Run(filePath string) ([]types.Issue, error) {
	args := m.Called(filePath)
	return args.Get(0).([]types.Issue), args.Error(1)
}

func (m *mockLintEngine) RunSource(source []byte) ([]types.Issue, error) {
	args := m.Called(source)
	return args.Get(0).([]types.Issue), args.Error(1)
}

func (m *mockLintEngine) IgnoreRule(rule string) {
	m.Called(rule)
}

func (m *mockLintEngine) IgnorePath(path string) {
	m.Called(path)
}

func issueAt(rule, filename string, offset int) types.Issue {
	return types.Issue{
		Rule:     rule,
		Filename: filename,
		Start:    token.Position{Filename: filename, Offset: offset, Line: 1, Column: offset + 1},
		End:      token.Position{Filename: filename, Offset: offset + 10, Line: 1, Column: offset + 11},
		Message:  "Test issue",
	}
}

func memFs(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, name := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte("package main\n"), 0o644))
	}
	return fs
}

func TestProcessFile(t *testing.T) {
	t.Parallel()

	expected := []types.Issue{issueAt("test-rule", "test.go", 0)}
	mockEngine := new(mockLintEngine)
	mockEngine.On("Run", "test.go").Return(expected, nil)

	issues, err := ProcessFile(mockEngine, "test.go")

	assert.NoError(t, err)
	assert.Equal(t, expected, issues)
	mockEngine.AssertExpectations(t)
}

func TestProcessSource(t *testing.T) {
	t.Parallel()

	expected := []types.Issue{issueAt("test-rule", "", 0)}
	mockEngine := new(mockLintEngine)
	mockEngine.On("RunSource", []byte("package main")).Return(expected, nil)

	issues, err := ProcessSource(mockEngine, []byte("package main"))

	assert.NoError(t, err)
	assert.Equal(t, expected, issues)
	mockEngine.AssertExpectations(t)
}

func TestProcessPath(t *testing.T) {
	t.Parallel()

	fs := memFs(t,
		"/proj/a.go",
		"/proj/b.gno",
		"/proj/notes.txt",
		"/proj/sub/d.go",
		"/proj/testdata/skip.go",
		"/proj/.cache/skip.go",
		"/proj/_old/skip.go",
	)

	mockEngine := new(mockLintEngine)
	mockEngine.On("Run", "/proj/sub/d.go").Return([]types.Issue{issueAt("rule2", "/proj/sub/d.go", 0)}, nil)
	mockEngine.On("Run", "/proj/a.go").Return([]types.Issue{
		issueAt("rule1", "/proj/a.go", 20),
		issueAt("rule1", "/proj/a.go", 5),
	}, nil)
	mockEngine.On("Run", "/proj/b.gno").Return([]types.Issue{}, errors.New("boom"))

	issues, err := ProcessPath(context.Background(), zaptest.NewLogger(t), fs, mockEngine, "/proj", ProcessFile)
	assert.ErrorContains(t, err, "/proj/b.gno: boom")

	// a failing file does not stop the others, which are sorted by file and offset
	assert.Equal(t, []types.Issue{
		issueAt("rule1", "/proj/a.go", 5),
		issueAt("rule1", "/proj/a.go", 20),
		issueAt("rule2", "/proj/sub/d.go", 0),
	}, issues)
	mockEngine.AssertExpectations(t)
	mockEngine.AssertNumberOfCalls(t, "Run", 3)
}

func TestProcessPathSingleFile(t *testing.T) {
	t.Parallel()

	fs := memFs(t, "/proj/a.go", "/proj/readme.md")
	mockEngine := new(mockLintEngine)
	mockEngine.On("Run", "/proj/a.go").Return([]types.Issue{issueAt("rule1", "/proj/a.go", 0)}, nil)

	issues, err := ProcessPath(context.Background(), nil, fs, mockEngine, "/proj/a.go", ProcessFile)
	require.NoError(t, err)
	assert.Len(t, issues, 1)

	issues, err = ProcessPath(context.Background(), nil, fs, mockEngine, "/proj/readme.md", ProcessFile)
	require.NoError(t, err)
	assert.Empty(t, issues)

	_, err = ProcessPath(context.Background(), nil, fs, mockEngine, "/proj/missing.go", ProcessFile)
	assert.ErrorContains(t, err, "error accessing /proj/missing.go")

	mockEngine.AssertExpectations(t)
}

func TestProcessPathContextCancellation(t *testing.T) {
	t.Parallel()

	fs := memFs(t, "/proj/a.go", "/proj/b.go", "/proj/c.go")
	mockEngine := new(mockLintEngine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	issues, err := ProcessPath(ctx, nil, fs, mockEngine, "/proj", ProcessFile)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsCanceled(err))
	assert.Empty(t, issues)
	mockEngine.AssertNotCalled(t, "Run", mock.Anything)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()

	fs := memFs(t, "/x/test1.go", "/y/test2.go")
	mockEngine := new(mockLintEngine)
	mockEngine.On("Run", "/x/test1.go").Return([]types.Issue{issueAt("rule1", "/x/test1.go", 0)}, nil)
	mockEngine.On("Run", "/y/test2.go").Return([]types.Issue{issueAt("rule2", "/y/test2.go", 0)}, nil)

	issues, err := ProcessFiles(context.Background(), nil, fs, mockEngine, []string{"/x/test1.go", "/y"}, ProcessFile)
	require.NoError(t, err)
	assert.Len(t, issues, 2)
	assert.Contains(t, issues, issueAt("rule1", "/x/test1.go", 0))
	assert.Contains(t, issues, issueAt("rule2", "/y/test2.go", 0))
	mockEngine.AssertExpectations(t)

	_, err = ProcessFiles(context.Background(), nil, fs, mockEngine, []string{"/nowhere"}, ProcessFile)
	assert.Error(t, err)
}

func TestProcessSources(t *testing.T) {
	t.Parallel()

	mockEngine := new(mockLintEngine)
	mockEngine.On("RunSource", []byte("package main1")).Return([]types.Issue{issueAt("rule1", "", 0)}, nil)
	mockEngine.On("RunSource", []byte("package main2")).Return([]types.Issue{issueAt("rule2", "", 0)}, nil)

	issues, err := ProcessSources(context.Background(), nil, mockEngine,
		[][]byte{[]byte("package main1"), []byte("package main2")}, ProcessSource)

	require.NoError(t, err)
	assert.Equal(t, []types.Issue{issueAt("rule1", "", 0), issueAt("rule2", "", 0)}, issues)
	mockEngine.AssertExpectations(t)
}

func TestHasDesiredExtension(t *testing.T) {
	t.Parallel()

	assert.True(t, hasDesiredExtension("test.go"))
	assert.True(t, hasDesiredExtension("test.gno"))
	assert.False(t, hasDesiredExtension("test.txt"))
	assert.False(t, hasDesiredExtension("test"))
}

func TestNew(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, SaveConfig(fs, DefaultConfigFile, DefaultConfig()))
	require.NoError(t, afero.WriteFile(fs, "/src/main.go", []byte(`package main

import "fmt"

func main() {
	fmt.Println("hi")
	if true {
	}
	panic("x")
}
`), 0o644))

	engine, err := New(fs, DefaultConfigFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty-if", "print-call", "self-assignment", "simplify-slice-range"}, engine.Rules())

	issues, err := ProcessPath(context.Background(), nil, fs, engine, "/src", ProcessFile)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "avoid fmt.Println in library code", issues[0].Message)
	assert.Equal(t, types.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "empty if block", issues[1].Message)
	assert.Equal(t, 7, issues[1].Start.Line)

	_, err = New(fs, "/missing.yaml")
	assert.ErrorContains(t, err, "reading configuration")
}

func TestDefaultConfigSliceRange(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/slice.go", []byte(`package main

func f(s, t []int) {
	_ = s[:len(s)]
	_ = s[1:len(s)]
	_ = s[:len(t)]
	_ = s[:len(s):len(s)]
}
`), 0o644))

	engine, err := internal.NewEngine(DefaultConfig().Rules, internal.WithFs(fs))
	require.NoError(t, err)

	issues, err := engine.Run("/src/slice.go")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "unnecessary use of len() in s[:len(s)], can be simplified", issues[0].Message)
	assert.Equal(t, 4, issues[0].Start.Line)
	assert.Equal(t, "unnecessary use of len() in s[1:len(s)], can be simplified", issues[1].Message)
	assert.Equal(t, 5, issues[1].Start.Line)
}
