package internal

import (
	"go/token"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnolang/nodepat/internal/types"
)

var cacheRules = map[string]tt.ConfigRule{
	"print-call": {Pattern: "(CallExpr (SelectorExpr (Ident :fmt) _) ...)", Severity: tt.SeverityWarning},
}

func sampleIssues(filename string) []tt.Issue {
	return []tt.Issue{{
		Rule:     "print-call",
		Category: "style",
		Filename: filename,
		Message:  "test issue",
		Severity: tt.SeverityWarning,
		Start:    token.Position{Filename: filename, Line: 10, Column: 1},
		End:      token.Position{Filename: filename, Line: 10, Column: 10},
	}}
}

func TestCache(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cache, err := NewCache(fs, "/cache", cacheRules)
	require.NoError(t, err)

	content := []byte("package main\n\nfunc main() {}\n")

	t.Run("SaveAndLoad", func(t *testing.T) {
		issues := sampleIssues("test.go")
		require.NoError(t, cache.Set("test.go", content, issues))

		got, found := cache.Get("test.go", content)
		assert.True(t, found)
		assert.Equal(t, issues, got)

		exists, err := afero.Exists(fs, "/cache/"+cacheFileName)
		require.NoError(t, err)
		assert.True(t, exists)

		reopened, err := NewCache(fs, "/cache", cacheRules)
		require.NoError(t, err)
		got, found = reopened.Get("test.go", content)
		assert.True(t, found)
		assert.Equal(t, issues, got)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, found := cache.Get("nonexistent.go", content)
		assert.False(t, found)
	})

	t.Run("ContentModified", func(t *testing.T) {
		require.NoError(t, cache.Set("modified.go", content, sampleIssues("modified.go")))

		_, found := cache.Get("modified.go", []byte("package main\n\nfunc main() { println(1) }\n"))
		assert.False(t, found)

		// the stale entry is dropped
		_, found = cache.Get("modified.go", content)
		assert.False(t, found)
	})
}

func TestCacheRulesChanged(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	content := []byte("package main\n")

	cache, err := NewCache(fs, "/cache", cacheRules)
	require.NoError(t, err)
	require.NoError(t, cache.Set("a.go", content, sampleIssues("a.go")))

	changed := map[string]tt.ConfigRule{
		"print-call": {Pattern: "(CallExpr (SelectorExpr (Ident :fmt) _) ...)", Severity: tt.SeverityError},
	}
	other, err := NewCache(fs, "/cache", changed)
	require.NoError(t, err)
	assert.Equal(t, 1, other.Len())

	_, found := other.Get("a.go", content)
	assert.False(t, found)
}

func TestCacheMaxAge(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(afero.NewMemMapFs(), "/cache", cacheRules)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	cache.SetMaxAge(time.Hour)

	content := []byte("package main\n")
	require.NoError(t, cache.Set("a.go", content, nil))

	now = now.Add(30 * time.Minute)
	_, found := cache.Get("a.go", content)
	assert.True(t, found)

	now = now.Add(time.Hour)
	_, found = cache.Get("a.go", content)
	assert.False(t, found)
}

func TestCacheInvalidateAll(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cache, err := NewCache(fs, "/cache", cacheRules)
	require.NoError(t, err)

	content := []byte("package main\n")
	require.NoError(t, cache.Set("a.go", content, nil))
	require.NoError(t, cache.Set("b.go", content, nil))
	assert.Equal(t, 2, cache.Len())

	require.NoError(t, cache.InvalidateAll())
	assert.Equal(t, 0, cache.Len())

	reopened, err := NewCache(fs, "/cache", cacheRules)
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len())
}

func TestCacheCorruptFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cache/"+cacheFileName, []byte("not gob"), 0o644))

	_, err := NewCache(fs, "/cache", cacheRules)
	assert.ErrorContains(t, err, "failed to load cache")
}

func TestCacheConcurrency(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(afero.NewMemMapFs(), "/cache", cacheRules)
	require.NoError(t, err)

	content := []byte("package main\n\nfunc main() {}\n")
	issues := sampleIssues("test.go")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Set("test.go", content, issues))
		}()
		go func() {
			defer wg.Done()
			_, _ = cache.Get("test.go", content)
		}()
	}
	wg.Wait()

	got, found := cache.Get("test.go", content)
	assert.True(t, found)
	assert.Equal(t, issues, got)
}
