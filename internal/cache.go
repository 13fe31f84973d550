package internal

import (
	"crypto/md5"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cnf/structhash"
	"github.com/spf13/afero"

	tt "github.com/gnolang/nodepat/internal/types"
)

const (
	cacheFileName = "lint_cache.gob"

	// DefaultCacheMaxAge is how long an entry stays valid without a rewrite.
	DefaultCacheMaxAge = 24 * time.Hour
)

type CacheEntry struct {
	Hash         string
	RulesHash    string
	Issues       []tt.Issue
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Cache keeps lint results per file. An entry is reused while the file
// content, the rule set and the entry age all allow it.
type Cache struct {
	fs        afero.Fs
	dir       string
	rulesHash string
	maxAge    time.Duration
	now       func() time.Time

	mutex   sync.RWMutex
	entries map[string]CacheEntry
}

// NewCache opens the cache stored in dir, creating it when needed. rules is
// fingerprinted so that changing the configuration invalidates every entry.
func NewCache(fs afero.Fs, dir string, rules map[string]tt.ConfigRule) (*Cache, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	rulesHash, err := structhash.Hash(rules, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint rules: %w", err)
	}

	cache := &Cache{
		fs:        fs,
		dir:       dir,
		rulesHash: rulesHash,
		maxAge:    DefaultCacheMaxAge,
		now:       time.Now,
		entries:   make(map[string]CacheEntry),
	}

	if err := cache.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	return cache, nil
}

func (c *Cache) path() string {
	return filepath.Join(c.dir, cacheFileName)
}

func (c *Cache) load() error {
	file, err := c.fs.Open(c.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil // first run
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	return nil
}

func (c *Cache) save() error {
	file, err := c.fs.Create(c.path())
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

// Set records the issues found in filename for the given content.
func (c *Cache) Set(filename string, content []byte, issues []tt.Issue) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	c.entries[filename] = CacheEntry{
		Hash:         contentHash(content),
		RulesHash:    c.rulesHash,
		Issues:       issues,
		CreatedAt:    now,
		LastAccessed: now,
	}
	return c.save()
}

// Get returns the issues recorded for filename if content is unchanged.
func (c *Cache) Get(filename string, content []byte) ([]tt.Issue, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[filename]
	if !exists {
		return nil, false
	}

	if c.isEntryInvalid(entry, content) {
		delete(c.entries, filename)
		return nil, false
	}

	entry.LastAccessed = c.now()
	c.entries[filename] = entry
	return entry.Issues, true
}

func (c *Cache) isEntryInvalid(entry CacheEntry, content []byte) bool {
	switch {
	case c.now().Sub(entry.CreatedAt) > c.maxAge:
		return true
	case entry.RulesHash != c.rulesHash:
		return true
	}
	return entry.Hash != contentHash(content)
}

func (c *Cache) SetMaxAge(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxAge = d
}

func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

func (c *Cache) InvalidateAll() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]CacheEntry)
	return c.save()
}

func contentHash(content []byte) string {
	return fmt.Sprintf("%x", md5.Sum(content))
}
