package pattern

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache compiles each distinct pattern string once. Concurrent first uses
// of the same string share one compilation. Failed compilations are not
// cached.
type Cache struct {
	patterns sync.Map // string -> *Pattern
	group    singleflight.Group
}

func NewCache() *Cache {
	return &Cache{}
}

// Compile returns the compiled pattern for src, compiling it on first use.
func (c *Cache) Compile(src string) (*Pattern, error) {
	if p, ok := c.patterns.Load(src); ok {
		return p.(*Pattern), nil
	}

	v, err, _ := c.group.Do(src, func() (any, error) {
		if p, ok := c.patterns.Load(src); ok {
			return p, nil
		}
		p, err := Compile(src)
		if err != nil {
			return nil, err
		}
		c.patterns.Store(src, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Pattern), nil
}

// Len returns the number of cached patterns.
func (c *Cache) Len() int {
	n := 0
	c.patterns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Reset drops every cached pattern.
func (c *Cache) Reset() {
	c.patterns.Range(func(k, _ any) bool {
		c.patterns.Delete(k)
		return true
	})
}
