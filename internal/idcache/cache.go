// Package idcache memoizes identifier lookups keyed by artist and title.
//
// An entry is either found (carries an identifier) or confirmed absent. Keys
// with no entry are unresolved and will be queried again.
package idcache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "idcache").Logger()

// Entry is a resolved cache value.
type Entry struct {
	ID     string
	Absent bool
}

// Found builds an entry for a resolved identifier.
func Found(id string) Entry { return Entry{ID: id} }

// Absent builds an entry for a confirmed miss.
func Absent() Entry { return Entry{Absent: true} }

// Backend persists the whole cache as one document.
type Backend interface {
	Load(ctx context.Context) (map[string]Entry, error)
	Save(ctx context.Context, entries map[string]Entry) error
}

// Key normalizes an artist/title pair into a cache key.
func Key(artist, title string) string {
	return normalize(artist) + "|" + normalize(title)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
	backend Backend
}

// Open loads the cache from backend.
func Open(ctx context.Context, backend Backend) (*Cache, error) {
	entries, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load identifier cache: %w", err)
	}
	if entries == nil {
		entries = make(map[string]Entry)
	}
	logger.Debug().Int("entries", len(entries)).Msg("identifier cache loaded")
	return &Cache{entries: entries, backend: backend}, nil
}

// Get returns the entry for key. ok is false while the key is unresolved.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Put records a found or absent entry. A key that is already resolved is
// never overwritten.
func (c *Cache) Put(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = e
	c.dirty = true
}

// Forget drops a key so it is queried again on the next run. It reports
// whether the key was resolved.
func (c *Cache) Forget(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.dirty = true
	return true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush writes the cache to its backend if anything changed since the last flush.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return nil
	}
	snapshot := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.Unlock()

	if err := c.backend.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to persist identifier cache: %w", err)
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}
