// Package cache provides a content-addressed store for externally-generated
// field values. Each key holds a bounded bag of previously observed outputs
// rather than a single value; lookups sample the bag at random so records
// sharing a prompt and context keep some output diversity. Within a key the
// bag evicts oldest-write-first (FIFO); across keys the least-recently-used
// key is evicted once the key cap is exceeded.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultMaxKeys bounds the number of distinct cache keys.
	DefaultMaxKeys = 500

	// DefaultMaxValuesPerKey bounds the bag size under one key.
	DefaultMaxValuesPerKey = 10
)

// PickFunc selects an index in [0, n). Callers that need deterministic runs
// pass a function backed by their seeded random stream; a nil pick falls back
// to the process-wide generator.
type PickFunc func(n int) int

// entry is one previously observed output under a key.
type entry struct {
	value    string
	storedAt time.Time
	hits     int64
}

// bag is the ordered multiset of entries for one key, oldest first.
type bag struct {
	entries []entry
}

// Cache is a bagged, content-addressed value cache with LRU key eviction.
// It is safe for concurrent use and intended to be shared across generation
// runs: construct it once, inject it into each engine, and Clear it between
// runs that must not share state.
type Cache struct {
	mu        sync.Mutex
	keys      *lru.Cache[string, *bag]
	maxPerKey int
	hits      int64
}

// New creates a cache with the given caps. Non-positive caps fall back to
// the package defaults.
func New(maxKeys, maxValuesPerKey int) (*Cache, error) {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	if maxValuesPerKey <= 0 {
		maxValuesPerKey = DefaultMaxValuesPerKey
	}
	keys, err := lru.New[string, *bag](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("create key store: %w", err)
	}
	return &Cache{keys: keys, maxPerKey: maxValuesPerKey}, nil
}

// Key computes the content address for a generation request. Context
// normalization relies on encoding/json emitting map keys in sorted order,
// so equivalent context maps collide regardless of construction order.
func Key(backend, model, prompt string, context map[string]any) string {
	ctxJSON, err := json.Marshal(context)
	if err != nil {
		// Unserializable context values degrade to their Go formatting;
		// the key stays stable for identical inputs.
		ctxJSON = []byte(fmt.Sprintf("%v", context))
	}
	h := sha256.New()
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write(ctxJSON)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns one value sampled uniformly from the bag stored for the
// request, or false on miss. A hit increments the chosen entry's counter and
// marks the key most-recently-used.
func (c *Cache) Get(backend, model, prompt string, context map[string]any, pick PickFunc) (string, bool) {
	key := Key(backend, model, prompt, context)

	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.keys.Get(key)
	if !ok || len(b.entries) == 0 {
		return "", false
	}

	idx := 0
	if n := len(b.entries); n > 1 {
		if pick != nil {
			idx = pick(n)
		} else {
			idx = rand.IntN(n)
		}
		if idx < 0 || idx >= n {
			idx = 0
		}
	}
	b.entries[idx].hits++
	c.hits++
	return b.entries[idx].value, true
}

// Set appends a value to the bag for the request, dropping the oldest entry
// once the per-key cap is exceeded. Inserting a new key may evict the
// least-recently-used key, bag and all.
func (c *Cache) Set(backend, model, prompt, value string, context map[string]any) {
	key := Key(backend, model, prompt, context)

	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.keys.Get(key)
	if !ok {
		b = &bag{}
	}
	b.entries = append(b.entries, entry{value: value, storedAt: time.Now()})
	if len(b.entries) > c.maxPerKey {
		b.entries = b.entries[len(b.entries)-c.maxPerKey:]
	}
	// Add marks the key most-recently-used and handles LRU key eviction.
	c.keys.Add(key, b)
}

// Clear drops every key and resets hit counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys.Purge()
	c.hits = 0
}

// Configure tunes the two caps. Shrinking the key cap evicts
// least-recently-used keys immediately; the per-key cap applies on the next
// write to each bag.
func (c *Cache) Configure(maxKeys, maxValuesPerKey int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxKeys > 0 {
		c.keys.Resize(maxKeys)
	}
	if maxValuesPerKey > 0 {
		c.maxPerKey = maxValuesPerKey
	}
}
