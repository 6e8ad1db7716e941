// Package coalesce groups concurrent generation requests that share a prompt
// and context so they can ride a single backend round-trip. Groups flush when
// they reach the configured batch size or when a shared timer fires; requests
// in a flushed group are logically independent, so a failed batch call falls
// back to issuing the requests individually.
package coalesce

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ahrav/go-synth/internal/cache"
	"github.com/ahrav/go-synth/internal/llm"
)

const (
	// DefaultBatchSize flushes a group once this many requests are pending.
	DefaultBatchSize = 10

	// DefaultFlushInterval bounds how long a partial group may wait.
	DefaultFlushInterval = 100 * time.Millisecond
)

// outcome is the resolution of one coalesced request.
type outcome struct {
	value string
	err   error
}

// Pending is the promise side of one coalesced request.
type Pending struct {
	// FieldTag identifies the requesting field for logging.
	FieldTag string

	ch chan outcome
}

// Wait blocks until the request resolves or the context is done.
func (p *Pending) Wait(ctx context.Context) (string, error) {
	select {
	case out := <-p.ch:
		return out.value, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Pending) resolve(value string, err error) {
	p.ch <- outcome{value: value, err: err}
}

// group holds the pending requests for one (prompt, contextHash) key.
type group struct {
	backend llm.Backend
	prompt  string
	context map[string]any
	pending []*Pending
}

// Coalescer batches concurrent generation requests per (prompt, contextHash)
// group. Safe for concurrent use. FlushAll must be called once at the end of
// a generation run so no request is left pending.
type Coalescer struct {
	size     int
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	groups map[string]*group
	timer  *time.Timer
}

// New creates a coalescer. Non-positive size or interval fall back to the
// package defaults; a nil logger uses slog.Default.
func New(size int, interval time.Duration, logger *slog.Logger) *Coalescer {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coalescer{
		size:     size,
		interval: interval,
		logger:   logger.With("component", "coalesce"),
		groups:   make(map[string]*group),
	}
}

// Add registers a pending request under its (prompt, contextHash) group.
// A group that reaches the batch size flushes immediately in the background;
// otherwise the shared flush timer is armed if it is not already running.
func (c *Coalescer) Add(backend llm.Backend, prompt string, context map[string]any, fieldTag string) *Pending {
	p := &Pending{FieldTag: fieldTag, ch: make(chan outcome, 1)}
	key := cache.Key(backend.Name(), "", prompt, context)

	c.mu.Lock()
	g, ok := c.groups[key]
	if !ok {
		g = &group{backend: backend, prompt: prompt, context: context}
		c.groups[key] = g
	}
	g.pending = append(g.pending, p)

	if len(g.pending) >= c.size {
		delete(c.groups, key)
		c.mu.Unlock()
		go c.flushGroup(g)
		return p
	}

	if c.timer == nil {
		c.timer = time.AfterFunc(c.interval, c.flushDue)
	}
	c.mu.Unlock()
	return p
}

// PendingCount reports the number of requests currently awaiting a flush.
func (c *Coalescer) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, g := range c.groups {
		n += len(g.pending)
	}
	return n
}

// FlushAll cancels the shared timer and flushes every outstanding group
// synchronously. Called once at the end of a generation run.
func (c *Coalescer) FlushAll() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	groups := c.takeGroupsLocked()
	c.mu.Unlock()

	for _, g := range groups {
		c.flushGroup(g)
	}
}

// flushDue is the shared timer callback: it drains every outstanding group.
func (c *Coalescer) flushDue() {
	c.mu.Lock()
	c.timer = nil
	groups := c.takeGroupsLocked()
	c.mu.Unlock()

	for _, g := range groups {
		c.flushGroup(g)
	}
}

func (c *Coalescer) takeGroupsLocked() []*group {
	groups := make([]*group, 0, len(c.groups))
	for key, g := range c.groups {
		groups = append(groups, g)
		delete(c.groups, key)
	}
	return groups
}

// flushGroup drains a group in chunks of at most the batch size.
func (c *Coalescer) flushGroup(g *group) {
	for len(g.pending) > 0 {
		n := min(c.size, len(g.pending))
		chunk := g.pending[:n]
		g.pending = g.pending[n:]
		c.flushChunk(g, chunk)
	}
}

// flushChunk sends one chunk to the backend. With a native batch call and
// more than one request, a single batch round-trip fans results back out by
// position; on batch failure every request falls back to an individual call
// so requests that could succeed alone still do.
func (c *Coalescer) flushChunk(g *group, chunk []*Pending) {
	ctx := context.Background()

	if bb, ok := g.backend.(llm.BatchBackend); ok && len(chunk) > 1 {
		prompts := make([]string, len(chunk))
		for i := range chunk {
			prompts[i] = g.prompt
		}

		results, err := bb.GenerateBatch(ctx, prompts, g.context)
		if err == nil && len(results) == len(chunk) {
			for i, p := range chunk {
				p.resolve(results[i], nil)
			}
			return
		}
		if err != nil {
			c.logger.Warn("batch call failed, falling back to individual requests",
				"backend", g.backend.Name(), "size", len(chunk), "error", err)
		} else {
			c.logger.Warn("batch call returned wrong result count, falling back",
				"backend", g.backend.Name(), "want", len(chunk), "got", len(results))
		}
	}

	for _, p := range chunk {
		value, err := g.backend.Generate(ctx, g.prompt, g.context)
		p.resolve(value, err)
	}
}
