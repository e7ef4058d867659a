// Package dedupe tracks match ids whose ladder shift has already been
// applied, so a retried "complete match" command cannot double-shift.
//
// The store's transactional check remains the authority for at-most-once
// application; this guard is an in-process fast path in front of it.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard records processed match ids for at-most-once ladder shifts.
type Guard interface {
	// SeenAndRecord atomically checks if id was processed and records it
	// if not. Returns true if id was already recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id, allowing a retry after a failed apply.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// replayGuard implements Guard with a bounded FIFO window. When maxSize is
// positive the oldest ids are evicted first; the store still rejects
// replays of evicted ids, they just pay the store round trip again.
type replayGuard struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	head    int
	maxSize int
	size    atomic.Int64
}

// NewReplayGuard creates a replay guard with configuration options.
func NewReplayGuard(opts ...Option) Guard {
	g := &replayGuard{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.seen = make(map[string]struct{})
	if g.maxSize > 0 {
		g.order = make([]string, 0, g.maxSize)
	}
	return g
}

func (g *replayGuard) SeenAndRecord(ctx context.Context, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.seen[id]; exists {
		return true
	}

	if g.maxSize > 0 && len(g.seen) >= g.maxSize {
		g.evictOldest()
	}
	g.seen[id] = struct{}{}
	if g.maxSize > 0 {
		g.order = append(g.order, id)
	}
	g.size.Add(1)
	return false
}

func (g *replayGuard) Unrecord(ctx context.Context, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.seen[id]; !exists {
		return
	}
	delete(g.seen, id)
	g.size.Add(-1)
	// The stale slot in order is skipped at eviction time.
}

// evictOldest drops the oldest still-recorded id. Must be called with
// g.mu held.
func (g *replayGuard) evictOldest() {
	for g.head < len(g.order) {
		id := g.order[g.head]
		g.head++
		if _, exists := g.seen[id]; exists {
			delete(g.seen, id)
			g.size.Add(-1)
			break
		}
	}
	// Compact once the consumed prefix dominates the slice.
	if g.head > 0 && g.head*2 >= len(g.order) {
		g.order = append(g.order[:0], g.order[g.head:]...)
		g.head = 0
	}
}

func (g *replayGuard) Size() int64 {
	return g.size.Load()
}
