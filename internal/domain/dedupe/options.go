// Package dedupe tracks already-applied ladder shifts by match id.
package dedupe

// Option applies a configuration option to the replay guard.
type Option func(*replayGuard)

// WithMaxSize sets the maximum number of match ids to keep in memory.
// If maxSize > 0: bounded window with oldest-first eviction.
// If maxSize <= 0: unbounded (no eviction).
func WithMaxSize(maxSize int) Option {
	return func(g *replayGuard) {
		g.maxSize = maxSize
	}
}
