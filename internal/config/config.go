// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer in
//   file and environment overrides.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory or sqlite.
	Store string `koanf:"store"`

	// DBPath is the SQLite database file when Store is sqlite.
	DBPath string `koanf:"db_path"`

	// MinRace is the smallest allowed race-to target for a challenge.
	MinRace int `koanf:"min_race"`

	// MaxRankDiff caps how far up the ladder a challenge may reach.
	MaxRankDiff int `koanf:"max_rank_diff"`

	// MaxLadderLimit caps GET /ladder?limit.
	MaxLadderLimit int `koanf:"max_ladder_limit"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"event_queue_size"`

	// DispatchWorkers sets the number of event dispatch workers.
	DispatchWorkers int `koanf:"dispatch_workers"`

	// ReplayGuardSize sets the size of the shift replay guard window.
	ReplayGuardSize int `koanf:"replay_guard_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		Store:           "memory",
		DBPath:          "ladder.db",
		MinRace:         3,
		MaxRankDiff:     2,
		MaxLadderLimit:  100,
		EventQueueSize:  10_000,
		DispatchWorkers: runtime.NumCPU() * 2,
		ReplayGuardSize: 100_000,
	}
}
