package smoketest

import "time"

// Shared constants for the smoke test.
const (
	StatusOK             = 200
	StatusCreated        = 201
	PercentageMultiplier = 100.0

	// SettleDelay gives the event pipeline time to drain before the
	// final ladder read.
	SettleDelay = 2 * time.Second
)
