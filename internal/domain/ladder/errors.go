package ladder

import "errors"

// Sentinel kinds for ladder errors.
var (
	ErrCompetitorNotFound = errors.New("competitor not on ladder")
	ErrInvalidLadder      = errors.New("ladder invariant violated")
)
