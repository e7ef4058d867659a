package match

import "errors"

// Sentinel kinds for match errors.
var (
	ErrNotScheduled   = errors.New("match is not accepting submissions")
	ErrNotParticipant = errors.New("actor is not a participant in this match")
)
