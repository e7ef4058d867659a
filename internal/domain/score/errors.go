package score

import "errors"

// Sentinel kinds for score validation errors.
var (
	ErrInvalidScore = errors.New("invalid score line")
	ErrNoWinner     = errors.New("neither side reached the race target")
	ErrBothWon      = errors.New("both sides reached the race target")
)
