package challenge

import "errors"

// Sentinel kinds for challenge lifecycle errors.
var (
	ErrInvalidTransition = errors.New("action not allowed in current state")
	ErrChallengeClosed   = errors.New("challenge already in a terminal state")
	ErrWrongActor        = errors.New("action not allowed for this party")
	ErrOwnProposal       = errors.New("proposer cannot act on own proposal")
	ErrNotParticipant    = errors.New("actor is not a party to this challenge")
)
