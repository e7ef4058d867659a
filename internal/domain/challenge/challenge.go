// Package challenge models the lifecycle of a ladder challenge from
// creation through venue negotiation to a locked match, as a closed state
// machine.
//
// The proposer alternates strictly: whichever party last proposed or
// countered cannot confirm or counter again, so neither side can lock in
// its own proposal.
package challenge

import "time"

// Status is the lifecycle state of a challenge.
type Status string

// Challenge statuses. Locked, declined, cancelled and expired are terminal.
const (
	StatusPending       Status = "pending"
	StatusVenueProposed Status = "venue_proposed"
	StatusCountered     Status = "countered"
	StatusLocked        Status = "locked"
	StatusDeclined      Status = "declined"
	StatusCancelled     Status = "cancelled"
	StatusExpired       Status = "expired"
)

// Terminal reports whether no further action can change the challenge.
func (s Status) Terminal() bool {
	switch s {
	case StatusLocked, StatusDeclined, StatusCancelled, StatusExpired:
		return true
	case StatusPending, StatusVenueProposed, StatusCountered:
		return false
	}
	return false
}

// Challenge is one competitor's claim on another's ladder position.
type Challenge struct {
	ID            string    `json:"id"`
	ChallengerID  string    `json:"challenger_id"`
	ChallengedID  string    `json:"challenged_id"`
	Discipline    string    `json:"discipline"`
	RaceTo        int       `json:"race_to"`
	Status        Status    `json:"status"`
	Venue         string    `json:"venue,omitempty"`
	ScheduledTime time.Time `json:"scheduled_time,omitzero"`
	ProposerID    string    `json:"proposer_id,omitempty"`
	LockedAt      time.Time `json:"locked_at,omitzero"`
	CreatedAt     time.Time `json:"created_at"`

	// Version supports the store's read-validate-write check.
	Version int64 `json:"version"`
}

// Action is a closed set of moves a party (or the system, for Expire) can
// make against a challenge.
type Action interface {
	isAction()
	Name() string
}

// Propose offers a venue and time for the match. Only the challenged party
// may make the first proposal.
type Propose struct {
	Venue string
	Time  time.Time
}

// Counter replaces the standing proposal with a new venue and time.
type Counter struct {
	Venue string
	Time  time.Time
}

// Confirm accepts the standing proposal and locks the challenge.
type Confirm struct{}

// Decline rejects a pending challenge. Only the challenged party may decline.
type Decline struct{}

// Cancel withdraws a pending challenge. Only the challenger may cancel.
type Cancel struct{}

// Expire marks a stalled challenge expired. It is driven by an external
// timeout signal, never computed here.
type Expire struct{}

func (Propose) isAction() {}
func (Counter) isAction() {}
func (Confirm) isAction() {}
func (Decline) isAction() {}
func (Cancel) isAction()  {}
func (Expire) isAction()  {}

func (Propose) Name() string { return "propose" }
func (Counter) Name() string { return "counter" }
func (Confirm) Name() string { return "confirm" }
func (Decline) Name() string { return "decline" }
func (Cancel) Name() string  { return "cancel" }
func (Expire) Name() string  { return "expire" }

// Apply computes the challenge after actorID performs action. The input is
// not mutated; on success the returned copy carries the next status. Every
// (status, action) pair outside the transition table is rejected with
// ErrInvalidTransition, and actor constraints are enforced before any
// change.
func Apply(ch Challenge, actorID string, action Action, now time.Time) (Challenge, error) {
	if ch.Status.Terminal() {
		return Challenge{}, ErrChallengeClosed
	}
	if _, system := action.(Expire); !system {
		if actorID != ch.ChallengerID && actorID != ch.ChallengedID {
			return Challenge{}, ErrNotParticipant
		}
	}

	next := ch
	switch a := action.(type) {
	case Propose:
		if ch.Status != StatusPending {
			return Challenge{}, ErrInvalidTransition
		}
		if actorID != ch.ChallengedID {
			return Challenge{}, ErrWrongActor
		}
		next.Status = StatusVenueProposed
		next.Venue = a.Venue
		next.ScheduledTime = a.Time
		next.ProposerID = actorID

	case Counter:
		if ch.Status != StatusVenueProposed && ch.Status != StatusCountered {
			return Challenge{}, ErrInvalidTransition
		}
		if actorID == ch.ProposerID {
			return Challenge{}, ErrOwnProposal
		}
		if ch.Status == StatusVenueProposed {
			next.Status = StatusCountered
		} else {
			next.Status = StatusVenueProposed
		}
		next.Venue = a.Venue
		next.ScheduledTime = a.Time
		next.ProposerID = actorID

	case Confirm:
		if ch.Status != StatusVenueProposed && ch.Status != StatusCountered {
			return Challenge{}, ErrInvalidTransition
		}
		if actorID == ch.ProposerID {
			return Challenge{}, ErrOwnProposal
		}
		next.Status = StatusLocked
		next.LockedAt = now

	case Decline:
		if ch.Status != StatusPending {
			return Challenge{}, ErrInvalidTransition
		}
		if actorID != ch.ChallengedID {
			return Challenge{}, ErrWrongActor
		}
		next.Status = StatusDeclined

	case Cancel:
		if ch.Status != StatusPending {
			return Challenge{}, ErrInvalidTransition
		}
		if actorID != ch.ChallengerID {
			return Challenge{}, ErrWrongActor
		}
		next.Status = StatusCancelled

	case Expire:
		next.Status = StatusExpired

	default:
		return Challenge{}, ErrInvalidTransition
	}

	return next, nil
}
