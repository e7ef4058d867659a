// Package model contains domain models passed between layers.
package model

import "time"

// EventKind names an engine-emitted event.
type EventKind string

// Engine event kinds consumed by notification sinks.
const (
	EventChallengeCreated   EventKind = "challenge.created"
	EventChallengeDeclined  EventKind = "challenge.declined"
	EventChallengeCancelled EventKind = "challenge.cancelled"
	EventChallengeExpired   EventKind = "challenge.expired"
	EventVenueProposed      EventKind = "challenge.venue_proposed"
	EventVenueCountered     EventKind = "challenge.countered"
	EventChallengeLocked    EventKind = "challenge.locked"
	EventMatchCompleted     EventKind = "match.completed"
	EventMatchDisputed      EventKind = "match.disputed"
	EventLadderShifted      EventKind = "ladder.shifted"
)

// Event is an engine emission handed to notification and payment sinks.
// Sinks consume it after the owning mutation has committed; delivery is
// best-effort and irrelevant to engine correctness.
type Event struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	ChallengeID string    `json:"challenge_id,omitempty"`
	MatchID     string    `json:"match_id,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	WinnerID    string    `json:"winner_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
