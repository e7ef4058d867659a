// Package match models a scheduled match and the dual-submission protocol
// that reconciles two independent score reports into one result.
//
// Each side owns exactly one submission slot and may overwrite only its own.
// Reconciliation is a pure function of the two slots, never an event stream.
package match

import (
	"time"

	"github.com/rackline/ladder/internal/domain/score"
)

// Status is the lifecycle state of a match.
type Status string

// Match statuses. Completed, disputed and cancelled are terminal; a
// disputed match waits on administrative resolution outside the engine.
const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusDisputed  Status = "disputed"
	StatusCancelled Status = "cancelled"
)

// Submission is one side's score report plus its bookkeeping.
type Submission struct {
	score.Submission
	LivestreamURL string    `json:"livestream_url,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Match is the sole authority for a locked challenge's outcome.
type Match struct {
	ID            string    `json:"id"`
	ChallengeID   string    `json:"challenge_id"`
	ChallengerID  string    `json:"challenger_id"`
	ChallengedID  string    `json:"challenged_id"`
	RaceTo        int       `json:"race_to"`
	Venue         string    `json:"venue"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Status        Status    `json:"status"`

	ChallengerSubmission *Submission `json:"challenger_submission,omitempty"`
	ChallengedSubmission *Submission `json:"challenged_submission,omitempty"`

	WinnerID      string `json:"winner_id,omitempty"`
	DisputeReason string `json:"dispute_reason,omitempty"`

	// Version supports the store's read-validate-write check.
	Version int64 `json:"version"`
}

// Record returns a copy of m with actorID's submission slot set,
// overwriting any prior report from the same side. Submissions are only
// accepted while the match is scheduled.
func Record(m Match, actorID string, sub Submission) (Match, error) {
	if m.Status != StatusScheduled {
		return Match{}, ErrNotScheduled
	}
	next := m
	switch actorID {
	case m.ChallengerID:
		next.ChallengerSubmission = &sub
	case m.ChallengedID:
		next.ChallengedSubmission = &sub
	default:
		return Match{}, ErrNotParticipant
	}
	return next, nil
}

// Outcome is the result of reconciling the two submission slots.
type Outcome struct {
	// Final is false while one side has yet to submit.
	Final bool
	// Disputed is true when the reports disagree or agree on a score
	// that violates the race rules.
	Disputed bool
	// Reason describes why the match was disputed.
	Reason string
	// WinnerID and the game counts are set on a completed outcome.
	WinnerID        string
	ChallengerGames int
	ChallengedGames int
}

// Reconcile decides the match outcome from both submission slots. With one
// slot empty the outcome is not final and the match stays scheduled. With
// both present, disagreement or an agreed-but-invalid score line disputes
// the match; otherwise the validated winner completes it.
func Reconcile(m Match) Outcome {
	if m.ChallengerSubmission == nil || m.ChallengedSubmission == nil {
		return Outcome{}
	}

	if !score.Agree(m.ChallengerSubmission.Submission, m.ChallengedSubmission.Submission) {
		return Outcome{
			Final:    true,
			Disputed: true,
			Reason:   "submitted scores do not match",
		}
	}

	challengerGames := m.ChallengerSubmission.MyGames
	challengedGames := m.ChallengedSubmission.MyGames
	side, err := score.Validate(challengerGames, challengedGames, m.RaceTo)
	if err != nil {
		return Outcome{
			Final:    true,
			Disputed: true,
			Reason:   "agreed score violates race rules: " + err.Error(),
		}
	}

	winnerID := m.ChallengerID
	if side == score.SideChallenged {
		winnerID = m.ChallengedID
	}
	return Outcome{
		Final:           true,
		WinnerID:        winnerID,
		ChallengerGames: challengerGames,
		ChallengedGames: challengedGames,
	}
}

// Loser returns the participant opposite winnerID.
func (m Match) Loser(winnerID string) string {
	if winnerID == m.ChallengerID {
		return m.ChallengedID
	}
	return m.ChallengerID
}
