// Package repository defines the ranking store interface and errors.
//
// The store owns the transactional guarantee the engine assumes: at most
// one committed state transition per challenge or match at a time,
// enforced through per-record version checks, and at-most-once ladder
// shifts keyed by match id.
package repository

import (
	"context"

	"github.com/rackline/ladder/internal/domain/challenge"
	"github.com/rackline/ladder/internal/domain/ladder"
	"github.com/rackline/ladder/internal/domain/match"
)

// Store provides read/write access to ladder, challenge and match state.
type Store interface {
	// SeedLadder replaces the whole ladder. The entries must satisfy the
	// ladder invariant.
	SeedLadder(ctx context.Context, entries []ladder.Entry) error

	// AddCompetitor appends a competitor at the bottom position N+1.
	// Returns ErrAlreadyRanked if the competitor already has an entry.
	AddCompetitor(ctx context.Context, competitorID string) (ladder.Entry, error)

	// Ladder returns all entries in position order.
	Ladder(ctx context.Context) ([]ladder.Entry, error)

	// Rank returns the entry for one competitor.
	// Returns ErrNotFound if the competitor is unranked.
	Rank(ctx context.Context, competitorID string) (ladder.Entry, error)

	// ApplyShift recomputes and installs the post-upset ladder for
	// matchID inside the store's critical section, so a concurrent shift
	// can never be erased by a stale snapshot. Application is
	// at-most-once per match id: a replay returns (false, 0, nil) and
	// leaves the ladder untouched. The distance is how many positions
	// the winner climbed (zero on a defense).
	ApplyShift(ctx context.Context, matchID, winnerID, loserID string) (applied bool, distance int, err error)

	// CreateChallenge stores a new challenge.
	// Returns ErrDuplicateID when the id is already taken.
	CreateChallenge(ctx context.Context, ch challenge.Challenge) error

	// GetChallenge returns a challenge by id, or ErrNotFound.
	GetChallenge(ctx context.Context, id string) (challenge.Challenge, error)

	// UpdateChallenge writes ch if its Version still matches the stored
	// record, bumping the version. A lost race returns ErrVersionConflict.
	UpdateChallenge(ctx context.Context, ch challenge.Challenge) (challenge.Challenge, error)

	// ChallengesFor lists challenges where the competitor is a party,
	// newest first.
	ChallengesFor(ctx context.Context, competitorID string) ([]challenge.Challenge, error)

	// CreateMatch stores a new match.
	CreateMatch(ctx context.Context, m match.Match) error

	// GetMatch returns a match by id, or ErrNotFound.
	GetMatch(ctx context.Context, id string) (match.Match, error)

	// UpdateMatch writes m under the same optimistic rule as
	// UpdateChallenge.
	UpdateMatch(ctx context.Context, m match.Match) (match.Match, error)

	// MatchesFor lists matches where the competitor is a party, newest
	// first.
	MatchesFor(ctx context.Context, competitorID string) ([]match.Match, error)

	// Count returns the number of ranked competitors.
	Count(ctx context.Context) int
}

// shiftDistance reports how many positions the winner climbed from wasPos.
func shiftDistance(wasPos int, after []ladder.Entry, winnerID string) int {
	for _, e := range after {
		if e.CompetitorID == winnerID && wasPos > e.Position {
			return wasPos - e.Position
		}
	}
	return 0
}
