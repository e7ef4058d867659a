// Package ladder defines the ranking invariant and the rank-shift
// transformation applied after an upset.
//
// The ladder is a strict total order: positions form a permutation of 1..N.
// Only ShiftOnResult may move entries, and it only ever perturbs the closed
// window between the two competitors involved.
package ladder

import "sort"

// Entry represents one competitor's row on the ladder.
type Entry struct {
	CompetitorID string `json:"competitor_id"`
	Position     int    `json:"rank_position"`
	Score        int    `json:"score"`
}

// Validate reports whether entries form a valid ladder: sorted by position
// the values are exactly 1..N, with no duplicate competitor ids. An empty
// ladder is valid.
func Validate(entries []Entry) bool {
	positions := make(map[int]struct{}, len(entries))
	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Position < 1 || e.Position > len(entries) {
			return false
		}
		if _, dup := positions[e.Position]; dup {
			return false
		}
		if _, dup := ids[e.CompetitorID]; dup {
			return false
		}
		positions[e.Position] = struct{}{}
		ids[e.CompetitorID] = struct{}{}
	}
	return true
}

// EligibleDistance reports whether two ranks are close enough for a
// challenge: the absolute difference must be positive and at most maxDiff.
// Identity of the two parties is checked by the caller; this encodes only
// the numeric rule.
func EligibleDistance(rankA, rankB, maxDiff int) bool {
	diff := rankA - rankB
	if diff < 0 {
		diff = -diff
	}
	return diff > 0 && diff <= maxDiff
}

// ShiftOnResult computes the ladder after a completed match. The input slice
// is never mutated; callers receive a fresh slice in position order. Entries
// that do not form a valid ladder are rejected with ErrInvalidLadder.
//
// When winnerWon is false the better-ranked party defended and nothing
// moves. When the winner was already ranked at or above the loser nothing
// moves either: only an upset causes movement. On an upset the winner takes
// the loser's old position and every entry previously in [loserPos,
// winnerPos) slides down by one.
func ShiftOnResult(entries []Entry, winnerID, loserID string, winnerWon bool) ([]Entry, error) {
	if !Validate(entries) {
		return nil, ErrInvalidLadder
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })

	if !winnerWon {
		return out, nil
	}

	winnerPos, loserPos := 0, 0
	for _, e := range out {
		switch e.CompetitorID {
		case winnerID:
			winnerPos = e.Position
		case loserID:
			loserPos = e.Position
		}
	}
	if winnerPos == 0 {
		return nil, ErrCompetitorNotFound
	}
	if loserPos == 0 {
		return nil, ErrCompetitorNotFound
	}

	// Winner already at or above the loser: no movement.
	if winnerPos <= loserPos {
		return out, nil
	}

	for i := range out {
		switch {
		case out[i].CompetitorID == winnerID:
			out[i].Position = loserPos
		case out[i].Position >= loserPos && out[i].Position < winnerPos:
			out[i].Position++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}
