package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rackline/ladder/internal/domain/challenge"
	"github.com/rackline/ladder/internal/domain/ladder"
	"github.com/rackline/ladder/internal/domain/match"
	"github.com/rackline/ladder/pkg/metrics"
)

// MemStore implements Store in memory. A single RWMutex serializes
// mutations, which is exactly the "one committed transition at a time"
// guarantee the engine expects from its store.
type MemStore struct {
	mu         sync.RWMutex
	entries    map[string]ladder.Entry     // competitor id -> entry
	challenges map[string]challenge.Challenge
	matches    map[string]match.Match
	applied    map[string]time.Time // match id -> shift application time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(ctx context.Context) *MemStore {
	return &MemStore{
		entries:    make(map[string]ladder.Entry),
		challenges: make(map[string]challenge.Challenge),
		matches:    make(map[string]match.Match),
		applied:    make(map[string]time.Time),
	}
}

// SeedLadder replaces the whole ladder.
func (s *MemStore) SeedLadder(ctx context.Context, entries []ladder.Entry) error {
	if !ladder.Validate(entries) {
		return ErrInvalidLadder
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]ladder.Entry, len(entries))
	for _, e := range entries {
		s.entries[e.CompetitorID] = e
	}
	metrics.UpdateLadderSize(len(s.entries))
	return nil
}

// AddCompetitor appends a competitor at the bottom of the ladder.
func (s *MemStore) AddCompetitor(ctx context.Context, competitorID string) (ladder.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[competitorID]; exists {
		return ladder.Entry{}, ErrAlreadyRanked
	}
	entry := ladder.Entry{CompetitorID: competitorID, Position: len(s.entries) + 1}
	s.entries[competitorID] = entry
	metrics.UpdateLadderSize(len(s.entries))
	return entry, nil
}

// Ladder returns all entries in position order.
func (s *MemStore) Ladder(ctx context.Context) ([]ladder.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ladder.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// Rank returns the entry for one competitor.
func (s *MemStore) Rank(ctx context.Context, competitorID string) (ladder.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[competitorID]
	if !exists {
		return ladder.Entry{}, ErrNotFound
	}
	return entry, nil
}

// ApplyShift recomputes the ladder for one match result at most once per
// match id. The read, the shift and the write all happen under the write
// lock, so two completing matches can never clobber each other's moves.
func (s *MemStore) ApplyShift(ctx context.Context, matchID, winnerID, loserID string) (bool, int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.applied[matchID]; done {
		return false, 0, nil
	}

	current := make([]ladder.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		current = append(current, e)
	}
	shifted, err := ladder.ShiftOnResult(current, winnerID, loserID, true)
	if err != nil {
		return false, 0, err
	}

	distance := shiftDistance(s.entries[winnerID].Position, shifted, winnerID)

	s.applied[matchID] = time.Now().UTC()
	s.entries = make(map[string]ladder.Entry, len(shifted))
	for _, e := range shifted {
		s.entries[e.CompetitorID] = e
	}
	return true, distance, nil
}

// CreateChallenge stores a new challenge.
func (s *MemStore) CreateChallenge(ctx context.Context, ch challenge.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.challenges[ch.ID]; exists {
		return ErrDuplicateID
	}
	ch.Version = 1
	s.challenges[ch.ID] = ch
	return nil
}

// GetChallenge returns a challenge by id.
func (s *MemStore) GetChallenge(ctx context.Context, id string) (challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, exists := s.challenges[id]
	if !exists {
		return challenge.Challenge{}, ErrNotFound
	}
	return ch, nil
}

// UpdateChallenge writes ch under the optimistic version rule.
func (s *MemStore) UpdateChallenge(ctx context.Context, ch challenge.Challenge) (challenge.Challenge, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.challenges[ch.ID]
	if !exists {
		return challenge.Challenge{}, ErrNotFound
	}
	if current.Version != ch.Version {
		return challenge.Challenge{}, ErrVersionConflict
	}
	ch.Version++
	s.challenges[ch.ID] = ch
	return ch, nil
}

// ChallengesFor lists a competitor's challenges, newest first.
func (s *MemStore) ChallengesFor(ctx context.Context, competitorID string) ([]challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []challenge.Challenge
	for _, ch := range s.challenges {
		if ch.ChallengerID == competitorID || ch.ChallengedID == competitorID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreateMatch stores a new match.
func (s *MemStore) CreateMatch(ctx context.Context, m match.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.matches[m.ID]; exists {
		return ErrDuplicateID
	}
	m.Version = 1
	s.matches[m.ID] = cloneMatch(m)
	return nil
}

// GetMatch returns a match by id.
func (s *MemStore) GetMatch(ctx context.Context, id string) (match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.matches[id]
	if !exists {
		return match.Match{}, ErrNotFound
	}
	return cloneMatch(m), nil
}

// UpdateMatch writes m under the optimistic version rule.
func (s *MemStore) UpdateMatch(ctx context.Context, m match.Match) (match.Match, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.matches[m.ID]
	if !exists {
		return match.Match{}, ErrNotFound
	}
	if current.Version != m.Version {
		return match.Match{}, ErrVersionConflict
	}
	m.Version++
	stored := cloneMatch(m)
	s.matches[m.ID] = stored
	return cloneMatch(stored), nil
}

// MatchesFor lists a competitor's matches, newest first.
func (s *MemStore) MatchesFor(ctx context.Context, competitorID string) ([]match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []match.Match
	for _, m := range s.matches {
		if m.ChallengerID == competitorID || m.ChallengedID == competitorID {
			out = append(out, cloneMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.After(out[j].ScheduledTime) })
	return out, nil
}

// Count returns the number of ranked competitors.
func (s *MemStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cloneMatch deep-copies the submission slots so callers cannot alias
// stored state.
func cloneMatch(m match.Match) match.Match {
	out := m
	if m.ChallengerSubmission != nil {
		sub := *m.ChallengerSubmission
		out.ChallengerSubmission = &sub
	}
	if m.ChallengedSubmission != nil {
		sub := *m.ChallengedSubmission
		out.ChallengedSubmission = &sub
	}
	return out
}
