// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/rackline/ladder/internal/adapters/mq/queue"
	workerpool "github.com/rackline/ladder/internal/adapters/mq/worker"
	"github.com/rackline/ladder/internal/adapters/notify"
	repository "github.com/rackline/ladder/internal/adapters/repository"
	"github.com/rackline/ladder/internal/domain/challenge"
	"github.com/rackline/ladder/internal/domain/dedupe"
	"github.com/rackline/ladder/internal/domain/ladder"
	"github.com/rackline/ladder/internal/domain/match"
	"github.com/rackline/ladder/internal/domain/model"
	"github.com/rackline/ladder/internal/domain/types"
	"github.com/rackline/ladder/pkg/logger"
	"github.com/rackline/ladder/pkg/metrics"
)

// maxWriteRetries bounds the read-validate-write loop when concurrent
// actors race on the same challenge or match.
const maxWriteRetries = 3

// Service implements the API dependencies for the ladder engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	guard      dedupe.Guard
	eventQueue eventqueue.Queue
	pool       *workerpool.Pool
	sinks      []notify.Sink

	// Configuration
	minRace         int
	maxRankDiff     int
	queueSize       int
	dispatchWorkers int
	guardSize       int

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSinks sets the notification sinks events are dispatched to.
func WithSinks(sinks ...notify.Sink) Option {
	return func(s *Service) {
		s.sinks = sinks
	}
}

// WithMinRace sets the smallest allowed race-to target.
func WithMinRace(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minRace = n
		}
	}
}

// WithMaxRankDiff sets how far across the ladder a challenge may reach.
func WithMaxRankDiff(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRankDiff = n
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDispatchWorkers sets the number of dispatch goroutines.
func WithDispatchWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.dispatchWorkers = count
		}
	}
}

// WithReplayGuardSize sets the size of the shift replay guard window.
func WithReplayGuardSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.guardSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		minRace:         3,
		maxRankDiff:     2,
		queueSize:       10_000,
		dispatchWorkers: runtime.NumCPU() * 2,
		guardSize:       100_000,
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting ladder service...")

	if s.store == nil {
		s.store = repository.NewMemStore(ctx)
		s.logger.Info(ctx, "using in-memory store")
	}
	s.guard = dedupe.NewReplayGuard(
		dedupe.WithMaxSize(s.guardSize),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)
	if len(s.sinks) == 0 {
		s.sinks = []notify.Sink{notify.NewLogSink()}
	}

	s.pool = workerpool.NewPool(s.dispatchWorkers, s.eventQueue, s.sinks)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ladder service started",
		logger.Int("dispatchWorkers", s.dispatchWorkers),
		logger.Int("queueSize", s.queueSize),
		logger.Int("guardSize", s.guardSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ladder service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if s.store != nil {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "ladder service stopped")
}

// requireStarted rejects operations until Start has wired the store and
// the event pipeline.
func (s *Service) requireStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// SeedLadder installs an initial ladder, replacing any existing one.
func (s *Service) SeedLadder(ctx context.Context, entries []ladder.Entry) error {
	if err := s.requireStarted(); err != nil {
		return err
	}
	return s.store.SeedLadder(ctx, entries)
}

// AddCompetitor registers a competitor at the bottom of the ladder.
func (s *Service) AddCompetitor(ctx context.Context, competitorID string) (types.Entry, error) {
	if err := s.requireStarted(); err != nil {
		return types.Entry{}, err
	}
	entry, err := s.store.AddCompetitor(ctx, competitorID)
	if err != nil {
		return types.Entry{}, err
	}
	return types.Entry{
		Rank:         entry.Position,
		CompetitorID: entry.CompetitorID,
		Score:        entry.Score,
	}, nil
}

// Ladder returns up to limit entries from the top of the ladder. A
// non-positive limit returns the whole ladder.
func (s *Service) Ladder(ctx context.Context, limit int) ([]types.Entry, error) {
	if err := s.requireStarted(); err != nil {
		return nil, err
	}
	entries, err := s.store.Ladder(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.Entry{
			Rank:         e.Position,
			CompetitorID: e.CompetitorID,
			Score:        e.Score,
		}
	}
	return out, nil
}

// Rank returns the ladder entry for one competitor.
func (s *Service) Rank(ctx context.Context, competitorID string) (types.Entry, error) {
	if err := s.requireStarted(); err != nil {
		return types.Entry{}, err
	}
	entry, err := s.store.Rank(ctx, competitorID)
	if err != nil {
		return types.Entry{}, err
	}
	return types.Entry{
		Rank:         entry.Position,
		CompetitorID: entry.CompetitorID,
		Score:        entry.Score,
	}, nil
}

// CreateChallenge validates eligibility and stores a new pending
// challenge.
func (s *Service) CreateChallenge(ctx context.Context, challengerID, challengedID, discipline string, raceTo int) (challenge.Challenge, error) {
	if err := s.requireStarted(); err != nil {
		return challenge.Challenge{}, err
	}
	if challengerID == challengedID {
		return challenge.Challenge{}, ErrSelfChallenge
	}
	if raceTo < s.minRace {
		return challenge.Challenge{}, fmt.Errorf("%w: race to %d, minimum %d", ErrRaceTooShort, raceTo, s.minRace)
	}

	challengerEntry, err := s.store.Rank(ctx, challengerID)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("%w: %s", ErrUnranked, challengerID)
	}
	challengedEntry, err := s.store.Rank(ctx, challengedID)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("%w: %s", ErrUnranked, challengedID)
	}

	if !ladder.EligibleDistance(challengerEntry.Position, challengedEntry.Position, s.maxRankDiff) {
		return challenge.Challenge{}, fmt.Errorf("%w: ranks %d and %d, window %d",
			ErrRankDistanceExceeded, challengerEntry.Position, challengedEntry.Position, s.maxRankDiff)
	}

	ch := challenge.Challenge{
		ID:           uuid.NewString(),
		ChallengerID: challengerID,
		ChallengedID: challengedID,
		Discipline:   discipline,
		RaceTo:       raceTo,
		Status:       challenge.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateChallenge(ctx, ch); err != nil {
		return challenge.Challenge{}, err
	}
	ch.Version = 1

	metrics.RecordChallengeCreated()
	s.emit(ctx, model.Event{
		Kind:        model.EventChallengeCreated,
		ChallengeID: ch.ID,
		ActorID:     challengerID,
	})
	return ch, nil
}

// RespondToChallenge applies one lifecycle action to a challenge under
// the store's version check. Locking a challenge also schedules its
// match.
func (s *Service) RespondToChallenge(ctx context.Context, challengeID, actorID string, action challenge.Action) (challenge.Challenge, error) {
	if err := s.requireStarted(); err != nil {
		return challenge.Challenge{}, err
	}
	var updated challenge.Challenge
	for attempt := 0; ; attempt++ {
		current, err := s.store.GetChallenge(ctx, challengeID)
		if err != nil {
			return challenge.Challenge{}, err
		}

		next, err := challenge.Apply(current, actorID, action, time.Now().UTC())
		if err != nil {
			return challenge.Challenge{}, err
		}

		updated, err = s.store.UpdateChallenge(ctx, next)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrVersionConflict) && attempt < maxWriteRetries {
			metrics.RecordVersionConflict("challenge")
			continue
		}
		return challenge.Challenge{}, err
	}

	metrics.RecordChallengeTransition(action.Name())

	if updated.Status == challenge.StatusLocked {
		m := match.Match{
			ID:            uuid.NewString(),
			ChallengeID:   updated.ID,
			ChallengerID:  updated.ChallengerID,
			ChallengedID:  updated.ChallengedID,
			RaceTo:        updated.RaceTo,
			Venue:         updated.Venue,
			ScheduledTime: updated.ScheduledTime,
			Status:        match.StatusScheduled,
		}
		if err := s.store.CreateMatch(ctx, m); err != nil {
			return challenge.Challenge{}, err
		}
		s.emit(ctx, model.Event{
			Kind:        model.EventChallengeLocked,
			ChallengeID: updated.ID,
			MatchID:     m.ID,
			ActorID:     actorID,
		})
		return updated, nil
	}

	s.emit(ctx, model.Event{
		Kind:        transitionEventKind(action, updated.Status),
		ChallengeID: updated.ID,
		ActorID:     actorID,
	})
	return updated, nil
}

// transitionEventKind maps a non-locking action to its event kind.
func transitionEventKind(action challenge.Action, status challenge.Status) model.EventKind {
	switch action.(type) {
	case challenge.Propose:
		return model.EventVenueProposed
	case challenge.Counter:
		return model.EventVenueCountered
	case challenge.Decline:
		return model.EventChallengeDeclined
	case challenge.Cancel:
		return model.EventChallengeCancelled
	case challenge.Expire:
		return model.EventChallengeExpired
	}
	// Confirm is handled by the caller via the locked branch.
	if status == challenge.StatusLocked {
		return model.EventChallengeLocked
	}
	return model.EventChallengeCreated
}

// GetChallenge returns one challenge by id.
func (s *Service) GetChallenge(ctx context.Context, id string) (challenge.Challenge, error) {
	if err := s.requireStarted(); err != nil {
		return challenge.Challenge{}, err
	}
	return s.store.GetChallenge(ctx, id)
}

// ChallengesFor lists a competitor's challenges, newest first.
func (s *Service) ChallengesFor(ctx context.Context, competitorID string) ([]challenge.Challenge, error) {
	if err := s.requireStarted(); err != nil {
		return nil, err
	}
	return s.store.ChallengesFor(ctx, competitorID)
}

// SubmitMatchScore records one side's score report and, once both sides
// have reported, reconciles the match and applies any rank shift.
// Submitting to an already-completed match is an idempotent replay that
// returns the settled match unchanged.
func (s *Service) SubmitMatchScore(ctx context.Context, matchID, actorID string, sub match.Submission) (match.Match, error) {
	if err := s.requireStarted(); err != nil {
		return match.Match{}, err
	}
	sub.SubmittedAt = time.Now().UTC()

	var updated match.Match
	var outcome match.Outcome
	for attempt := 0; ; attempt++ {
		current, err := s.store.GetMatch(ctx, matchID)
		if err != nil {
			return match.Match{}, err
		}

		// A completed match only re-drives the shift: the dedup makes
		// the healthy case a no-op, and a shift that failed after the
		// match record committed gets another chance to apply.
		if current.Status == match.StatusCompleted {
			if actorID != current.ChallengerID && actorID != current.ChallengedID {
				return match.Match{}, match.ErrNotParticipant
			}
			if err := s.applyShift(ctx, current); err != nil {
				return current, err
			}
			return current, nil
		}

		next, err := match.Record(current, actorID, sub)
		if err != nil {
			return match.Match{}, err
		}

		outcome = match.Reconcile(next)
		if outcome.Final {
			if outcome.Disputed {
				next.Status = match.StatusDisputed
				next.DisputeReason = outcome.Reason
			} else {
				next.Status = match.StatusCompleted
				next.WinnerID = outcome.WinnerID
			}
		}

		updated, err = s.store.UpdateMatch(ctx, next)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrVersionConflict) && attempt < maxWriteRetries {
			metrics.RecordVersionConflict("match")
			continue
		}
		return match.Match{}, err
	}

	if !outcome.Final {
		return updated, nil
	}

	if outcome.Disputed {
		metrics.RecordMatchDisputed()
		s.emit(ctx, model.Event{
			Kind:        model.EventMatchDisputed,
			ChallengeID: updated.ChallengeID,
			MatchID:     updated.ID,
			ActorID:     actorID,
		})
		return updated, nil
	}

	metrics.RecordMatchCompleted()
	s.emit(ctx, model.Event{
		Kind:        model.EventMatchCompleted,
		ChallengeID: updated.ChallengeID,
		MatchID:     updated.ID,
		ActorID:     actorID,
		WinnerID:    updated.WinnerID,
	})

	if err := s.applyShift(ctx, updated); err != nil {
		s.logger.Error(ctx, "rank shift failed",
			logger.String("match_id", updated.ID),
			logger.Error(err),
		)
		return updated, err
	}
	return updated, nil
}

// applyShift moves the winner into the loser's position at most once per
// match. The store recomputes the shift from current ladder state inside
// its own critical section, so completed matches can never erase each
// other's movement. The in-process guard is a fast path; the store's own
// dedup is authoritative.
func (s *Service) applyShift(ctx context.Context, m match.Match) error {
	if s.guard.SeenAndRecord(ctx, m.ID) {
		metrics.RecordShiftReplay()
		return nil
	}

	applied, distance, err := s.store.ApplyShift(ctx, m.ID, m.WinnerID, m.Loser(m.WinnerID))
	if err != nil {
		s.guard.Unrecord(ctx, m.ID)
		return err
	}
	if !applied {
		metrics.RecordShiftReplay()
		return nil
	}

	metrics.RecordLadderShift(distance)
	s.emit(ctx, model.Event{
		Kind:        model.EventLadderShifted,
		ChallengeID: m.ChallengeID,
		MatchID:     m.ID,
		WinnerID:    m.WinnerID,
	})
	return nil
}

// GetMatch returns one match by id.
func (s *Service) GetMatch(ctx context.Context, id string) (match.Match, error) {
	if err := s.requireStarted(); err != nil {
		return match.Match{}, err
	}
	return s.store.GetMatch(ctx, id)
}

// MatchesFor lists a competitor's matches, newest first.
func (s *Service) MatchesFor(ctx context.Context, competitorID string) ([]match.Match, error) {
	if err := s.requireStarted(); err != nil {
		return nil, err
	}
	return s.store.MatchesFor(ctx, competitorID)
}

// emit queues an event for asynchronous delivery. Delivery is
// best-effort; a full queue drops the event and the mutation stands.
func (s *Service) emit(ctx context.Context, e model.Event) {
	e.ID = uuid.NewString()
	e.OccurredAt = time.Now().UTC()
	if !s.eventQueue.Enqueue(ctx, e) {
		s.logger.Warn(ctx, "event dropped",
			logger.String("kind", string(e.Kind)),
			logger.String("challenge_id", e.ChallengeID),
		)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"dispatchWorkers": s.dispatchWorkers,
		"queueSize":       s.queueSize,
		"minRace":         s.minRace,
		"maxRankDiff":     s.maxRankDiff,
	}

	if s.started {
		queueLen := s.eventQueue.Len(ctx)
		ladderSize := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["ladderSize"] = ladderSize

		metrics.UpdateEventQueueSize(queueLen)
		metrics.UpdateLadderSize(ladderSize)
	}

	return stats
}
