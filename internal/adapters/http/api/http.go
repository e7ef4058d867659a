// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	repository "github.com/rackline/ladder/internal/adapters/repository"
	service "github.com/rackline/ladder/internal/app"
	"github.com/rackline/ladder/internal/domain/challenge"
	"github.com/rackline/ladder/internal/domain/match"
	"github.com/rackline/ladder/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Challenge lifecycle.
	CreateChallenge(ctx context.Context, challengerID, challengedID, discipline string, raceTo int) (challenge.Challenge, error)
	RespondToChallenge(ctx context.Context, challengeID, actorID string, action challenge.Action) (challenge.Challenge, error)
	GetChallenge(ctx context.Context, id string) (challenge.Challenge, error)
	ChallengesFor(ctx context.Context, competitorID string) ([]challenge.Challenge, error)

	// Match scoring.
	SubmitMatchScore(ctx context.Context, matchID, actorID string, sub match.Submission) (match.Match, error)
	GetMatch(ctx context.Context, id string) (match.Match, error)
	MatchesFor(ctx context.Context, competitorID string) ([]match.Match, error)

	// Ladder reads and registration.
	Ladder(ctx context.Context, limit int) ([]Entry, error)
	Rank(ctx context.Context, competitorID string) (Entry, error)
	AddCompetitor(ctx context.Context, competitorID string) (Entry, error)
}

// Entry mirrors the read shape returned by ladder queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	challengesHandler *ChallengesHandler
	matchesHandler    *MatchesHandler
	ladderHandler     *LadderHandler
	rankHandler       *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLadderLimit int) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		challengesHandler: NewChallengesHandler(deps),
		matchesHandler:    NewMatchesHandler(deps),
		ladderHandler:     NewLadderHandler(deps, maxLadderLimit),
		rankHandler:       NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/challenges", MetricsMiddleware(s.challengesHandler.HandleChallenges, "challenges"))
	mux.HandleFunc("/challenges/", MetricsMiddleware(s.challengesHandler.HandleChallenge, "challenges"))
	mux.HandleFunc("/matches", MetricsMiddleware(s.matchesHandler.HandleMatches, "matches"))
	mux.HandleFunc("/matches/", MetricsMiddleware(s.matchesHandler.HandleMatch, "matches"))
	mux.HandleFunc("/competitors", MetricsMiddleware(s.ladderHandler.HandlePostCompetitor, "competitors"))
	mux.HandleFunc("/ladder", MetricsMiddleware(s.ladderHandler.HandleGetLadder, "ladder"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates engine errors into response codes:
// malformed input is 400 at the call sites, failed business validation
// is 422, state and concurrency conflicts are 409, unknown ids are 404.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))

	case errors.Is(err, repository.ErrVersionConflict),
		errors.Is(err, repository.ErrDuplicateID),
		errors.Is(err, repository.ErrAlreadyRanked),
		errors.Is(err, challenge.ErrInvalidTransition),
		errors.Is(err, challenge.ErrChallengeClosed),
		errors.Is(err, challenge.ErrOwnProposal),
		errors.Is(err, challenge.ErrWrongActor),
		errors.Is(err, match.ErrNotScheduled):
		writeError(w, http.StatusConflict, "conflict", Wrap(op, err))

	case errors.Is(err, service.ErrSelfChallenge),
		errors.Is(err, service.ErrUnranked),
		errors.Is(err, service.ErrRankDistanceExceeded),
		errors.Is(err, service.ErrRaceTooShort),
		errors.Is(err, challenge.ErrNotParticipant),
		errors.Is(err, match.ErrNotParticipant):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", Wrap(op, err))

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// pathID extracts the id segment from paths like /challenges/{id} or
// /matches/{id}/score. The remainder after the id is returned as well.
func pathID(path, prefix string) (id, rest string) {
	trimmed := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i], trimmed[i+1:]
	}
	return trimmed, ""
}
