// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rackline/ladder/internal/domain/match"
	"github.com/rackline/ladder/internal/domain/score"
)

// MatchDependencies defines the interface for match operations.
type MatchDependencies interface {
	SubmitMatchScore(ctx context.Context, matchID, actorID string, sub match.Submission) (match.Match, error)
	GetMatch(ctx context.Context, id string) (match.Match, error)
	MatchesFor(ctx context.Context, competitorID string) ([]match.Match, error)
}

// MatchesHandler handles match requests.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// scoreRequest mirrors the OpenAPI schema for POST /matches/{id}/score.
// Game counts are from the submitter's perspective.
type scoreRequest struct {
	ActorID       string `json:"actor_id"`
	MyGames       int    `json:"my_games"`
	OpponentGames int    `json:"opponent_games"`
	LivestreamURL string `json:"livestream_url,omitempty"`
}

func (r scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ActorID) == "":
		return errors.New("missing actor_id")
	case r.MyGames < 0 || r.OpponentGames < 0:
		return errors.New("game counts must not be negative")
	}
	return nil
}

// HandleMatches handles GET /matches?competitor=.
func (h *MatchesHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_matches"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	competitor := r.URL.Query().Get("competitor")
	if competitor == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	list, err := h.deps.MatchesFor(r.Context(), competitor)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if list == nil {
		list = []match.Match{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleMatch handles GET /matches/{id} and POST /matches/{id}/score.
func (h *MatchesHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/matches/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case rest == "score" && r.Method == http.MethodPost:
		h.handleScore(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *MatchesHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_match"
	m, err := h.deps.GetMatch(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MatchesHandler) handleScore(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.submit_score"
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sub := match.Submission{
		Submission: score.Submission{
			MyGames:       req.MyGames,
			OpponentGames: req.OpponentGames,
		},
		LivestreamURL: req.LivestreamURL,
	}
	m, err := h.deps.SubmitMatchScore(r.Context(), id, req.ActorID, sub)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
