// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rackline/ladder/internal/domain/challenge"
)

// ChallengeDependencies defines the interface for challenge operations.
type ChallengeDependencies interface {
	CreateChallenge(ctx context.Context, challengerID, challengedID, discipline string, raceTo int) (challenge.Challenge, error)
	RespondToChallenge(ctx context.Context, challengeID, actorID string, action challenge.Action) (challenge.Challenge, error)
	GetChallenge(ctx context.Context, id string) (challenge.Challenge, error)
	ChallengesFor(ctx context.Context, competitorID string) ([]challenge.Challenge, error)
}

// ChallengesHandler handles challenge requests.
type ChallengesHandler struct {
	deps ChallengeDependencies
}

// NewChallengesHandler creates a new challenges handler.
func NewChallengesHandler(deps ChallengeDependencies) *ChallengesHandler {
	return &ChallengesHandler{deps: deps}
}

// createChallengeRequest mirrors the OpenAPI schema for POST /challenges.
type createChallengeRequest struct {
	ChallengerID string `json:"challenger_id"`
	ChallengedID string `json:"challenged_id"`
	Discipline   string `json:"discipline"`
	RaceTo       int    `json:"race_to"`
}

func (r createChallengeRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ChallengerID) == "":
		return errors.New("missing challenger_id")
	case strings.TrimSpace(r.ChallengedID) == "":
		return errors.New("missing challenged_id")
	case strings.TrimSpace(r.Discipline) == "":
		return errors.New("missing discipline")
	case r.RaceTo < 1:
		return errors.New("race_to must be positive")
	}
	return nil
}

// respondRequest mirrors the OpenAPI schema for POST /challenges/{id}/respond.
type respondRequest struct {
	ActorID       string `json:"actor_id"`
	Action        string `json:"action"`
	Venue         string `json:"venue,omitempty"`
	ScheduledTime string `json:"scheduled_time,omitempty"`
}

// action converts the wire form into a domain action. Expiry is not a
// caller action: it is an external timeout signal applied through the
// service layer by whatever schedules deadlines, so the public endpoint
// rejects it like any unknown action.
func (r respondRequest) action() (challenge.Action, error) {
	switch r.Action {
	case "propose", "counter":
		if strings.TrimSpace(r.Venue) == "" {
			return nil, errors.New("missing venue")
		}
		when, err := time.Parse(time.RFC3339, r.ScheduledTime)
		if err != nil {
			return nil, errors.New("invalid scheduled_time; must be RFC3339")
		}
		if r.Action == "propose" {
			return challenge.Propose{Venue: r.Venue, Time: when}, nil
		}
		return challenge.Counter{Venue: r.Venue, Time: when}, nil
	case "confirm":
		return challenge.Confirm{}, nil
	case "decline":
		return challenge.Decline{}, nil
	case "cancel":
		return challenge.Cancel{}, nil
	default:
		return nil, errors.New("unknown action")
	}
}

// HandleChallenges handles POST /challenges and GET /challenges?competitor=.
func (h *ChallengesHandler) HandleChallenges(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreate(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *ChallengesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_challenge"
	var req createChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ch, err := h.deps.CreateChallenge(r.Context(), req.ChallengerID, req.ChallengedID, req.Discipline, req.RaceTo)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (h *ChallengesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_challenges"
	competitor := r.URL.Query().Get("competitor")
	if competitor == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	list, err := h.deps.ChallengesFor(r.Context(), competitor)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if list == nil {
		list = []challenge.Challenge{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleChallenge handles GET /challenges/{id} and POST /challenges/{id}/respond.
func (h *ChallengesHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/challenges/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case rest == "respond" && r.Method == http.MethodPost:
		h.handleRespond(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *ChallengesHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_challenge"
	ch, err := h.deps.GetChallenge(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *ChallengesHandler) handleRespond(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.respond_challenge"
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.ActorID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	action, err := req.action()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ch, err := h.deps.RespondToChallenge(r.Context(), id, req.ActorID, action)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}
