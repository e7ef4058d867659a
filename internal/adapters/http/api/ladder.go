// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// LadderDependencies defines the interface for ladder operations.
type LadderDependencies interface {
	Ladder(ctx context.Context, limit int) ([]Entry, error)
	AddCompetitor(ctx context.Context, competitorID string) (Entry, error)
}

// LadderHandler handles ladder requests.
type LadderHandler struct {
	deps     LadderDependencies
	maxLimit int
}

// NewLadderHandler creates a new ladder handler.
func NewLadderHandler(deps LadderDependencies, maxLimit int) *LadderHandler {
	return &LadderHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLadder handles GET /ladder?limit=N requests. The limit is
// optional; absent means the whole ladder, capped at maxLimit.
func (h *LadderHandler) HandleGetLadder(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ladder"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	entries, err := h.deps.Ladder(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// competitorRequest mirrors the OpenAPI schema for POST /competitors.
type competitorRequest struct {
	CompetitorID string `json:"competitor_id"`
}

// HandlePostCompetitor handles POST /competitors requests, appending a
// competitor at the bottom of the ladder.
func (h *LadderHandler) HandlePostCompetitor(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_competitor"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req competitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.CompetitorID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing competitor_id")))
		return
	}

	entry, err := h.deps.AddCompetitor(r.Context(), req.CompetitorID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
