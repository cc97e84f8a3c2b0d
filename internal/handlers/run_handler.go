package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/interfaces"
)

const defaultRunListLimit = 50

// RunHandler serves the append-only authentication run history.
type RunHandler struct {
	runs   interfaces.RunLogStorage
	logger arbor.ILogger
}

func NewRunHandler(runs interfaces.RunLogStorage, logger arbor.ILogger) *RunHandler {
	return &RunHandler{runs: runs, logger: logger}
}

// ListHandler serves GET /api/runs with optional account_id, limit and
// offset query parameters. Results are newest-first.
func (h *RunHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	opts := &interfaces.RunLogListOptions{
		AccountID: r.URL.Query().Get("account_id"),
		Limit:     defaultRunListLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			WriteError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		opts.Offset = offset
	}

	runs, err := h.runs.List(r.Context(), opts)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := h.runs.Count(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
		"total": total,
	})
}
