package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
	"github.com/ternarybob/aditus/internal/services/window"
)

// JobHandler exposes single-job and batch submission plus queue stats.
type JobHandler struct {
	queue    interfaces.JobQueue
	accounts interfaces.AccountStorage
	gate     *window.Gate
	logger   arbor.ILogger
}

func NewJobHandler(queue interfaces.JobQueue, accounts interfaces.AccountStorage, gate *window.Gate, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		queue:    queue,
		accounts: accounts,
		gate:     gate,
		logger:   logger,
	}
}

type runJobRequest struct {
	AccountID string `json:"account_id"`
	Headful   bool   `json:"headful,omitempty"`
}

// RunJobHandler enqueues one account's login job. A single-account run is
// an operator debugging action and is not subject to the operating window.
func (h *JobHandler) RunJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req runJobRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.AccountID == "" {
		WriteError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	account, err := h.accounts.GetByID(r.Context(), req.AccountID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if account == nil {
		WriteError(w, http.StatusNotFound, "Account not found")
		return
	}

	job := &models.Job{AccountID: req.AccountID, Headful: req.Headful}
	if !h.queue.Enqueue(job) {
		WriteJSON(w, http.StatusConflict, map[string]string{
			"status": "dropped",
			"reason": "a job for this account is already pending or running",
		})
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":  "queued",
		"job_id":  job.ID,
		"account": account.Name,
	})
}

// RunBatchHandler starts a batch over all active accounts. Manual batches
// are admitted only inside the configured operating window.
func (h *JobHandler) RunBatchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if decision := h.gate.Check(); !decision.Allowed {
		h.logger.Info().Str("reason", decision.Reason).Msg("Manual batch rejected by time window gate")
		WriteJSON(w, http.StatusForbidden, decision)
		return
	}

	active, err := h.accounts.ListActive(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	batchID := h.queue.StartBatch(len(active))
	enqueued := 0
	for _, account := range active {
		if h.queue.Enqueue(&models.Job{AccountID: account.ID, BatchID: batchID}) {
			enqueued++
		}
	}

	h.logger.Info().
		Str("batch_id", batchID).
		Int("accounts", len(active)).
		Int("enqueued", enqueued).
		Msg("Manual batch started")

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":   "started",
		"batch_id": batchID,
		"total":    len(active),
		"enqueued": enqueued,
	})
}

// BatchProgressHandler reports completed/total for an active batch.
// Handles GET /api/batch/{id}.
func (h *JobHandler) BatchProgressHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	batchID := strings.TrimPrefix(r.URL.Path, "/api/batch/")
	if batchID == "" || strings.Contains(batchID, "/") {
		WriteError(w, http.StatusBadRequest, "Batch ID is required")
		return
	}

	progress, ok := h.queue.BatchProgress(batchID)
	if !ok {
		WriteError(w, http.StatusNotFound, "Batch not found or already completed")
		return
	}
	WriteJSON(w, http.StatusOK, progress)
}

// QueueStatsHandler reports queue depth, running count and batch progress.
func (h *JobHandler) QueueStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, h.queue.Stats())
}
