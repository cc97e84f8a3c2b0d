package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/services/window"
)

// StatusHandler aggregates the service's live state into one view.
type StatusHandler struct {
	queue     interfaces.JobQueue
	scheduler interfaces.SchedulerService
	accounts  interfaces.AccountStorage
	runs      interfaces.RunLogStorage
	gate      *window.Gate
	logger    arbor.ILogger
}

func NewStatusHandler(
	queue interfaces.JobQueue,
	scheduler interfaces.SchedulerService,
	accounts interfaces.AccountStorage,
	runs interfaces.RunLogStorage,
	gate *window.Gate,
	logger arbor.ILogger,
) *StatusHandler {
	return &StatusHandler{
		queue:     queue,
		scheduler: scheduler,
		accounts:  accounts,
		runs:      runs,
		gate:      gate,
		logger:    logger,
	}
}

// StatusHandler serves GET /api/status: queue stats, scheduler state,
// window decision, account and run counts, and the build version.
func (h *StatusHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := map[string]interface{}{
		"version": common.GetVersion(),
		"queue":   h.queue.Stats(),
		"window":  h.gate.Check(),
	}

	if sched, err := h.scheduler.Status(); err != nil {
		h.logger.Warn().Err(err).Msg("Scheduler status unavailable")
		status["scheduler"] = map[string]string{"error": err.Error()}
	} else {
		status["scheduler"] = sched
	}

	if n, err := h.accounts.Count(r.Context()); err == nil {
		status["accounts"] = n
	}
	if n, err := h.runs.Count(r.Context()); err == nil {
		status["runs"] = n
	}

	WriteJSON(w, http.StatusOK, status)
}
