package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
)

// SchedulerHandler exposes schedule inspection and mutation endpoints.
type SchedulerHandler struct {
	scheduler interfaces.SchedulerService
	validate  *validator.Validate
	logger    arbor.ILogger
}

func NewSchedulerHandler(scheduler interfaces.SchedulerService, logger arbor.ILogger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: scheduler,
		validate:  validator.New(),
		logger:    logger,
	}
}

type updateScheduleRequest struct {
	Hour   int `json:"hour" validate:"min=0,max=23"`
	Minute int `json:"minute" validate:"min=0,max=59"`
}

type pauseRequest struct {
	Paused      bool     `json:"paused"`
	PausedUntil string   `json:"paused_until,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PausedDates []string `json:"paused_dates,omitempty" validate:"dive,datetime=2006-01-02"`
}

// ScheduleHandler serves GET (current schedule and next firing) and PUT
// (retarget the daily time) on /api/schedule.
func (h *SchedulerHandler) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		status, err := h.scheduler.Status()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, status)

	case "PUT":
		var req updateScheduleRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid schedule time: "+err.Error())
			return
		}
		if err := h.scheduler.UpdateSchedule(req.Hour, req.Minute); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		status, err := h.scheduler.Status()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, status)

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// PauseHandler suspends scheduled firing per the submitted pause rules.
func (h *SchedulerHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req pauseRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid pause config: "+err.Error())
		return
	}

	cfg := &models.PauseConfig{
		Paused:      req.Paused,
		PausedUntil: req.PausedUntil,
		PausedDates: req.PausedDates,
	}
	if err := h.scheduler.Pause(r.Context(), cfg); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteSuccess(w, "Pause configuration updated")
}

// ResumeHandler clears all pause state.
func (h *SchedulerHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if err := h.scheduler.Resume(r.Context()); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteSuccess(w, "Scheduler resumed")
}
