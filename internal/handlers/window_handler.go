package handlers

import (
	"net/http"

	"github.com/ternarybob/aditus/internal/services/window"
)

// WindowHandler exposes the manual batch operating window.
type WindowHandler struct {
	gate *window.Gate
}

func NewWindowHandler(gate *window.Gate) *WindowHandler {
	return &WindowHandler{gate: gate}
}

// CheckHandler reports whether a manual batch would be admitted right now
// and, when the window is closed, when it next opens.
func (h *WindowHandler) CheckHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, h.gate.Check())
}
