package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
)

// AccountHandler serves read-only account views. Account mutation happens
// through spreadsheet sync and seed files, not this API.
type AccountHandler struct {
	accounts interfaces.AccountStorage
	sheet    interfaces.Spreadsheet
	logger   arbor.ILogger
}

func NewAccountHandler(accounts interfaces.AccountStorage, sheet interfaces.Spreadsheet, logger arbor.ILogger) *AccountHandler {
	return &AccountHandler{accounts: accounts, sheet: sheet, logger: logger}
}

// ListHandler serves GET /api/accounts with sealed secrets stripped.
func (h *AccountHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	redacted := make([]*models.Account, 0, len(accounts))
	for _, account := range accounts {
		redacted = append(redacted, account.Redacted())
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": redacted,
		"count":    len(redacted),
	})
}

// SyncHandler serves POST /api/accounts/sync, forcing a spreadsheet
// re-read outside the scheduled path.
func (h *AccountHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	n, err := h.sheet.SyncAccounts(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Account sync failed: "+err.Error())
		return
	}

	h.logger.Info().Int("accounts", n).Msg("Accounts synced on demand")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "synced",
		"count":  n,
	})
}
