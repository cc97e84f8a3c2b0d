// -----------------------------------------------------------------------
// Spreadsheet collaborator - CSV account sheet and result write-back
// -----------------------------------------------------------------------

package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
)

// accountColumns is the expected header of the account sheet.
var accountColumns = []string{"name", "login_url", "username", "password", "second_factor", "second_factor_kind", "active"}

// resultColumns is the header written to a fresh result sheet.
var resultColumns = []string{"timestamp", "account", "status", "token_issued", "duration_ms", "message", "final_url"}

// Service is the spreadsheet collaborator: it resyncs accounts from a CSV
// sheet maintained by the operators and appends one row per completed run
// to a result sheet. Both directions are best-effort from the caller's
// point of view.
type Service struct {
	mu           sync.Mutex
	accountsPath string
	resultsPath  string
	accounts     interfaces.AccountStorage
	box          *common.SecretBox
	logger       arbor.ILogger
}

// NewService builds the collaborator.
func NewService(cfg common.SpreadsheetConfig, accounts interfaces.AccountStorage, box *common.SecretBox, logger arbor.ILogger) *Service {
	return &Service{
		accountsPath: cfg.AccountsPath,
		resultsPath:  cfg.ResultsPath,
		accounts:     accounts,
		box:          box,
		logger:       logger,
	}
}

// SyncAccounts re-reads the account sheet and upserts the account store.
// Identifiers of existing accounts (matched by name) are preserved.
// Returns the number of rows applied.
func (s *Service) SyncAccounts(ctx context.Context) (int, error) {
	if s.accountsPath == "" {
		return 0, nil
	}

	f, err := os.Open(s.accountsPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("path", s.accountsPath).Msg("Account sheet not found, sync skipped")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open account sheet: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(accountColumns)
	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to parse account sheet: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := validateHeader(rows[0]); err != nil {
		return 0, err
	}

	synced := 0
	for i, row := range rows[1:] {
		account, err := s.rowToAccount(ctx, row)
		if err != nil {
			s.logger.Warn().Err(err).Int("row", i+2).Msg("Account sheet row skipped")
			continue
		}
		if err := s.accounts.Save(ctx, account); err != nil {
			s.logger.Warn().Err(err).Str("account", account.Name).Msg("Failed to save synced account")
			continue
		}
		synced++
	}

	s.logger.Info().
		Int("synced", synced).
		Str("path", s.accountsPath).
		Msg("Accounts synced from sheet")
	return synced, nil
}

func validateHeader(header []string) error {
	if len(header) != len(accountColumns) {
		return fmt.Errorf("account sheet has %d columns, expected %d", len(header), len(accountColumns))
	}
	for i, want := range accountColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return fmt.Errorf("account sheet column %d is %q, expected %q", i+1, header[i], want)
		}
	}
	return nil
}

func (s *Service) rowToAccount(ctx context.Context, row []string) (*models.Account, error) {
	name := strings.TrimSpace(row[0])
	loginURL := strings.TrimSpace(row[1])
	username := strings.TrimSpace(row[2])
	if name == "" || loginURL == "" || username == "" {
		return nil, fmt.Errorf("name, login_url and username are required")
	}

	passwordSealed, err := s.box.Seal(row[3])
	if err != nil {
		return nil, fmt.Errorf("failed to seal password: %w", err)
	}
	secondSealed, err := s.box.Seal(row[4])
	if err != nil {
		return nil, fmt.Errorf("failed to seal second factor: %w", err)
	}

	kind := models.SecretKindTOTP
	if strings.EqualFold(strings.TrimSpace(row[5]), string(models.SecretKindDOB)) {
		kind = models.SecretKindDOB
	}

	active, err := strconv.ParseBool(strings.TrimSpace(row[6]))
	if err != nil {
		return nil, fmt.Errorf("invalid active flag %q", row[6])
	}

	account := &models.Account{
		Name:               name,
		LoginURL:           loginURL,
		Username:           username,
		PasswordSealed:     passwordSealed,
		SecondFactorSealed: secondSealed,
		SecondFactorKind:   kind,
		Active:             active,
	}

	existing, err := s.accounts.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		account.ID = existing.ID
		account.CreatedAt = existing.CreatedAt
	} else {
		account.ID = common.NewAccountID()
	}
	return account, nil
}

// WriteBackResult appends one run's outcome to the result sheet, creating
// it with a header row on first use. Appends are serialized.
func (s *Service) WriteBackResult(_ context.Context, run *models.RunLog) error {
	if s.resultsPath == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, statErr := os.Stat(s.resultsPath)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.resultsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open result sheet: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(resultColumns); err != nil {
			return fmt.Errorf("failed to write result header: %w", err)
		}
	}
	record := []string{
		run.FinishedAt.Format(time.RFC3339),
		run.AccountName,
		string(run.Status),
		strconv.FormatBool(run.TokenIssued),
		strconv.FormatInt(run.DurationMs, 10),
		run.Message,
		run.FinalURL,
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to write result row: %w", err)
	}
	w.Flush()
	return w.Error()
}
