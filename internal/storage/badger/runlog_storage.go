package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// RunLogStorage implements the RunLogStorage interface for Badger.
// Run logs are append-only: Append refuses to overwrite an existing record.
type RunLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunLogStorage creates a new RunLogStorage instance
func NewRunLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunLogStorage {
	return &RunLogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RunLogStorage) Append(ctx context.Context, run *models.RunLog) error {
	if run.ID == "" {
		return fmt.Errorf("run log ID is required")
	}

	if err := s.db.Store().Insert(run.ID, run); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("run log already recorded: %s", run.ID)
		}
		return fmt.Errorf("failed to append run log: %w", err)
	}

	s.logger.Debug().
		Str("run_id", run.ID).
		Str("account_id", run.AccountID).
		Str("status", string(run.Status)).
		Msg("Run log appended")

	return nil
}

func (s *RunLogStorage) List(ctx context.Context, opts *interfaces.RunLogListOptions) ([]*models.RunLog, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.AccountID != "" {
			query = query.And("AccountID").Eq(opts.AccountID)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("StartedAt").Reverse()

	var runs []models.RunLog
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list run logs: %w", err)
	}

	result := make([]*models.RunLog, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

func (s *RunLogStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.RunLog{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count run logs: %w", err)
	}
	return int(count), nil
}
