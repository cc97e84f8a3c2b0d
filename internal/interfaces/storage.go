package interfaces

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/models"
)

// AccountStorage is the external account store. The core reads accounts;
// writes happen only through spreadsheet resync and seed import.
type AccountStorage interface {
	ListActive(ctx context.Context) ([]*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByName(ctx context.Context, name string) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
	Count(ctx context.Context) (int, error)
}

// RunLogListOptions filters run log queries.
type RunLogListOptions struct {
	AccountID string
	Limit     int
	Offset    int
}

// RunLogStorage persists authentication attempt records. Records are
// append-only; a RunLog is never updated after Append.
type RunLogStorage interface {
	Append(ctx context.Context, run *models.RunLog) error
	List(ctx context.Context, opts *RunLogListOptions) ([]*models.RunLog, error)
	Count(ctx context.Context) (int, error)
}

// ConfigStorage persists the schedule and pause configuration.
type ConfigStorage interface {
	GetSchedule(ctx context.Context) (*models.ScheduleConfig, error)
	SaveSchedule(ctx context.Context, cfg *models.ScheduleConfig) error
	GetPauseConfig(ctx context.Context) (*models.PauseConfig, error)
	SavePauseConfig(ctx context.Context, cfg *models.PauseConfig) error
}

// StorageManager aggregates the storage interfaces over one database.
type StorageManager interface {
	AccountStorage() AccountStorage
	RunLogStorage() RunLogStorage
	ConfigStorage() ConfigStorage

	// LoadAccountsFromFiles imports TOML account seed files from dir,
	// sealing plaintext secrets with the given box.
	LoadAccountsFromFiles(ctx context.Context, dir string, box *common.SecretBox, logger arbor.ILogger) error

	Close() error
}
