package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// AccountStorage implements the AccountStorage interface for Badger
type AccountStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAccountStorage creates a new AccountStorage instance
func NewAccountStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AccountStorage {
	return &AccountStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AccountStorage) Save(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		return fmt.Errorf("account ID is required")
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	account.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(account.ID, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *AccountStorage) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Store().Get(id, &account); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *AccountStorage) GetByName(ctx context.Context, name string) (*models.Account, error) {
	var accounts []models.Account
	if err := s.db.Store().Find(&accounts, badgerhold.Where("Name").Eq(name).Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to find account by name: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

func (s *AccountStorage) List(ctx context.Context) ([]*models.Account, error) {
	var accounts []models.Account
	if err := s.db.Store().Find(&accounts, badgerhold.Where("ID").Ne("").SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	result := make([]*models.Account, len(accounts))
	for i := range accounts {
		result[i] = &accounts[i]
	}
	return result, nil
}

func (s *AccountStorage) ListActive(ctx context.Context) ([]*models.Account, error) {
	var accounts []models.Account
	if err := s.db.Store().Find(&accounts, badgerhold.Where("Active").Eq(true).SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}

	result := make([]*models.Account, len(accounts))
	for i := range accounts {
		result[i] = &accounts[i]
	}
	return result, nil
}

func (s *AccountStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Account{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return int(count), nil
}
