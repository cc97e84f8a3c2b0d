package badger

import (
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	account interfaces.AccountStorage
	runLog  interfaces.RunLogStorage
	config  interfaces.ConfigStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		account: NewAccountStorage(db, logger),
		runLog:  NewRunLogStorage(db, logger),
		config:  NewConfigStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// AccountStorage returns the Account storage interface
func (m *Manager) AccountStorage() interfaces.AccountStorage {
	return m.account
}

// RunLogStorage returns the RunLog storage interface
func (m *Manager) RunLogStorage() interfaces.RunLogStorage {
	return m.runLog
}

// ConfigStorage returns the Config storage interface
func (m *Manager) ConfigStorage() interfaces.ConfigStorage {
	return m.config
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
