package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

const (
	scheduleConfigKey = "schedule"
	pauseConfigKey    = "pause"
)

// scheduleRecord wraps ScheduleConfig for badgerhold storage.
type scheduleRecord struct {
	Key    string `badgerhold:"key"`
	Config models.ScheduleConfig
}

// pauseRecord wraps PauseConfig for badgerhold storage.
type pauseRecord struct {
	Key    string `badgerhold:"key"`
	Config models.PauseConfig
}

// ConfigStorage implements the ConfigStorage interface for Badger
type ConfigStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewConfigStorage creates a new ConfigStorage instance
func NewConfigStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ConfigStorage {
	return &ConfigStorage{
		db:     db,
		logger: logger,
	}
}

// GetSchedule returns the persisted schedule, or nil when none is stored yet.
func (s *ConfigStorage) GetSchedule(ctx context.Context) (*models.ScheduleConfig, error) {
	var record scheduleRecord
	if err := s.db.Store().Get(scheduleConfigKey, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule config: %w", err)
	}
	return &record.Config, nil
}

func (s *ConfigStorage) SaveSchedule(ctx context.Context, cfg *models.ScheduleConfig) error {
	record := scheduleRecord{Key: scheduleConfigKey, Config: *cfg}
	if err := s.db.Store().Upsert(scheduleConfigKey, &record); err != nil {
		return fmt.Errorf("failed to save schedule config: %w", err)
	}

	s.logger.Debug().
		Int("hour", cfg.Hour).
		Int("minute", cfg.Minute).
		Str("timezone", cfg.Timezone).
		Msg("Schedule config persisted")

	return nil
}

// GetPauseConfig returns the persisted pause state, defaulting to unpaused.
func (s *ConfigStorage) GetPauseConfig(ctx context.Context) (*models.PauseConfig, error) {
	var record pauseRecord
	if err := s.db.Store().Get(pauseConfigKey, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return &models.PauseConfig{}, nil
		}
		return nil, fmt.Errorf("failed to get pause config: %w", err)
	}
	return &record.Config, nil
}

func (s *ConfigStorage) SavePauseConfig(ctx context.Context, cfg *models.PauseConfig) error {
	record := pauseRecord{Key: pauseConfigKey, Config: *cfg}
	if err := s.db.Store().Upsert(pauseConfigKey, &record); err != nil {
		return fmt.Errorf("failed to save pause config: %w", err)
	}

	s.logger.Debug().
		Bool("paused", cfg.Paused).
		Str("paused_until", cfg.PausedUntil).
		Int("paused_dates", len(cfg.PausedDates)).
		Msg("Pause config persisted")

	return nil
}
