// -----------------------------------------------------------------------
// Pause Controller - date-granularity pause evaluation
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
)

// pausedForDate evaluates the pause rules for one calendar date.
// Precedence: explicit date listing, then indefinite pause, then
// pause-until at day granularity.
func pausedForDate(cfg *models.PauseConfig, date time.Time) bool {
	if cfg == nil {
		return false
	}

	dateStr := date.Format(models.DateLayout)
	for _, d := range cfg.PausedDates {
		if d == dateStr {
			return true
		}
	}

	if !cfg.Paused {
		return false
	}
	if cfg.PausedUntil == "" {
		return true
	}

	until, err := time.Parse(models.DateLayout, cfg.PausedUntil)
	if err != nil {
		// An unparseable until-date cannot silently unpause.
		return true
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return !day.After(until)
}

// IsPausedForDate reports whether scheduled firing is suppressed on the
// given date.
func (s *Service) IsPausedForDate(date time.Time) bool {
	cfg, err := s.configStore.GetPauseConfig(context.Background())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load pause config, treating as unpaused")
		return false
	}
	return pausedForDate(cfg, date)
}

// Pause persists a new pause configuration after validating its dates.
func (s *Service) Pause(ctx context.Context, cfg *models.PauseConfig) error {
	if cfg == nil {
		return fmt.Errorf("pause config is required")
	}
	if cfg.PausedUntil != "" {
		if _, err := time.Parse(models.DateLayout, cfg.PausedUntil); err != nil {
			return fmt.Errorf("invalid paused_until date %q: expected YYYY-MM-DD", cfg.PausedUntil)
		}
	}
	for _, d := range cfg.PausedDates {
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return fmt.Errorf("invalid paused date %q: expected YYYY-MM-DD", d)
		}
	}

	if err := s.configStore.SavePauseConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to persist pause config: %w", err)
	}

	s.logger.Info().
		Bool("paused", cfg.Paused).
		Str("paused_until", cfg.PausedUntil).
		Int("paused_dates", len(cfg.PausedDates)).
		Msg("Pause configuration updated")

	s.publishEvent(interfaces.EventPauseChanged, cfg)
	return nil
}

// Resume clears all pause state.
func (s *Service) Resume(ctx context.Context) error {
	cleared := &models.PauseConfig{}
	if err := s.configStore.SavePauseConfig(ctx, cleared); err != nil {
		return fmt.Errorf("failed to clear pause config: %w", err)
	}
	s.logger.Info().Msg("Scheduler resumed")
	s.publishEvent(interfaces.EventPauseChanged, cleared)
	return nil
}
