package models

// DateLayout is the day-granularity format used by pause configuration.
const DateLayout = "2006-01-02"

// ScheduleConfig is the recurring daily trigger time in a civil timezone.
type ScheduleConfig struct {
	Hour     int    `json:"hour" toml:"hour"`
	Minute   int    `json:"minute" toml:"minute"`
	Timezone string `json:"timezone" toml:"timezone"`
}

// PauseConfig suspends scheduled firing. Precedence for a given date:
// explicit PausedDates listing, then indefinite pause (Paused with no
// PausedUntil), then Paused with PausedUntil at day granularity.
type PauseConfig struct {
	Paused      bool     `json:"paused" toml:"paused"`
	PausedUntil string   `json:"paused_until,omitempty" toml:"paused_until"`
	PausedDates []string `json:"paused_dates,omitempty" toml:"paused_dates"`
}

// NotifyKind classifies a notification for the external sink.
type NotifyKind string

const (
	NotifyKindInfo    NotifyKind = "info"
	NotifyKindSuccess NotifyKind = "success"
	NotifyKindFailure NotifyKind = "failure"
	NotifyKindSummary NotifyKind = "summary"
)
