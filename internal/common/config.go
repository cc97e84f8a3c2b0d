package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Queue       QueueConfig       `toml:"queue"`
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	Window      WindowConfig      `toml:"window"`
	Browser     BrowserConfig     `toml:"browser"`
	Verify      VerifyConfig      `toml:"verify"`
	Artifacts   ArtifactsConfig   `toml:"artifacts"`
	Notify      NotifyConfig      `toml:"notify"`
	Spreadsheet SpreadsheetConfig `toml:"spreadsheet"`
	Storage     StorageConfig     `toml:"storage"`
	Accounts    AccountsDirConfig `toml:"accounts"`
	Secrets     SecretsConfig     `toml:"secrets"`
	Logging     LoggingConfig     `toml:"logging"`
	WebSocket   WebSocketConfig   `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// QueueConfig bounds job execution.
type QueueConfig struct {
	Concurrency int    `toml:"concurrency"` // Number of jobs allowed to run at once
	Cooldown    string `toml:"cooldown"`    // e.g. "2s" - pause after each job before draining the next
}

// CooldownDuration parses the post-job cooldown, defaulting to 2 seconds.
func (q QueueConfig) CooldownDuration() time.Duration {
	return parseDuration(q.Cooldown, 2*time.Second)
}

// SchedulerConfig holds the initial daily trigger time. Once a schedule is
// persisted the stored value wins; this only seeds an empty store.
type SchedulerConfig struct {
	Hour              int    `toml:"hour"`
	Minute            int    `toml:"minute"`
	Timezone          string `toml:"timezone"`
	StatusCheckHour   int    `toml:"status_check_hour"`
	StatusCheckMinute int    `toml:"status_check_minute"`
}

// WindowConfig is the manual-batch operating window.
type WindowConfig struct {
	Enabled     bool   `toml:"enabled"`
	StartHour   int    `toml:"start_hour"`
	StartMinute int    `toml:"start_minute"`
	EndHour     int    `toml:"end_hour"`
	EndMinute   int    `toml:"end_minute"`
	Timezone    string `toml:"timezone"`
}

// BrowserConfig controls the chromedp sessions.
type BrowserConfig struct {
	Headless       bool   `toml:"headless"`
	NoSandbox      bool   `toml:"no_sandbox"`
	DisableGPU     bool   `toml:"disable_gpu"`
	UserAgent      string `toml:"user_agent"`
	NavTimeout     string `toml:"nav_timeout"`     // whole-page navigation bound
	StepTimeout    string `toml:"step_timeout"`    // per element-location strategy
	SettleDelay    string `toml:"settle_delay"`    // pause after navigation/submit for redirects
	QuiescenceWait string `toml:"quiescence_wait"` // wait after final submit before reading outcome
}

func (b BrowserConfig) NavTimeoutDuration() time.Duration {
	return parseDuration(b.NavTimeout, 45*time.Second)
}

func (b BrowserConfig) StepTimeoutDuration() time.Duration {
	return parseDuration(b.StepTimeout, 4*time.Second)
}

func (b BrowserConfig) SettleDelayDuration() time.Duration {
	return parseDuration(b.SettleDelay, 3*time.Second)
}

func (b BrowserConfig) QuiescenceWaitDuration() time.Duration {
	return parseDuration(b.QuiescenceWait, 5*time.Second)
}

// VerifyConfig drives post-submit success detection.
type VerifyConfig struct {
	ProductHost     string   `toml:"product_host"`     // success when the final URL points back here
	SuccessKeywords []string `toml:"success_keywords"` // case-insensitive substring matches in page text
}

type ArtifactsConfig struct {
	Dir string `toml:"dir"` // Failure screenshots and HTML dumps land here
}

// NotifyConfig configures the webhook notification sink.
type NotifyConfig struct {
	WebhookURL string `toml:"webhook_url"`
	Timeout    string `toml:"timeout"`
	RateLimit  string `toml:"rate_limit"` // minimum interval between notifications
}

func (n NotifyConfig) TimeoutDuration() time.Duration {
	return parseDuration(n.Timeout, 10*time.Second)
}

func (n NotifyConfig) RateLimitDuration() time.Duration {
	return parseDuration(n.RateLimit, 500*time.Millisecond)
}

// SpreadsheetConfig points at the external account/result sheets.
type SpreadsheetConfig struct {
	AccountsPath string `toml:"accounts_path"` // CSV read on scheduled resync
	ResultsPath  string `toml:"results_path"`  // CSV appended per run
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// AccountsDirConfig configures TOML account seed loading.
type AccountsDirConfig struct {
	SeedDir string `toml:"seed_dir"` // Directory containing account seed files (TOML)
}

// SecretsConfig configures the sealing key for stored credentials.
type SecretsConfig struct {
	Key string `toml:"key"` // 64 hex chars (32 bytes) or a passphrase
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// WebSocketConfig controls live progress broadcasting.
type WebSocketConfig struct {
	MinLevel          string            `toml:"min_level"`
	AllowedEvents     []string          `toml:"allowed_events"`     // empty = all
	ThrottleIntervals map[string]string `toml:"throttle_intervals"` // event type -> duration string
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability;
// only user-facing settings should be exposed in aditus.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Queue: QueueConfig{
			Concurrency: 3,
			Cooldown:    "2s",
		},
		Scheduler: SchedulerConfig{
			Hour:              8,
			Minute:            30,
			Timezone:          "Asia/Kolkata",
			StatusCheckHour:   7,
			StatusCheckMinute: 0,
		},
		Window: WindowConfig{
			Enabled:     false,
			StartHour:   8,
			StartMinute: 15,
			EndHour:     9,
			EndMinute:   0,
			Timezone:    "Asia/Kolkata",
		},
		Browser: BrowserConfig{
			Headless:       true,
			NoSandbox:      true,
			DisableGPU:     true,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavTimeout:     "45s",
			StepTimeout:    "4s",
			SettleDelay:    "3s",
			QuiescenceWait: "5s",
		},
		Verify: VerifyConfig{
			SuccessKeywords: []string{"logout", "dashboard", "holdings"},
		},
		Artifacts: ArtifactsConfig{
			Dir: "./data/artifacts",
		},
		Notify: NotifyConfig{
			Timeout:   "10s",
			RateLimit: "500ms",
		},
		Spreadsheet: SpreadsheetConfig{
			AccountsPath: "./data/accounts.csv",
			ResultsPath:  "./data/results.csv",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/db",
			},
		},
		Accounts: AccountsDirConfig{
			SeedDir: "./accounts",
		},
		Secrets: SecretsConfig{
			Key: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		WebSocket: WebSocketConfig{
			MinLevel:      "info",
			AllowedEvents: []string{},
			ThrottleIntervals: map[string]string{
				"batch_progress": "1s",
			},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files
// override earlier files, environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("ADITUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ADITUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if concurrency := os.Getenv("ADITUS_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}
	if cooldown := os.Getenv("ADITUS_QUEUE_COOLDOWN"); cooldown != "" {
		config.Queue.Cooldown = cooldown
	}

	if tz := os.Getenv("ADITUS_SCHEDULER_TIMEZONE"); tz != "" {
		config.Scheduler.Timezone = tz
	}

	if badgerPath := os.Getenv("ADITUS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if key := os.Getenv("ADITUS_SECRETS_KEY"); key != "" {
		config.Secrets.Key = key
	}

	if webhook := os.Getenv("ADITUS_NOTIFY_WEBHOOK_URL"); webhook != "" {
		config.Notify.WebhookURL = webhook
	}

	if level := os.Getenv("ADITUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ADITUS_LOG_OUTPUT"); output != "" {
		parts := strings.Split(output, ",")
		outputs := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// parseDuration parses a duration string with a fallback default.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}
