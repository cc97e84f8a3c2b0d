package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Queue.Concurrency)
	assert.Equal(t, "Asia/Kolkata", cfg.Scheduler.Timezone)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 2*time.Second, cfg.Queue.CooldownDuration())
	assert.Equal(t, 45*time.Second, cfg.Browser.NavTimeoutDuration())
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aditus.toml")
	content := `
[server]
port = 9090

[queue]
concurrency = 5
cooldown = "500ms"

[scheduler]
hour = 6
minute = 45
timezone = "Australia/Sydney"

[verify]
product_host = "app.example.com"
success_keywords = ["welcome back"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Queue.Concurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.Queue.CooldownDuration())
	assert.Equal(t, 6, cfg.Scheduler.Hour)
	assert.Equal(t, "Australia/Sydney", cfg.Scheduler.Timezone)
	assert.Equal(t, "app.example.com", cfg.Verify.ProductHost)
	assert.Equal(t, []string{"welcome back"}, cfg.Verify.SuccessKeywords)

	// Unset sections keep defaults
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.True(t, cfg.Browser.Headless)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ADITUS_SERVER_PORT", "7070")
	t.Setenv("ADITUS_QUEUE_CONCURRENCY", "8")
	t.Setenv("ADITUS_LOG_OUTPUT", "stdout, file")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Queue.Concurrency)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 6060, "0.0.0.0")

	assert.Equal(t, 6060, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("garbage", time.Minute))
	assert.Equal(t, 3*time.Second, parseDuration("3s", time.Minute))
}
