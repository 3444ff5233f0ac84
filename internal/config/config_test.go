package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8983/solr", cfg.Solr.BaseURL)
	assert.Equal(t, "jobs", cfg.Solr.Core)
	assert.Equal(t, 30, cfg.Solr.TimeoutSecs)
	assert.InDelta(t, 10.0, cfg.Solr.RatePerSec, 0.001)
	assert.Equal(t, 2, cfg.Solr.RateBurst)
	assert.Equal(t, 100, cfg.Solr.BatchSize)
	assert.Equal(t, 3, cfg.Solr.RetryMaxAttempts)
	assert.Equal(t, 500, cfg.Solr.RetryBackoffMs)
	assert.Equal(t, 24, cfg.Verify.WindowHours)
	assert.Equal(t, 0, cfg.Verify.Limit)
	assert.Equal(t, 8, cfg.Verify.Workers)
	assert.Equal(t, "reports", cfg.Report.Dir)
	assert.Equal(t, "logs/history", cfg.History.Dir)
	assert.Equal(t, "db_solr_sync", cfg.History.Module)
	assert.Equal(t, "db_solr_sync_check", cfg.History.TestName)
	assert.Equal(t, 7, cfg.History.RetentionDays)
	assert.False(t, cfg.History.KeepLatestOnly)
	assert.Equal(t, 50, cfg.History.SampleSize)
	assert.Equal(t, "snapshots/db_solr_sync.db", cfg.Snapshot.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "", cfg.Server.Watch)
	assert.Equal(t, 600, cfg.Server.RunTimeoutSecs)
	assert.Equal(t, "", cfg.Alert.WebhookURL)
	assert.InDelta(t, 0.10, cfg.Alert.FailureRateThreshold, 0.001)
	assert.Equal(t, 10, cfg.Alert.NotFoundThreshold)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
db:
  url: postgres://localhost/jobs
solr:
  core: jobs_v2
  batch_size: 250
verify:
  window_hours: 48
history:
  keep_latest_only: true
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/jobs", cfg.DB.URL)
	assert.Equal(t, "jobs_v2", cfg.Solr.Core)
	assert.Equal(t, 250, cfg.Solr.BatchSize)
	assert.Equal(t, 48, cfg.Verify.WindowHours)
	assert.True(t, cfg.History.KeepLatestOnly)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Verify.Workers)
	assert.Equal(t, "db_solr_sync", cfg.History.Module)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
solr:
  core: jobs_v2
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SYNCCHECK_SOLR_CORE", "jobs_v3")
	t.Setenv("SYNCCHECK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "jobs_v3", cfg.Solr.Core)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("SYNCCHECK_SERVER_PORT", "3000")
	t.Setenv("SYNCCHECK_DB_URL", "postgres://db.internal/jobs")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "postgres://db.internal/jobs", cfg.DB.URL)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Verify.Workers = 8
	cfg.History.RetentionDays = 7
	cfg.History.SampleSize = 50
	cfg.History.Module = "db_solr_sync"
	cfg.History.TestName = "db_solr_sync_check"
	cfg.Solr.TimeoutSecs = 30
	cfg.Solr.BatchSize = 100
	cfg.Snapshot.Path = "snapshots/db_solr_sync.db"
	cfg.Server.Port = 8080
	cfg.Alert.FailureRateThreshold = 0.10
	cfg.Alert.NotFoundThreshold = 10
	return cfg
}

func TestValidateVerify_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.DB.URL = "postgres://localhost/jobs"
	cfg.Solr.BaseURL = "http://localhost:8983/solr"
	cfg.Solr.Core = "jobs"

	assert.NoError(t, cfg.Validate("verify"))
}

func TestValidateVerify_MissingFields(t *testing.T) {
	cfg := validDefaults()
	// All live-endpoint fields are empty

	err := cfg.Validate("verify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db.url is required")
	assert.Contains(t, err.Error(), "solr.base_url is required")
	assert.Contains(t, err.Error(), "solr.core is required")
}

func TestValidateCapture_SameAsVerify(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("capture")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db.url is required")
}

func TestValidateOffline_NeedsSnapshotPath(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("offline"))

	cfg.Snapshot.Path = ""
	err := cfg.Validate("offline")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot.path is required")
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateWorkerBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Verify.Workers = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "verify.workers must be between 1 and 64")

	cfg.Verify.Workers = 65
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "verify.workers must be between 1 and 64")

	cfg.Verify.Workers = 64
	err = cfg.Validate("serve")
	assert.NoError(t, err)
}

func TestValidateHistoryBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.History.RetentionDays = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "history.retention_days must be >= 1")

	cfg.History.RetentionDays = 7
	cfg.History.SampleSize = -1
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "history.sample_size must be >= 0")
}

func TestValidateAlertBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Alert.FailureRateThreshold = 1.5
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "alert.failure_rate_threshold must be between 0 and 1")

	cfg.Alert.FailureRateThreshold = 0.10
	cfg.Alert.NotFoundThreshold = -1
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "alert.not_found_threshold must be >= 0")
}

func TestValidateBatchSizeBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.DB.URL = "postgres://localhost/jobs"
	cfg.Solr.BaseURL = "http://localhost:8983/solr"
	cfg.Solr.Core = "jobs"

	cfg.Solr.BatchSize = 0
	err := cfg.Validate("verify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "solr.batch_size must be between 1 and 1000")

	cfg.Solr.BatchSize = 1001
	err = cfg.Validate("verify")
	assert.Error(t, err)

	cfg.Solr.BatchSize = 1000
	err = cfg.Validate("verify")
	assert.NoError(t, err)
}
