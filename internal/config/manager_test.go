package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().MaxConcurrent, cfg.MaxConcurrent)
}

func TestLoadParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_concurrent_downloads: 10\ncontrol_addr: \"0.0.0.0:9000\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxConcurrent)
	assert.Equal(t, "0.0.0.0:9000", cfg.ControlAddr)
}

func TestEnvOverridesFileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_concurrent_downloads: 10\n"), 0o644))
	t.Setenv("GRABBY_MAX_CONCURRENT", "7")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxConcurrent)
}

func TestValidateRejectsNonPositiveConcurrency(t *testing.T) {
	cfg := Default()
	cfg.MaxConcurrent = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyControlAddr(t *testing.T) {
	cfg := Default()
	cfg.ControlAddr = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadParsesWorkerTuningFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := "default_item_bandwidth_bps: 2097152\n" +
		"grace_seconds_on_cancel: 8\n" +
		"hard_item_timeout_seconds: 1800\n" +
		"event_history_capacity: 500\n" +
		"queue_store_url: \"sqlite:///tmp/orchestrator.db\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 2097152, cfg.DefaultItemBandwidthBps)
	assert.Equal(t, 8, cfg.GraceSecondsOnCancel)
	assert.Equal(t, 1800, cfg.HardItemTimeoutSeconds)
	assert.Equal(t, 500, cfg.EventHistoryCapacity)
	assert.Equal(t, "sqlite:///tmp/orchestrator.db", cfg.QueueStoreURL)
}

func TestEnvOverridesWorkerTuningFields(t *testing.T) {
	t.Setenv("GRABBY_DEFAULT_ITEM_BANDWIDTH_BPS", "4194304")
	t.Setenv("GRABBY_GRACE_SECONDS_ON_CANCEL", "3")
	t.Setenv("GRABBY_HARD_ITEM_TIMEOUT_SECONDS", "900")
	t.Setenv("GRABBY_EVENT_HISTORY_CAPACITY", "2000")
	t.Setenv("GRABBY_QUEUE_STORE_URL", "sqlite://./custom.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.EqualValues(t, 4194304, cfg.DefaultItemBandwidthBps)
	assert.Equal(t, 3, cfg.GraceSecondsOnCancel)
	assert.Equal(t, 900, cfg.HardItemTimeoutSeconds)
	assert.Equal(t, 2000, cfg.EventHistoryCapacity)
	assert.Equal(t, "sqlite://./custom.db", cfg.QueueStoreURL)
}

func TestValidateRejectsNonPositiveDefaultItemBandwidth(t *testing.T) {
	cfg := Default()
	cfg.DefaultItemBandwidthBps = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateAllowsEmptyQueueStoreURL(t *testing.T) {
	cfg := Default()
	cfg.QueueStoreURL = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidateAllowsZeroHardItemTimeoutAsDisabled(t *testing.T) {
	cfg := Default()
	cfg.HardItemTimeoutSeconds = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsNegativeHardItemTimeout(t *testing.T) {
	cfg := Default()
	cfg.HardItemTimeoutSeconds = -1
	assert.Error(t, cfg.Validate())
}
