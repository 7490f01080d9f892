package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobsync.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	assert.NoError(t, config.Validate())
	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 5, config.Transport.MaxReconnects)
}

func TestLoadFromFilesOverlaysDefaults(t *testing.T) {
	path := writeConfigFile(t, `
environment = "production"

[transport]
url = "wss://jobs.example.com/ws"
max_reconnects = 3

[polling]
job_interval = "2s"
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "wss://jobs.example.com/ws", config.Transport.URL)
	assert.Equal(t, 3, config.Transport.MaxReconnects)
	assert.Equal(t, "2s", config.Polling.JobInterval)
	// Untouched sections keep their defaults.
	assert.Equal(t, "10s", config.Polling.StatsInterval)
	assert.Equal(t, "http://localhost:8080", config.Backend.BaseURL)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	base := writeConfigFile(t, `
[polling]
job_interval = "2s"
stats_interval = "20s"
`)
	override := writeConfigFile(t, `
[polling]
job_interval = "1s"
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)
	assert.Equal(t, "1s", config.Polling.JobInterval)
	assert.Equal(t, "20s", config.Polling.StatsInterval)
}

func TestValidateRejectsBadDuration(t *testing.T) {
	config := DefaultConfig()
	config.Polling.JobInterval = "five seconds"
	assert.Error(t, config.Validate())
}

func TestValidateRejectsZeroReconnects(t *testing.T) {
	config := DefaultConfig()
	config.Transport.MaxReconnects = 0
	assert.Error(t, config.Validate())
}

func TestValidateRejectsMissingTransportURL(t *testing.T) {
	config := DefaultConfig()
	config.Transport.URL = ""
	assert.Error(t, config.Validate())
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDuration("5s", time.Second))
	assert.Equal(t, time.Second, ParseDuration("", time.Second))
	assert.Equal(t, time.Second, ParseDuration("junk", time.Second))
}
