package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/yr-meteogram/internal/meteogram/yr"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "YR_BASE_URL", "YR_USER_AGENT", "HTTP_TIMEOUT", "YR_MAX_RETRIES",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	} {
		t.Setenv(key, "")
	}
	// Unset rather than empty: an empty ENTRIES_FILE means memory only.
	unsetenv(t, "ENTRIES_FILE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "entries.yaml", cfg.EntriesFile)
	assert.Equal(t, yr.DefaultBaseURL, cfg.YrBaseURL)
	assert.Equal(t, yr.DefaultUserAgent, cfg.YrUserAgent)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0, cfg.YrMaxRetries)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Log.FilePath)
	assert.Equal(t, 50, cfg.Log.MaxSize)
	assert.Equal(t, 3, cfg.Log.MaxBackups)
	assert.Equal(t, 28, cfg.Log.MaxAge)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENTRIES_FILE", "/var/lib/yr/entries.yaml")
	t.Setenv("YR_BASE_URL", "http://localhost:1234")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("YR_MAX_RETRIES", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", "/tmp/yr.log")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, "/var/lib/yr/entries.yaml", cfg.EntriesFile)
	assert.Equal(t, "http://localhost:1234", cfg.YrBaseURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2, cfg.YrMaxRetries)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/yr.log", cfg.Log.FilePath)
}

func TestLoad_EmptyEntriesFileMeansMemory(t *testing.T) {
	t.Setenv("ENTRIES_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.EntriesFile)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"HTTP_TIMEOUT":     "soon",
		"YR_MAX_RETRIES":   "-1",
		"LOG_MAX_SIZE_MB":  "big",
		"LOG_MAX_BACKUPS":  "x",
		"LOG_MAX_AGE_DAYS": "1.5",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}

func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
