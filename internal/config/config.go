package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/i474232898/yr-meteogram/internal/logger"
	"github.com/i474232898/yr-meteogram/internal/meteogram/yr"
)

type AppConfig struct {
	Port string

	// EntriesFile persists config entries. Empty keeps them in memory only.
	EntriesFile string

	// Outbound Yr client.
	YrBaseURL    string
	YrUserAgent  string
	HTTPTimeout  time.Duration
	YrMaxRetries int // 0 = single attempt per fetch

	Log logger.Config
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.EntriesFile = getenvDefault("ENTRIES_FILE", "entries.yaml")
	if v, ok := os.LookupEnv("ENTRIES_FILE"); ok && v == "" {
		cfg.EntriesFile = ""
	}

	cfg.YrBaseURL = getenvDefault("YR_BASE_URL", yr.DefaultBaseURL)
	cfg.YrUserAgent = getenvDefault("YR_USER_AGENT", yr.DefaultUserAgent)

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	if cfg.YrMaxRetries, err = getenvInt("YR_MAX_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.YrMaxRetries < 0 {
		return nil, fmt.Errorf("invalid YR_MAX_RETRIES: must not be negative")
	}

	cfg.Log = logger.Config{
		Level:    getenvDefault("LOG_LEVEL", "info"),
		Format:   getenvDefault("LOG_FORMAT", "console"),
		FilePath: os.Getenv("LOG_FILE"),
	}
	if cfg.Log.MaxSize, err = getenvInt("LOG_MAX_SIZE_MB", 50); err != nil {
		return nil, err
	}
	if cfg.Log.MaxBackups, err = getenvInt("LOG_MAX_BACKUPS", 3); err != nil {
		return nil, err
	}
	if cfg.Log.MaxAge, err = getenvInt("LOG_MAX_AGE_DAYS", 28); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr is the listen address of the HTTP API.
func (c *AppConfig) Addr() string {
	return ":" + c.Port
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
