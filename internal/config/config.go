// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes bot credentials,
// document-store settings, delivery timing, broadcast schedules, and the
// link-shortener surface.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ShortenerConfig defines the link-shortening service settings. An empty
// APIKey disables shortening entirely (URLs pass through untouched).
type ShortenerConfig struct {
	BaseURL string        // SHORTENER_BASE_URL (e.g. "https://linkpays.in/api")
	APIKey  string        // SHORTENER_API_KEY
	Timeout time.Duration // SHORTENER_TIMEOUT
}

// SentryConfig defines optional crash/error reporting. A blank DSN disables it.
type SentryConfig struct {
	DSN         string // SENTRY_DSN
	Environment string // SENTRY_ENVIRONMENT
}

// Config holds all configuration values for the application.
type Config struct {
	// Telegram
	BotToken        string  // BOT_TOKEN
	AdminIDs        []int64 // ADMIN_IDS, comma-separated chat ids
	ForceSubChannel string  // FORCE_SUB_CHANNEL, optional @channel or -100 id

	// Document store
	MongoURI string // MONGO_URI
	MongoDB  string // MONGO_DB

	// Delivery / ephemeral messages
	AutoDeleteAfter    time.Duration // AUTO_DELETE_AFTER (default 600s)
	OnboardDeleteAfter time.Duration // ONBOARD_DELETE_AFTER (default 300s)
	Cooldown           time.Duration // COOLDOWN, per-recipient trigger window
	InfoButtonLabel    string        // INFO_BUTTON_LABEL, fixed fallback button
	InfoButtonURL      string        // INFO_BUTTON_URL

	// Broadcast / retention
	SweepInterval    time.Duration // SWEEP_INTERVAL (default 8h)
	PruneInterval    time.Duration // PRUNE_INTERVAL (default 24h)
	DailyRetention   time.Duration // DAILY_RETENTION, per-day dedup horizon (default 48h)
	KeywordRetention time.Duration // KEYWORD_RETENTION, entry purge horizon (default 365d)

	// Ops / logging
	OpsPort   string // OPS_PORT, health + metrics listener
	LogLevel  string // LOG_LEVEL: debug|info|warn|error|fatal|panic
	LogPretty bool   // LOG_PRETTY, console writer in dev

	Shortener ShortenerConfig
	Sentry    SentryConfig
}

// IsAdmin reports whether id is in the configured admin set.
func (c Config) IsAdmin(id int64) bool {
	for _, a := range c.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads .env (if present) and the environment, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BotToken:        os.Getenv("BOT_TOKEN"),
		AdminIDs:        splitIDs(getenv("ADMIN_IDS", "")),
		ForceSubChannel: strings.TrimSpace(os.Getenv("FORCE_SUB_CHANNEL")),

		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "files_db"),

		AutoDeleteAfter:    getdur("AUTO_DELETE_AFTER", 600*time.Second),
		OnboardDeleteAfter: getdur("ONBOARD_DELETE_AFTER", 300*time.Second),
		Cooldown:           getdur("COOLDOWN", 5*time.Second),
		InfoButtonLabel:    getenv("INFO_BUTTON_LABEL", "How to Download"),
		InfoButtonURL:      getenv("INFO_BUTTON_URL", "https://t.me/HowToDownload"),

		SweepInterval:    getdur("SWEEP_INTERVAL", 8*time.Hour),
		PruneInterval:    getdur("PRUNE_INTERVAL", 24*time.Hour),
		DailyRetention:   getdur("DAILY_RETENTION", 48*time.Hour),
		KeywordRetention: getdur("KEYWORD_RETENTION", 365*24*time.Hour),

		OpsPort:   getenv("OPS_PORT", "8080"),
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		Shortener: ShortenerConfig{
			BaseURL: getenv("SHORTENER_BASE_URL", "https://linkpays.in/api"),
			APIKey:  os.Getenv("SHORTENER_API_KEY"),
			Timeout: getdur("SHORTENER_TIMEOUT", 10*time.Second),
		},
		Sentry: SentryConfig{
			DSN:         os.Getenv("SENTRY_DSN"),
			Environment: getenv("SENTRY_ENVIRONMENT", "production"),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	if strings.TrimSpace(cfg.BotToken) == "" {
		return cfg, errors.New("BOT_TOKEN must not be empty")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.MongoURI) == "" {
		return cfg, errors.New("MONGO_URI must not be empty")
	}
	if strings.TrimSpace(cfg.MongoDB) == "" {
		return cfg, errors.New("MONGO_DB must not be empty")
	}
	if cfg.AutoDeleteAfter <= 0 || cfg.OnboardDeleteAfter <= 0 {
		return cfg, errors.New("delete intervals must be positive durations")
	}
	if cfg.Cooldown < 0 {
		return cfg, errors.New("COOLDOWN must be >= 0")
	}
	if cfg.SweepInterval <= 0 || cfg.PruneInterval <= 0 {
		return cfg, errors.New("sweep and prune intervals must be positive durations")
	}
	if cfg.DailyRetention <= 0 || cfg.KeywordRetention <= 0 {
		return cfg, errors.New("retention horizons must be positive durations")
	}
	if cfg.Shortener.Timeout <= 0 {
		return cfg, errors.New("SHORTENER_TIMEOUT must be a positive duration")
	}
	if strings.TrimSpace(cfg.OpsPort) == "" {
		return cfg, errors.New("OPS_PORT must not be empty")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// splitIDs parses a comma-separated list of chat ids, skipping anything that
// does not parse as an integer.
func splitIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t == "" {
			continue
		}
		id, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
