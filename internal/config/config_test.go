package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("BOT_TOKEN", "") // required -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// t.Setenv isolates per test.
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", " 111 , bogus , 222 ")
	t.Setenv("FORCE_SUB_CHANNEL", "@mychannel")

	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DB", "") // empty -> default "files_db"

	t.Setenv("AUTO_DELETE_AFTER", "90s")
	t.Setenv("ONBOARD_DELETE_AFTER", "junk") // invalid -> default 300s
	t.Setenv("COOLDOWN", "2s")

	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")

	t.Setenv("SHORTENER_API_KEY", "k")
	t.Setenv("SHORTENER_TIMEOUT", "3s")
	t.Setenv("SENTRY_DSN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.BotToken != "123:abc" {
		t.Errorf("BotToken = %q", cfg.BotToken)
	}
	if want := []int64{111, 222}; !reflect.DeepEqual(cfg.AdminIDs, want) {
		t.Errorf("AdminIDs = %v, want %v", cfg.AdminIDs, want)
	}
	if cfg.ForceSubChannel != "@mychannel" {
		t.Errorf("ForceSubChannel = %q", cfg.ForceSubChannel)
	}
	if cfg.MongoURI != "mongodb://db:27017" || cfg.MongoDB != "files_db" {
		t.Errorf("mongo = %q/%q", cfg.MongoURI, cfg.MongoDB)
	}
	if cfg.AutoDeleteAfter != 90*time.Second {
		t.Errorf("AutoDeleteAfter = %v", cfg.AutoDeleteAfter)
	}
	if cfg.OnboardDeleteAfter != 300*time.Second {
		t.Errorf("OnboardDeleteAfter = %v (invalid input should fall back)", cfg.OnboardDeleteAfter)
	}
	if cfg.Cooldown != 2*time.Second {
		t.Errorf("Cooldown = %v", cfg.Cooldown)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if !cfg.LogPretty {
		t.Errorf("LogPretty should parse 'yes' as true")
	}
	if cfg.SweepInterval != 8*time.Hour || cfg.PruneInterval != 24*time.Hour {
		t.Errorf("schedules = %v/%v", cfg.SweepInterval, cfg.PruneInterval)
	}
	if cfg.DailyRetention != 48*time.Hour || cfg.KeywordRetention != 365*24*time.Hour {
		t.Errorf("retention = %v/%v", cfg.DailyRetention, cfg.KeywordRetention)
	}
	if cfg.Shortener.APIKey != "k" || cfg.Shortener.Timeout != 3*time.Second {
		t.Errorf("shortener = %+v", cfg.Shortener)
	}
	if cfg.Shortener.BaseURL == "" {
		t.Errorf("Shortener.BaseURL default missing")
	}
	if cfg.Sentry.Environment != "production" {
		t.Errorf("Sentry.Environment = %q", cfg.Sentry.Environment)
	}
	if cfg.OpsPort != "8080" {
		t.Errorf("OpsPort = %q", cfg.OpsPort)
	}
}

// --- validation failures ---

func TestLoad_ValidationErrors(t *testing.T) {
	base := func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "123:abc")
		t.Setenv("MONGO_URI", "mongodb://db:27017")
		t.Setenv("LOG_LEVEL", "info")
	}

	cases := map[string]struct {
		key, val string
		wantSub  string
	}{
		"missing token":     {"BOT_TOKEN", "   ", "BOT_TOKEN"},
		"bad log level":     {"LOG_LEVEL", "verbose", "LOG_LEVEL"},
		"zero delete":       {"AUTO_DELETE_AFTER", "0s", "delete intervals"},
		"negative cooldown": {"COOLDOWN", "-1s", "COOLDOWN"},
		"zero sweep":        {"SWEEP_INTERVAL", "0s", "sweep and prune"},
		"zero retention":    {"DAILY_RETENTION", "0s", "retention"},
		"zero timeout":      {"SHORTENER_TIMEOUT", "0s", "SHORTENER_TIMEOUT"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			base(t)
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			if err == nil {
				t.Fatalf("Load() should fail")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

// --- IsAdmin ---

func TestIsAdmin(t *testing.T) {
	cfg := Config{AdminIDs: []int64{10, 20}}
	if !cfg.IsAdmin(10) || !cfg.IsAdmin(20) {
		t.Errorf("configured ids should be admins")
	}
	if cfg.IsAdmin(30) {
		t.Errorf("unknown id should not be admin")
	}
	if (Config{}).IsAdmin(0) {
		t.Errorf("empty admin set should reject everyone")
	}
}

// --- helpers ---

func TestSplitIDs(t *testing.T) {
	cases := map[string]struct {
		in   string
		want []int64
	}{
		"empty":      {"", nil},
		"single":     {"42", []int64{42}},
		"mixed junk": {"1, x, 2,,3 ", []int64{1, 2, 3}},
		"negative":   {"-100123", []int64{-100123}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := splitIDs(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("splitIDs(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestGetBool(t *testing.T) {
	t.Setenv("X_BOOL", "on")
	if !getbool("X_BOOL", false) {
		t.Errorf("'on' should be true")
	}
	t.Setenv("X_BOOL", "off")
	if getbool("X_BOOL", true) {
		t.Errorf("'off' should be false")
	}
	t.Setenv("X_BOOL", "maybe")
	if !getbool("X_BOOL", true) {
		t.Errorf("unparseable value should keep the default")
	}
}
