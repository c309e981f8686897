package config

import (
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("REMOTE_BASE_URL", "https://api.example.test")
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Remote.BaseURL != "https://api.example.test" {
		t.Errorf("Remote.BaseURL = %q, want %q", cfg.Remote.BaseURL, "https://api.example.test")
	}
	if cfg.Store.Driver != "sqlite3" {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, "sqlite3")
	}
	if cfg.Sync.PageSize != 500 {
		t.Errorf("Sync.PageSize = %d, want %d", cfg.Sync.PageSize, 500)
	}
	if cfg.Sync.IDBatchSize != 50 {
		t.Errorf("Sync.IDBatchSize = %d, want %d", cfg.Sync.IDBatchSize, 50)
	}
	if cfg.Remote.Timeout != 60*time.Second {
		t.Errorf("Remote.Timeout = %v, want %v", cfg.Remote.Timeout, 60*time.Second)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if len(cfg.Scheduler.ScheduleTimes) != 4 {
		t.Errorf("Scheduler.ScheduleTimes = %v, want 4 entries", cfg.Scheduler.ScheduleTimes)
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		t.Errorf("Telemetry.OTLPEndpoint = %q, want traces off by default", cfg.Telemetry.OTLPEndpoint)
	}
	if cfg.Telemetry.SampleRatio != 1 {
		t.Errorf("Telemetry.SampleRatio = %v, want 1", cfg.Telemetry.SampleRatio)
	}
}

func TestLoad_MissingBaseURL(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing REMOTE_BASE_URL, got nil")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("SYNC_ID_BATCH_SIZE", "25")
	t.Setenv("SCHEDULER_TIMES", " 06:30 , 18:00 ,")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Store.Driver != "postgres" {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, "postgres")
	}
	if cfg.Sync.IDBatchSize != 25 {
		t.Errorf("Sync.IDBatchSize = %d, want 25", cfg.Sync.IDBatchSize)
	}
	if len(cfg.Scheduler.ScheduleTimes) != 2 || cfg.Scheduler.ScheduleTimes[0] != "06:30" {
		t.Errorf("Scheduler.ScheduleTimes = %v, want [06:30 18:00]", cfg.Scheduler.ScheduleTimes)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "STORE_DRIVER", "mongo"},
		{"non-numeric page size", "SYNC_PAGE_SIZE", "lots"},
		{"zero batch size", "SYNC_ID_BATCH_SIZE", "0"},
		{"negative window", "SYNC_CACHED_WINDOW_SIZE", "-1"},
		{"bad timeout", "REMOTE_TIMEOUT", "soon"},
		{"bad schedule time", "SCHEDULER_TIMES", "25:99"},
		{"bad db port", "DB_PORT", "abc"},
		{"no workers", "SCHEDULER_WORKERS", "0"},
		{"sample ratio above one", "OTEL_TRACES_SAMPLE_RATIO", "1.5"},
		{"non-numeric sample ratio", "OTEL_TRACES_SAMPLE_RATIO", "half"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnvVars(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q expected error, got nil", tt.key, tt.value)
			}
		})
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL_ENV", tt.value)
			if got := getBoolEnv("TEST_BOOL_ENV", tt.defaultValue); got != tt.want {
				t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "cache", SSLMode: "require"}
	want := "host=db port=5433 user=u password=p dbname=cache sslmode=require"
	if got := cfg.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
