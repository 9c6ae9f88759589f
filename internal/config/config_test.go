package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_TYPE", "DB_PATH", "DATABASE_URL", "ENABLE_SCHEDULER",
		"NOTIFICATION_START_HOUR", "NOTIFICATION_END_HOUR", "DUE_QUEUE_LIMIT", "LOG_MODE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBType != "sqlite" || cfg.DBPath != "data/studydeck.db" {
		t.Errorf("unexpected database defaults: %+v", cfg)
	}
	if !cfg.SchedulerEnabled {
		t.Error("scheduler should be enabled by default")
	}
	if cfg.DueQueueLimit != DefaultDueQueueLimit {
		t.Errorf("expected due queue limit %d, got %d", DefaultDueQueueLimit, cfg.DueQueueLimit)
	}
	if cfg.IsPostgres() {
		t.Error("sqlite config reported as postgres")
	}
}

func TestLoadEnvFile(t *testing.T) {
	for _, key := range []string{"DB_TYPE", "DATABASE_URL", "DUE_QUEUE_LIMIT", "ENABLE_SCHEDULER"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "DB_TYPE=postgres\nDATABASE_URL=postgres://localhost/studydeck?sslmode=disable\nDUE_QUEUE_LIMIT=25\nENABLE_SCHEDULER=false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsPostgres() {
		t.Errorf("expected postgres, got %q", cfg.DBType)
	}
	if cfg.DueQueueLimit != 25 {
		t.Errorf("expected limit 25, got %d", cfg.DueQueueLimit)
	}
	if cfg.SchedulerEnabled {
		t.Error("expected scheduler disabled")
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		DBType:                "sqlite",
		DBPath:                "x.db",
		NotificationStartHour: 8,
		NotificationEndHour:   22,
		DueQueueLimit:         100,
		LogMode:               "development",
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.DBType = "oracle" }, true},
		{"postgres without url", func(c *Config) { c.DBType = "postgres" }, true},
		{"postgres with url", func(c *Config) { c.DBType = "postgres"; c.DatabaseURL = "postgres://x" }, false},
		{"hour out of range", func(c *Config) { c.NotificationEndHour = 24 }, true},
		{"window reversed", func(c *Config) { c.NotificationStartHour = 20; c.NotificationEndHour = 6 }, true},
		{"zero limit", func(c *Config) { c.DueQueueLimit = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
