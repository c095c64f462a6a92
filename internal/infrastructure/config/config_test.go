package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

const validSecret = "test-secret-key-at-least-32-chars!"

// writeConfig writes content to a temporary config.yaml and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
system:
  id: "test-system"
database:
  path: "/tmp/test.db"
pool:
  size: 4
  acquire_timeout: 2
sweep:
  enabled: true
  interval: 90s
security:
  jwt:
    secret: "`+validSecret+`"
  admin:
    name: admin
    password: "1234"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.System.ID != "test-system" {
		t.Errorf("System.ID = %q, want %q", cfg.System.ID, "test-system")
	}
	if cfg.Pool.Size != 4 {
		t.Errorf("Pool.Size = %d, want 4", cfg.Pool.Size)
	}
	if cfg.AcquireTimeout() != 2*time.Second {
		t.Errorf("AcquireTimeout() = %v, want 2s", cfg.AcquireTimeout())
	}
	if cfg.Sweep.Interval != 90*time.Second {
		t.Errorf("Sweep.Interval = %v, want 90s", cfg.Sweep.Interval)
	}
	// Defaults survive for keys the file leaves out.
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default 8080", cfg.API.Port)
	}
	if cfg.LockPath() != "/tmp/test.db.lock" {
		t.Errorf("LockPath() = %q, want %q", cfg.LockPath(), "/tmp/test.db.lock")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
security:
  jwt:
    secret: "`+validSecret+`"
  admin:
    password: "file-password"
`)
	t.Setenv("COUPONSYS_DATABASE_PATH", "/var/lib/couponsys/env.db")
	t.Setenv("COUPONSYS_POOL_SIZE", "3")
	t.Setenv("COUPONSYS_SWEEP_INTERVAL", "5m")
	t.Setenv("COUPONSYS_ADMIN_PASSWORD", "env-password")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/var/lib/couponsys/env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Pool.Size != 3 {
		t.Errorf("Pool.Size = %d, want 3", cfg.Pool.Size)
	}
	if cfg.Sweep.Interval != 5*time.Minute {
		t.Errorf("Sweep.Interval = %v, want 5m", cfg.Sweep.Interval)
	}
	if cfg.Security.Admin.Password != "env-password" {
		t.Errorf("Admin.Password = %q, want env override", cfg.Security.Admin.Password)
	}
}

func TestLoad_BadEnvOverride(t *testing.T) {
	path := writeConfig(t, "system:\n  id: x\n")
	t.Setenv("COUPONSYS_POOL_SIZE", "ten")

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "COUPONSYS_POOL_SIZE") {
		t.Errorf("Load() error = %v, want COUPONSYS_POOL_SIZE parse failure", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWT.Secret = validSecret
		cfg.Security.Admin.Password = "1234"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing system id", func(c *Config) { c.System.ID = "" }, "system.id"},
		{"empty database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero pool size", func(c *Config) { c.Pool.Size = 0 }, "pool.size"},
		{"negative acquire timeout", func(c *Config) { c.Pool.AcquireTimeout = -1 }, "pool.acquire_timeout"},
		{"zero sweep interval", func(c *Config) { c.Sweep.Interval = 0 }, "sweep.interval"},
		{"disabled sweep ignores interval", func(c *Config) { c.Sweep.Enabled = false; c.Sweep.Interval = 0 }, ""},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
		{"missing jwt secret", func(c *Config) { c.Security.JWT.Secret = "" }, "security.jwt.secret is required"},
		{"short jwt secret", func(c *Config) { c.Security.JWT.Secret = "short" }, "at least 32 characters"},
		{"missing admin password", func(c *Config) { c.Security.Admin.Password = "" }, "security.admin"},
		{"unknown timezone", func(c *Config) { c.System.Timezone = "Mars/Olympus_Mons" }, "system.timezone"},
		{"named timezone", func(c *Config) { c.System.Timezone = "Pacific/Auckland" }, ""},
		{"zero rate limit", func(c *Config) { c.Security.RateLimit.RequestsPerMinute = 0 }, "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.System.ID = ""
	cfg.Pool.Size = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"system.id", "pool.size", "security.jwt.secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, missing %q", err, want)
		}
	}
}

func TestClock_UsesConfiguredZone(t *testing.T) {
	// 23:30 UTC on the 15th is already the 16th in Auckland and still the
	// 15th in Los Angeles.
	instant := time.Date(2026, 10, 15, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		timezone string
		wantDay  string
	}{
		{"UTC", "2026-10-15"},
		{"", "2026-10-15"},
		{"Pacific/Auckland", "2026-10-16"},
		{"America/Los_Angeles", "2026-10-15"},
		{"Mars/Olympus_Mons", "2026-10-15"},
	}
	for _, tt := range tests {
		t.Run(tt.timezone, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.System.Timezone = tt.timezone
			now := cfg.Clock(func() time.Time { return instant })()
			if got := now.Format("2006-01-02"); got != tt.wantDay {
				t.Errorf("Clock() day = %s, want %s", got, tt.wantDay)
			}
			if !now.Equal(instant) {
				t.Errorf("Clock() = %v, want the same instant as %v", now, instant)
			}
		})
	}
}

func TestLoad_TimezoneEnvOverride(t *testing.T) {
	path := writeConfig(t, `
system:
  id: "test-system"
  timezone: "UTC"
database:
  path: "/tmp/test.db"
security:
  jwt:
    secret: "`+validSecret+`"
  admin:
    name: admin
    password: "1234"
`)
	t.Setenv("COUPONSYS_SYSTEM_TIMEZONE", "Pacific/Auckland")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Location().String(); got != "Pacific/Auckland" {
		t.Errorf("Location() = %s, want Pacific/Auckland", got)
	}
}
