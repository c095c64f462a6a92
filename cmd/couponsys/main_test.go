package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a config using dbPath and port and points
// COUPONSYS_CONFIG at it for the rest of the test.
func writeConfig(t *testing.T, dbPath string, port int) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := fmt.Sprintf(`
system:
  id: test-system

database:
  path: %q
  wal_mode: true
  busy_timeout: 5

pool:
  size: 3
  acquire_timeout: 5
  drain_timeout: 5

sweep:
  enabled: true
  interval: 1h

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: %d

security:
  jwt:
    secret: "test-secret-key-at-least-32-characters-long"
  admin:
    name: admin
    password: admin1234
`, dbPath, port)
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("COUPONSYS_CONFIG", configPath)
}

// freePort asks the kernel for an unused TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("COUPONSYS_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("run() error = %v, want loading config error", err)
	}
}

func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, "", 8080)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

func TestGetConfigPath(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want string
	}{
		{"default", "", defaultConfigPath},
		{"env override", "/custom/path/config.yaml", "/custom/path/config.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("COUPONSYS_CONFIG", tt.env)
			if got := getConfigPath(); got != tt.want {
				t.Errorf("getConfigPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRun_StartupAndShutdown boots the whole system without MQTT or
// InfluxDB, checks the health endpoint and cancels.
func TestRun_StartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "coupons.db")
	port := freePort(t)
	writeConfig(t, dbPath, port)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", port)
	var status int
	var body string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url) //nolint:noctx // test polling
		if err == nil {
			data, _ := io.ReadAll(resp.Body) //nolint:errcheck // test read
			resp.Body.Close()
			status, body = resp.StatusCode, string(data)
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if status != http.StatusOK {
		cancel()
		<-errCh
		t.Fatalf("health status = %d body %q, want 200", status, body)
	}
	if !strings.Contains(body, `"sweep"`) {
		t.Errorf("health body %q missing sweep stats", body)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// TestRun_SecondInstanceRefused holds the lock file with one instance and
// starts another against the same database.
func TestRun_SecondInstanceRefused(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "coupons.db")
	writeConfig(t, dbPath, freePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()
	defer func() {
		cancel()
		<-errCh
	}()

	// Wait for the first instance to take the lock.
	lockPath := dbPath + ".lock"
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(lockPath); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	writeConfig(t, dbPath, freePort(t))
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := run(ctx2); err == nil || !strings.Contains(err.Error(), "booting coordinator") {
		t.Errorf("second run() error = %v, want boot failure", err)
	}
}
