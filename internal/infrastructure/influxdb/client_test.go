package influxdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/coupon-core/internal/infrastructure/config"
	"github.com/nerrad567/coupon-core/internal/infrastructure/connpool"
	"github.com/nerrad567/coupon-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/coupon-core/internal/sweep"
)

// testConfig targets a local development InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "couponsys-dev-token",
		Org:           "couponsys",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip skips the test when InfluxDB is not running.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping InfluxDB test in short mode")
	}
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // test cleanup
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var c *influxdb.Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	client.Close() //nolint:errcheck // testing post-close state
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestWrites(t *testing.T) {
	client := connectOrSkip(t)

	writeErrs := make(chan error, 8)
	client.SetOnError(func(err error) {
		select {
		case writeErrs <- err:
		default:
		}
	})

	reporter := influxdb.NewSweepReporter(client)
	if err := reporter.ReportSweep(context.Background(), sweep.Report{
		RunID: "test-run", StartedAt: time.Now(), Found: 1, Removed: 1,
	}); err != nil {
		t.Fatalf("ReportSweep() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	samples := 0
	client.SamplePool(ctx, "test-system", 10*time.Millisecond, func() connpool.Stats {
		samples++
		return connpool.Stats{Size: 2, Free: 2}
	})
	if samples == 0 {
		t.Error("SamplePool() took no samples")
	}

	client.Flush()
	select {
	case err := <-writeErrs:
		t.Errorf("async write error = %v", err)
	default:
	}
}
