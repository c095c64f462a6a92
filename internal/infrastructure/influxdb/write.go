package influxdb

import (
	"context"
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/coupon-core/internal/infrastructure/connpool"
	"github.com/nerrad567/coupon-core/internal/sweep"
)

// Measurement names.
const (
	MeasurementSweepRun  = "sweep_run"
	MeasurementPoolStats = "pool_stats"
)

// WriteSweepRun records one sweep tick. The write is non-blocking.
func (c *Client) WriteSweepRun(report sweep.Report) {
	c.writePoint(sweepRunPoint(report))
}

// WritePoolStats records a pool occupancy sample taken at t, tagged with
// the owning system's id.
func (c *Client) WritePoolStats(system string, stats connpool.Stats, t time.Time) {
	c.writePoint(poolStatsPoint(system, stats, t))
}

// SamplePool writes stats() every interval until ctx is cancelled.
func (c *Client) SamplePool(ctx context.Context, system string, interval time.Duration, stats func() connpool.Stats) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			c.WritePoolStats(system, stats(), t)
		}
	}
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

func sweepRunPoint(report sweep.Report) *write.Point {
	return write.NewPoint(
		MeasurementSweepRun,
		map[string]string{
			"complete": strconv.FormatBool(report.Complete()),
		},
		map[string]any{
			"found":       report.Found,
			"removed":     report.Removed,
			"failed":      report.Found - report.Removed,
			"duration_ms": report.Duration.Milliseconds(),
			"run_id":      report.RunID,
		},
		report.StartedAt,
	)
}

func poolStatsPoint(system string, stats connpool.Stats, t time.Time) *write.Point {
	return write.NewPoint(
		MeasurementPoolStats,
		map[string]string{"system": system},
		map[string]any{
			"size":   stats.Size,
			"free":   stats.Free,
			"leased": stats.Leased,
		},
		t,
	)
}

// SweepReporter writes a sweep_run point for every tick.
type SweepReporter struct {
	client *Client
}

// NewSweepReporter returns a sweep.Reporter backed by client.
func NewSweepReporter(client *Client) *SweepReporter {
	return &SweepReporter{client: client}
}

// ReportSweep queues the point. Write failures surface through SetOnError.
func (r *SweepReporter) ReportSweep(_ context.Context, report sweep.Report) error {
	if !r.client.IsConnected() {
		return ErrNotConnected
	}
	r.client.WriteSweepRun(report)
	return nil
}
