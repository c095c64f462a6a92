package audit

import (
	"context"

	"github.com/nerrad567/coupon-core/internal/sweep"
)

// SweepReporter writes one audit entry per sweep tick.
type SweepReporter struct {
	repo Repository
}

// NewSweepReporter returns a sweep.Reporter backed by repo.
func NewSweepReporter(repo Repository) *SweepReporter {
	return &SweepReporter{repo: repo}
}

// ReportSweep records report under the "sweep" action.
func (r *SweepReporter) ReportSweep(ctx context.Context, report sweep.Report) error {
	details := map[string]any{
		"found":       report.Found,
		"removed":     report.Removed,
		"duration_ms": report.Duration.Milliseconds(),
		"complete":    report.Complete(),
	}
	if len(report.Failed) > 0 {
		details["failed"] = report.Failed
	}
	if report.Error != "" {
		details["error"] = report.Error
	}
	return r.repo.Create(ctx, &Entry{
		Action:     ActionSweep,
		EntityType: "coupon",
		EntityID:   report.RunID,
		Actor:      "system",
		Details:    details,
		CreatedAt:  report.StartedAt.UTC(),
	})
}
