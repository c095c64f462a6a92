package mqtt

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/nerrad567/coupon-core/internal/sweep"
)

// Publisher is the part of Client the sweep adapters need.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// SweepReporter publishes each sweep report on Topics.SweepReport.
type SweepReporter struct {
	pub Publisher
}

// NewSweepReporter returns a sweep.Reporter publishing through pub.
func NewSweepReporter(pub Publisher) *SweepReporter {
	return &SweepReporter{pub: pub}
}

// ReportSweep publishes report, retained so new subscribers see the last run.
func (r *SweepReporter) ReportSweep(_ context.Context, report sweep.Report) error {
	return r.pub.PublishJSON(Topics{}.SweepReport(), report, true)
}

// SweepCommandHandler returns a handler that starts one sweep tick per
// message. The payload is ignored. The tick runs on its own goroutine so the
// paho router keeps delivering while it works, and a command that arrives
// while a tick is still running is dropped. Tick errors go to logger, which
// may be nil.
func SweepCommandHandler(ctx context.Context, run func(ctx context.Context) (sweep.Report, error), logger Logger) MessageHandler {
	var running atomic.Bool
	return func(topic string, _ []byte) error {
		if !running.CompareAndSwap(false, true) {
			if logger != nil {
				logger.Warn("sweep command ignored, a tick is already running", "topic", topic)
			}
			return nil
		}
		go func() {
			defer running.Store(false)
			report, err := run(ctx)
			if err == nil || logger == nil {
				return
			}
			if errors.Is(err, sweep.ErrSweepIncomplete) {
				logger.Warn("commanded sweep incomplete", "run_id", report.RunID, "failed", len(report.Failed))
				return
			}
			logger.Error("commanded sweep failed", "run_id", report.RunID, "error", err)
		}()
		return nil
	}
}
