package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the nominal time between ticks.
const DefaultInterval = 24 * time.Hour

// State is the lifecycle state of a Sweep.
type State string

const (
	StateIdle       State = "idle"
	StateRunning    State = "running"
	StateSweeping   State = "sweeping"
	StateStopping   State = "stopping"
	StateTerminated State = "terminated"
)

// Record is an expired record found by DataAccess.
type Record struct {
	ID      int64
	Label   string
	EndDate time.Time
}

// DataAccess finds and removes expired records.
// Each call performs its own acquire/release cycle on the backing store.
type DataAccess interface {
	// FindExpired returns records whose validity ended strictly before now.
	FindExpired(ctx context.Context, now time.Time) ([]Record, error)

	// RemoveLinkage removes every row of the named join relation that
	// references recordID.
	RemoveLinkage(ctx context.Context, kind string, recordID int64) error

	// RemoveRecord removes the primary row.
	RemoveRecord(ctx context.Context, recordID int64) error
}

// Report summarises one tick.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Found     int           `json:"found"`
	Removed   int           `json:"removed"`
	Failed    []int64       `json:"failed,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Complete reports whether every record found was removed.
func (r Report) Complete() bool {
	return r.Error == "" && r.Removed == r.Found
}

// Reporter receives a Report after every tick.
type Reporter interface {
	ReportSweep(ctx context.Context, report Report) error
}

// Logger defines the logging interface for the sweep.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds sweep settings.
type Config struct {
	// Interval is the wait before each tick. Default: DefaultInterval.
	Interval time.Duration

	// Linkages names the join relations cleared before each record is removed.
	Linkages []string

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}

// Sweep periodically removes expired records.
type Sweep struct {
	cfg       Config
	data      DataAccess
	reporters []Reporter
	logger    Logger

	// tickMu serialises ticks from the loop and RunOnce.
	tickMu sync.Mutex

	mu         sync.RWMutex
	state      State
	started    bool
	ticks      int
	lastReport *Report

	stopCh     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
}

// New creates an idle sweep.
//
// Returns ErrInvalidConfig if data is nil or no linkages are configured.
func New(cfg Config, data DataAccess, reporters ...Reporter) (*Sweep, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: data access is nil", ErrInvalidConfig)
	}
	if len(cfg.Linkages) == 0 {
		return nil, fmt.Errorf("%w: no linkages configured", ErrInvalidConfig)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Sweep{
		cfg:       cfg,
		data:      data,
		reporters: reporters,
		logger:    noopLogger{},
		state:     StateIdle,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// SetLogger sets the logger for the sweep.
func (s *Sweep) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Start launches the sweep loop. It returns ErrAlreadyStarted if the sweep
// has been started before.
//
// Cancelling ctx stops the loop like Cancel. Ticks run with ctx's values but
// are not interrupted by its cancellation.
func (s *Sweep) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.state = StateRunning
	s.mu.Unlock()

	go s.loop(ctx)

	s.log().Info("expiration sweep started", "interval", s.cfg.Interval.String())
	return nil
}

// Cancel asks the loop to stop and interrupts its wait. A tick already in
// progress runs to completion. Safe to call more than once.
func (s *Sweep) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.stopCh)
	})
}

// Join blocks until the loop has exited. It returns immediately for a sweep
// that was never started.
func (s *Sweep) Join() {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return
	}
	<-s.done
}

// State returns the current lifecycle state.
func (s *Sweep) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stats is a snapshot of sweep activity.
type Stats struct {
	State      State   `json:"state"`
	Interval   string  `json:"interval"`
	Ticks      int     `json:"ticks"`
	LastReport *Report `json:"last_report,omitempty"`
}

// Stats returns a snapshot of sweep activity.
func (s *Sweep) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		State:    s.state,
		Interval: s.cfg.Interval.String(),
		Ticks:    s.ticks,
	}
	if s.lastReport != nil {
		r := *s.lastReport
		st.LastReport = &r
	}
	return st
}

func (s *Sweep) loop(ctx context.Context) {
	defer close(s.done)
	defer s.setState(StateTerminated)

	tickCtx := context.WithoutCancel(ctx)
	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		if s.stopping() {
			s.setState(StateStopping)
			return
		}

		select {
		case <-s.stopCh:
			s.setState(StateStopping)
			return
		case <-ctx.Done():
			s.setState(StateStopping)
			return
		case <-timer.C:
		}

		s.setState(StateSweeping)
		if _, err := s.RunOnce(tickCtx); err != nil {
			s.log().Error("expiration sweep tick failed", "error", err)
		}
		s.setState(StateRunning)

		timer.Reset(s.cfg.Interval)
	}
}

// RunOnce runs a single tick synchronously and hands the report to every
// reporter. Data-access errors are returned; an incomplete tick returns an
// error matching ErrSweepIncomplete.
func (s *Sweep) RunOnce(ctx context.Context) (Report, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	report, err := s.tick(ctx)
	if err != nil {
		report.Error = err.Error()
	}

	s.mu.Lock()
	s.ticks++
	s.lastReport = &report
	s.mu.Unlock()

	s.publish(ctx, report)
	return report, err
}

func (s *Sweep) tick(ctx context.Context) (Report, error) {
	began := time.Now()
	now := s.cfg.Now()
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: now,
	}

	expired, err := s.data.FindExpired(ctx, now)
	if err != nil {
		report.Duration = time.Since(began)
		return report, fmt.Errorf("finding expired records: %w", err)
	}
	report.Found = len(expired)

	for _, rec := range expired {
		if err := s.remove(ctx, rec.ID); err != nil {
			report.Failed = append(report.Failed, rec.ID)
			s.log().Warn("expired record not removed", "record_id", rec.ID, "label", rec.Label, "error", err)
			continue
		}
		report.Removed++
	}
	report.Duration = time.Since(began)

	if report.Removed != report.Found {
		return report, fmt.Errorf("%w: removed %d of %d expired records, %d failed",
			ErrSweepIncomplete, report.Removed, report.Found, report.Found-report.Removed)
	}
	s.log().Info("expiration sweep complete", "run_id", report.RunID, "removed", report.Removed)
	return report, nil
}

// remove clears every linkage for id, then the record. Any failure leaves
// the record counted as not removed.
func (s *Sweep) remove(ctx context.Context, id int64) error {
	for _, kind := range s.cfg.Linkages {
		if err := s.data.RemoveLinkage(ctx, kind, id); err != nil {
			return fmt.Errorf("removing %s linkage: %w", kind, err)
		}
	}
	if err := s.data.RemoveRecord(ctx, id); err != nil {
		return fmt.Errorf("removing record: %w", err)
	}
	return nil
}

// publish delivers report to every reporter concurrently. Delivery failures
// are logged and never affect the sweep.
func (s *Sweep) publish(ctx context.Context, report Report) {
	if len(s.reporters) == 0 {
		return
	}
	var g errgroup.Group
	for _, r := range s.reporters {
		g.Go(func() error {
			return r.ReportSweep(ctx, report)
		})
	}
	if err := g.Wait(); err != nil {
		s.log().Warn("sweep report delivery failed", "run_id", report.RunID, "error", err)
	}
}

func (s *Sweep) stopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Sweep) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Sweep) log() Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}
