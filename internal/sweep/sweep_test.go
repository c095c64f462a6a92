package sweep

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/coupon-core/internal/infrastructure/connpool"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

var testLinkages = []string{"company_coupon", "customer_coupon"}

type nopConn struct{}

func (nopConn) Close() error { return nil }

// memStore is an in-memory DataAccess whose every call leases a pool handle.
type memStore struct {
	pool *connpool.Pool[nopConn]

	mu      sync.Mutex
	records map[int64]time.Time
	links   map[string]map[int64]bool

	findErr    error
	linkFailID int64

	// findGate, when set, blocks FindExpired until closed.
	findGate    chan struct{}
	findEntered chan struct{}
}

func newMemStore(t *testing.T) *memStore {
	t.Helper()
	pool, err := connpool.New(context.Background(), 2, func(context.Context) (nopConn, error) {
		return nopConn{}, nil
	})
	if err != nil {
		t.Fatalf("connpool.New() error = %v", err)
	}
	s := &memStore{
		pool:    pool,
		records: make(map[int64]time.Time),
		links:   make(map[string]map[int64]bool),
	}
	for _, kind := range testLinkages {
		s.links[kind] = make(map[int64]bool)
	}
	return s
}

// seed adds expired records (ending yesterday) and valid ones (ending today or later).
func (s *memStore) seed(expired, valid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := int64(len(s.records) + 1)
	for i := 0; i < expired; i++ {
		s.records[next] = testNow.AddDate(0, 0, -1-i)
		for _, kind := range testLinkages {
			s.links[kind][next] = true
		}
		next++
	}
	for i := 0; i < valid; i++ {
		s.records[next] = testNow.AddDate(0, 0, i)
		s.links["company_coupon"][next] = true
		next++
	}
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memStore) FindExpired(ctx context.Context, now time.Time) ([]Record, error) {
	if s.findEntered != nil {
		close(s.findEntered)
		s.findEntered = nil
	}
	if s.findGate != nil {
		<-s.findGate
	}
	var out []Record
	err := s.pool.Do(ctx, func(context.Context, nopConn) error {
		if s.findErr != nil {
			return s.findErr
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		today := now.Format("2006-01-02")
		for id, end := range s.records {
			if end.Format("2006-01-02") < today {
				out = append(out, Record{ID: id, Label: fmt.Sprintf("rec-%d", id), EndDate: end})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *memStore) RemoveLinkage(ctx context.Context, kind string, id int64) error {
	return s.pool.Do(ctx, func(context.Context, nopConn) error {
		if id == s.linkFailID {
			return errors.New("link table locked")
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.links[kind], id)
		return nil
	})
}

func (s *memStore) RemoveRecord(ctx context.Context, id int64) error {
	return s.pool.Do(ctx, func(context.Context, nopConn) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		for kind, links := range s.links {
			if links[id] {
				return fmt.Errorf("record %d still linked from %s", id, kind)
			}
		}
		if _, ok := s.records[id]; !ok {
			return errors.New("not found")
		}
		delete(s.records, id)
		return nil
	})
}

// chanReporter forwards reports to a channel.
type chanReporter chan Report

func (c chanReporter) ReportSweep(_ context.Context, r Report) error {
	select {
	case c <- r:
	default:
	}
	return nil
}

type failingReporter struct{}

func (failingReporter) ReportSweep(context.Context, Report) error {
	return errors.New("broker unavailable")
}

func newTestSweep(t *testing.T, store *memStore, interval time.Duration, reporters ...Reporter) *Sweep {
	t.Helper()
	s, err := New(Config{
		Interval: interval,
		Linkages: testLinkages,
		Now:      func() time.Time { return testNow },
	}, store, reporters...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNew_InvalidConfig(t *testing.T) {
	store := newMemStore(t)
	tests := []struct {
		name string
		cfg  Config
		data DataAccess
	}{
		{"nil data access", Config{Linkages: testLinkages}, nil},
		{"no linkages", Config{}, store},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, tt.data); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRunOnce_RemovesOnlyExpired(t *testing.T) {
	store := newMemStore(t)
	store.seed(5, 7)
	s := newTestSweep(t, store, time.Hour)

	report, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if report.Found != 5 || report.Removed != 5 || !report.Complete() {
		t.Errorf("RunOnce() report = %+v, want found=5 removed=5", report)
	}
	if got := store.count(); got != 7 {
		t.Errorf("%d records remain, want 7", got)
	}
	if stats := store.pool.Stats(); stats.Leased != 0 {
		t.Errorf("Stats().Leased = %d after tick, want 0", stats.Leased)
	}

	again, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second RunOnce() error = %v", err)
	}
	if again.Found != 0 || again.Removed != 0 {
		t.Errorf("second RunOnce() report = %+v, want nothing found", again)
	}
	if again.RunID == report.RunID {
		t.Error("RunOnce() reused a run id")
	}
}

func TestRunOnce_PartialRemovalIsIncomplete(t *testing.T) {
	store := newMemStore(t)
	store.seed(5, 1)
	store.linkFailID = 3
	s := newTestSweep(t, store, time.Hour)

	report, err := s.RunOnce(context.Background())
	if !errors.Is(err, ErrSweepIncomplete) {
		t.Fatalf("RunOnce() error = %v, want ErrSweepIncomplete", err)
	}
	if report.Found != 5 || report.Removed != 4 {
		t.Errorf("report = %+v, want found=5 removed=4", report)
	}
	if len(report.Failed) != 1 || report.Failed[0] != 3 {
		t.Errorf("report.Failed = %v, want [3]", report.Failed)
	}
	if report.Complete() || report.Error == "" {
		t.Errorf("report = %+v, want incomplete with error text", report)
	}
	if got := store.count(); got != 2 {
		t.Errorf("%d records remain, want 2", got)
	}
}

func TestRunOnce_FindFailurePropagates(t *testing.T) {
	store := newMemStore(t)
	store.findErr = errors.New("disk I/O error")
	s := newTestSweep(t, store, time.Hour)

	_, err := s.RunOnce(context.Background())
	if !errors.Is(err, store.findErr) {
		t.Errorf("RunOnce() error = %v, want wrapped find error", err)
	}
	if errors.Is(err, ErrSweepIncomplete) {
		t.Errorf("RunOnce() error = %v, should not be ErrSweepIncomplete", err)
	}
}

func TestStart_TicksAndReports(t *testing.T) {
	store := newMemStore(t)
	store.seed(2, 1)
	reports := make(chanReporter, 8)
	s := newTestSweep(t, store, 10*time.Millisecond, reports, failingReporter{})

	if s.State() != StateIdle {
		t.Fatalf("State() = %v before Start, want idle", s.State())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case r := <-reports:
			if i == 0 && r.Removed != 2 {
				t.Errorf("first report removed %d, want 2", r.Removed)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no report for tick %d", i+1)
		}
	}

	s.Cancel()
	s.Join()

	if s.State() != StateTerminated {
		t.Errorf("State() after Join = %v, want terminated", s.State())
	}
	if stats := s.Stats(); stats.Ticks < 2 || stats.LastReport == nil {
		t.Errorf("Stats() = %+v, want at least 2 ticks", stats)
	}
	if stats := store.pool.Stats(); stats.Leased != 0 {
		t.Errorf("Stats().Leased = %d after Join, want 0", stats.Leased)
	}
}

func TestStart_ContinuesAfterIncompleteTick(t *testing.T) {
	store := newMemStore(t)
	store.seed(1, 0)
	store.linkFailID = 1
	reports := make(chanReporter, 8)
	s := newTestSweep(t, store, 5*time.Millisecond, reports)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		s.Cancel()
		s.Join()
	}()

	for i := 0; i < 3; i++ {
		select {
		case r := <-reports:
			if r.Complete() {
				t.Errorf("tick %d reported complete, want incomplete", i+1)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("sweep stopped after incomplete tick %d", i)
		}
	}
}

func TestCancelJoin_InterruptsWait(t *testing.T) {
	store := newMemStore(t)
	s := newTestSweep(t, store, time.Hour)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	start := time.Now()
	s.Cancel()
	joined := make(chan struct{})
	go func() {
		s.Join()
		close(joined)
	}()

	select {
	case <-joined:
	case <-time.After(time.Second):
		t.Fatal("Join() did not return promptly after Cancel")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Cancel+Join took %v", elapsed)
	}
	s.Cancel() // second Cancel is a no-op
}

func TestCancel_DoesNotPreemptTick(t *testing.T) {
	store := newMemStore(t)
	store.seed(3, 0)
	store.findGate = make(chan struct{})
	store.findEntered = make(chan struct{})
	entered := store.findEntered
	s := newTestSweep(t, store, time.Millisecond)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not start")
	}
	if s.State() != StateSweeping {
		t.Errorf("State() during tick = %v, want sweeping", s.State())
	}

	s.Cancel()
	joined := make(chan struct{})
	go func() {
		s.Join()
		close(joined)
	}()

	select {
	case <-joined:
		t.Fatal("Join() returned while a tick was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.findGate)
	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("Join() did not return after the tick finished")
	}

	if got := store.count(); got != 0 {
		t.Errorf("%d records remain, want in-flight tick to finish removing all 3", got)
	}
	if stats := s.Stats(); stats.Ticks != 1 {
		t.Errorf("Stats().Ticks = %d, want 1", stats.Ticks)
	}
}

func TestStart_ContextCancelStopsLoop(t *testing.T) {
	store := newMemStore(t)
	s := newTestSweep(t, store, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	joined := make(chan struct{})
	go func() {
		s.Join()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after context cancel")
	}
}

func TestJoin_NeverStarted(t *testing.T) {
	s := newTestSweep(t, newMemStore(t), time.Hour)

	done := make(chan struct{})
	go func() {
		s.Cancel()
		s.Join()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join() blocked on a sweep that never started")
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
}
