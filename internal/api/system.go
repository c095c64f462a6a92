package api

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/coupon-core/internal/infrastructure/connpool"
	"github.com/nerrad567/coupon-core/internal/sweep"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	Timestamp     string          `json:"timestamp"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Database      string          `json:"database"`
	Pool          *connpool.Stats `json:"pool,omitempty"`
	Sweep         *sweep.Stats    `json:"sweep,omitempty"`
	Goroutines    int             `json:"goroutines"`
	WSClients     int             `json:"ws_clients"`
}

// handleHealth reports database reachability, pool occupancy and sweep
// state. It answers 503 when the database is unreachable or the pool is
// closed or not yet built.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Database:      "ok",
		Goroutines:    runtime.NumGoroutine(),
		WSClients:     s.hub.ClientCount(),
	}

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("database health check failed", "error", err)
			resp.Database = "unreachable"
			resp.Status = "degraded"
		}
	}

	if pool, err := s.runtime.Pool(); err != nil {
		resp.Status = "degraded"
	} else {
		st := pool.Stats()
		resp.Pool = &st
		if st.Closed {
			resp.Status = "degraded"
		}
	}

	if sw := s.runtime.Sweep(); sw != nil {
		st := sw.Stats()
		resp.Sweep = &st
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleSweepStatus returns the sweep's state and last report.
func (s *Server) handleSweepStatus(w http.ResponseWriter, _ *http.Request) {
	sw := s.runtime.Sweep()
	if sw == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "expiration sweep is not running")
		return
	}
	writeJSON(w, http.StatusOK, sw.Stats())
}

// handleRunSweep runs one sweep tick now. An incomplete tick still answers
// 200; the report's error and failed fields describe what was left.
func (s *Server) handleRunSweep(w http.ResponseWriter, r *http.Request) {
	sw := s.runtime.Sweep()
	if sw == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "expiration sweep is not running")
		return
	}

	report, err := sw.RunOnce(r.Context())
	if err != nil && !errors.Is(err, sweep.ErrSweepIncomplete) {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report":   report,
		"complete": report.Complete(),
	})
}
