package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/coupon-core/internal/audit"
	"github.com/nerrad567/coupon-core/internal/facade"
	"github.com/nerrad567/coupon-core/internal/infrastructure/config"
	"github.com/nerrad567/coupon-core/internal/infrastructure/database"
	"github.com/nerrad567/coupon-core/internal/infrastructure/logging"
	"github.com/nerrad567/coupon-core/internal/sweep"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Runtime exposes the coordinator state the API reports on.
// *system.Coordinator satisfies it.
type Runtime interface {
	Pool() (*database.Pool, error)
	Sweep() *sweep.Sweep
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Facades  *facade.Service
	Runtime  Runtime

	// DB is checked by the health endpoint. Optional.
	DB HealthChecker

	// Audit backs GET /admin/audit. Optional.
	Audit audit.Repository

	// Hub, if set, is used instead of a server-owned hub. This lets the
	// hub be registered as a sweep reporter before the coordinator boots.
	Hub *Hub

	Version string
}

// Server is the HTTP API server for the coupon system.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	facades   *facade.Service
	runtime   Runtime
	db        HealthChecker
	auditRepo audit.Repository
	version   string
	startTime time.Time

	server  *http.Server
	hub     *Hub
	tickets *ticketStore
	limiter *loginLimiter
	cancel  context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Facades == nil {
		return nil, fmt.Errorf("facade service is required")
	}
	if deps.Runtime == nil {
		return nil, fmt.Errorf("runtime is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		facades:   deps.Facades,
		runtime:   deps.Runtime,
		db:        deps.DB,
		auditRepo: deps.Audit,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       deps.Hub,
		tickets:   newTicketStore(),
		limiter:   newLoginLimiter(deps.Security.RateLimit),
	}
	if s.hub == nil {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It runs the WebSocket hub and the ticket and limiter janitors, then
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.janitorLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// janitorInterval is how often expired tickets and idle limiters are purged.
const janitorInterval = time.Minute

// janitorLoop purges expired tickets and idle limiters until ctx is cancelled.
func (s *Server) janitorLoop(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickets.cleanExpired()
			s.limiter.cleanup()
		}
	}
}
