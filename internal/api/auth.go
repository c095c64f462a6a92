package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerrad567/coupon-core/internal/auth"
	"github.com/nerrad567/coupon-core/internal/infrastructure/config"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// loginRequest is the request body for POST /login.
type loginRequest struct {
	Name       string `json:"name"`
	Password   string `json:"password"`
	ClientType string `json:"client_type"`
}

// loginResponse is the response body for POST /login.
type loginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"`
	Principal   auth.Principal `json:"principal"`
}

// handleLogin authenticates a client and returns a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	clientType, err := auth.ParseClientType(req.ClientType)
	if err != nil {
		writeBadRequest(w, "client_type must be ADMIN, COMPANY or CUSTOMER")
		return
	}

	principal, err := s.facades.Login(r.Context(), req.Name, req.Password, clientType)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	ttl := time.Duration(s.secCfg.JWT.AccessTokenTTL) * time.Minute
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	token, err := auth.GenerateToken(principal, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	s.logger.Info("client logged in", "client_type", principal.Type, "client_id", principal.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		Principal:   principal,
	})
}

// handleMe returns the authenticated principal.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context()) //nolint:errcheck // authMiddleware guarantees presence
	writeJSON(w, http.StatusOK, p)
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	expiresAt time.Time
	principal auth.Principal
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// issue stores a new ticket for p and returns it.
func (ts *ticketStore) issue(p auth.Principal) string {
	ticket := generateTicket()
	ts.mu.Lock()
	ts.tickets[ticket] = ticketEntry{expiresAt: time.Now().Add(ticketTTL), principal: p}
	ts.mu.Unlock()
	return ticket
}

// consume checks a ticket and removes it (single-use).
func (ts *ticketStore) consume(ticket string) (auth.Principal, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return auth.Principal{}, false
	}
	delete(ts.tickets, ticket)

	if !time.Now().Before(entry.expiresAt) {
		return auth.Principal{}, false
	}
	return entry.principal, true
}

// cleanExpired removes expired tickets.
func (ts *ticketStore) cleanExpired() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	for ticket, entry := range ts.tickets {
		if now.After(entry.expiresAt) {
			delete(ts.tickets, ticket)
		}
	}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context()) //nolint:errcheck // authMiddleware guarantees presence
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     s.tickets.issue(p),
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}

// limiterIdleTTL is how long an address's limiter survives without requests.
const limiterIdleTTL = 15 * time.Minute

// loginLimiter throttles login attempts per client address with a token
// bucket per address.
type loginLimiter struct {
	enabled bool
	limit   rate.Limit
	burst   int

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter(cfg config.RateLimitConfig) *loginLimiter {
	l := &loginLimiter{
		enabled: cfg.Enabled && cfg.RequestsPerMinute > 0,
		burst:   cfg.Burst,
		entries: make(map[string]*limiterEntry),
	}
	if l.enabled {
		l.limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	if l.burst < 1 {
		l.burst = 1
	}
	return l
}

// allow reports whether key may attempt a login now.
func (l *loginLimiter) allow(key string) bool {
	if !l.enabled {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	ent, ok := l.entries[key]
	if !ok {
		ent = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = ent
	}
	ent.lastSeen = now
	l.mu.Unlock()

	return ent.lim.AllowN(now, 1)
}

// cleanup drops limiters idle for longer than limiterIdleTTL.
func (l *loginLimiter) cleanup() {
	cutoff := time.Now().Add(-limiterIdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// loginRateLimitMiddleware rejects login attempts over the configured rate.
func (s *Server) loginRateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientAddr(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "too many login attempts")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr returns the host part of the remote address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
