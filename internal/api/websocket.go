package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/coupon-core/internal/auth"
	"github.com/nerrad567/coupon-core/internal/infrastructure/config"
	"github.com/nerrad567/coupon-core/internal/infrastructure/logging"
	"github.com/nerrad567/coupon-core/internal/sweep"
)

// Stream frame types.
const (
	// StreamHello is the first frame on every connection. It carries the
	// most recent report, if any tick has run.
	StreamHello = "hello"
	// StreamSweepReport carries one report per sweep tick.
	StreamSweepReport = "sweep.report"
)

// streamBuffer is how many frames may queue for one client. A client that
// falls further behind is disconnected.
const streamBuffer = 16

// StreamFrame is one server-to-client message on the sweep stream.
type StreamFrame struct {
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Report    *sweep.Report `json:"report,omitempty"`
}

// Hub fans sweep reports out to connected stream clients. It implements
// sweep.Reporter.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	last    *sweep.Report
	closed  bool
}

// streamClient is one connection. send is closed by the hub, under mu,
// exactly once.
type streamClient struct {
	conn *websocket.Conn
	send chan []byte
	name string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a hub with no clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client and
// refuses new ones.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ReportSweep sends report to every client and remembers it for the hello
// frame of later connections.
func (h *Hub) ReportSweep(_ context.Context, report sweep.Report) error {
	data, err := encodeFrame(StreamSweepReport, &report)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &report
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("sweep stream client too slow, disconnecting", "client", c.name)
			h.dropLocked(c)
		}
	}
	return nil
}

// add registers c and queues its hello frame. It reports false once the
// hub has shut down.
func (h *Hub) add(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	hello, err := encodeFrame(StreamHello, h.last)
	if err != nil {
		return false
	}
	c.send <- hello
	h.clients[c] = struct{}{}
	h.logger.Debug("sweep stream client connected", "client", c.name, "clients", len(h.clients))
	return true
}

func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.dropLocked(c)
		h.logger.Debug("sweep stream client disconnected", "client", c.name, "clients", len(h.clients))
	}
}

func (h *Hub) dropLocked(c *streamClient) {
	delete(h.clients, c)
	close(c.send)
}

func encodeFrame(frameType string, report *sweep.Report) ([]byte, error) {
	return json.Marshal(StreamFrame{
		Type:      frameType,
		Timestamp: time.Now().UTC(),
		Report:    report,
	})
}

// handleWebSocket upgrades to the sweep report stream. Authentication is a
// single-use ticket from POST /ws-ticket, and only administrators may
// connect. The stream is one-way; client frames only keep the connection
// alive.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	principal, ok := s.tickets.consume(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}
	if principal.Type != auth.ClientAdmin {
		writeForbidden(w, "event stream requires client type ADMIN")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &streamClient{
		conn: conn,
		send: make(chan []byte, streamBuffer),
		name: principal.Name,
	}
	if !s.hub.add(c) {
		//nolint:errcheck // best-effort close frame
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go c.writePump(s.wsCfg)
	go c.readPump(s.hub, s.wsCfg)
}

// readPump discards client frames and notices disconnects.
func (c *streamClient) readPump(h *Hub, cfg config.WebSocketConfig) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	alive := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // best-effort deadline
	c.conn.SetReadDeadline(time.Now().Add(alive))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(alive))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("sweep stream read error", "client", c.name, "error", err)
			}
			return
		}
		//nolint:errcheck // best-effort deadline
		c.conn.SetReadDeadline(time.Now().Add(alive))
	}
}

// writePump sends queued frames and pings until the hub closes send.
func (c *streamClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	for {
		select {
		case frame, ok := <-c.send:
			//nolint:errcheck // write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				//nolint:errcheck // best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
