package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/session"
	ws "github.com/coder/websocket"
)

// Query parameters naming the conversation a socket binds to.
const (
	QueryUserID         = "userId"
	QueryConversationID = "conversationId"
)

// DefaultWriteTimeout bounds a single outbound frame write.
const DefaultWriteTimeout = 10 * time.Second

// DefaultReadLimit is the largest inbound client frame accepted, in bytes.
const DefaultReadLimit = 64 << 10

// Conn is the outbound half of an accepted socket. It implements session.Transport.
type Conn struct {
	conn         *ws.Conn
	writeTimeout time.Duration
}

// NewConn wraps an established websocket.
func NewConn(c *ws.Conn, writeTimeout time.Duration) *Conn {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Conn{conn: c, writeTimeout: writeTimeout}
}

// Send writes msg as a single text frame.
func (c *Conn) Send(ctx context.Context, msg string) error {
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, []byte(msg))
}

// Handler accepts websocket upgrades and runs the per-connection read loop.
type Handler struct {
	mgr          *session.Manager
	origins      []string
	writeTimeout time.Duration
	readLimit    int64
	logger       *slog.Logger
}

// Option configures the Handler.
type Option func(*Handler)

// WithOriginPatterns allows cross-origin upgrades from hosts matching the patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) {
		h.origins = append(h.origins, patterns...)
	}
}

// WithWriteTimeout sets the per-frame write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithReadLimit sets the maximum inbound frame size.
func WithReadLimit(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithLogger configures a logger for the Handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a websocket handler bound to mgr.
func NewHandler(mgr *session.Manager, opts ...Option) *Handler {
	h := &Handler{
		mgr:          mgr,
		writeTimeout: DefaultWriteTimeout,
		readLimit:    DefaultReadLimit,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and blocks until the client goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get(QueryUserID)
	conversationID := r.URL.Query().Get(QueryConversationID)
	if userID == "" || conversationID == "" {
		http.Error(w, "userId and conversationId are required", http.StatusBadRequest)
		return
	}

	c, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "err", err)
		return
	}
	defer c.CloseNow()
	c.SetReadLimit(h.readLimit)

	ctx := r.Context()
	s, err := h.mgr.Attach(ctx, userID, conversationID, NewConn(c, h.writeTimeout))
	if err != nil {
		h.logger.Error("Attach failed", "user_id", userID, "conversation_id", conversationID, "err", err)
		c.Close(ws.StatusInternalError, "attach failed")
		return
	}
	defer func() {
		// The request context is gone once the peer closes; the snapshot save must still run.
		if err := h.mgr.Detach(context.WithoutCancel(ctx), s); err != nil {
			h.logger.Warn("Detach failed", "connection", s.Key(), "err", err)
		}
	}()

	h.readLoop(ctx, c, s)
}

func (h *Handler) readLoop(ctx context.Context, c *ws.Conn, s *session.Session) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch ws.CloseStatus(err) {
			case ws.StatusNormalClosure, ws.StatusGoingAway:
				h.logger.Debug("Client closed connection", "connection", s.Key())
			default:
				if !errors.Is(err, context.Canceled) {
					h.logger.Warn("Read failed", "connection", s.Key(), "err", err)
				}
			}
			return
		}
		if typ != ws.MessageText {
			h.logger.Debug("Ignoring binary frame", "connection", s.Key())
			continue
		}

		var msg domain.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("Malformed client frame", "connection", s.Key(), "err", err)
			continue
		}
		if err := h.mgr.HandleClientMessage(ctx, s, msg); err != nil {
			h.logger.Warn("Client message rejected",
				"connection", s.Key(),
				"type", msg.Type,
				"err", err,
			)
		}
	}
}
