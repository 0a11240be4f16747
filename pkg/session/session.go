package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/focus"
	"github.com/aretw0/surface/pkg/history"
)

// Transport is the outbound half of a client connection.
type Transport interface {
	Send(ctx context.Context, msg string) error
}

// Session is one live client connection. It implements ports.Connection.
type Session struct {
	userID         string
	conversationID string
	key            string
	createdAt      time.Time

	transport Transport
	mounted   *domain.MountRegistry
	history   *history.History
	router    *focus.Router
	logger    *slog.Logger
}

func newSession(userID, conversationID string, t Transport, defaultTrigger string, logger *slog.Logger) *Session {
	h := history.New()
	return &Session{
		userID:         userID,
		conversationID: conversationID,
		key:            domain.ConnectionKey(userID, conversationID),
		createdAt:      time.Now(),
		transport:      t,
		mounted:        domain.NewMountRegistry(),
		history:        h,
		router:         focus.NewRouter(h, defaultTrigger),
		logger:         logger,
	}
}

// Key returns the connection key.
func (s *Session) Key() string { return s.key }

// UserID returns the user the connection belongs to.
func (s *Session) UserID() string { return s.userID }

// ConversationID returns the conversation the connection is bound to.
func (s *Session) ConversationID() string { return s.conversationID }

// CreatedAt returns when the client attached.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// MountedComponents returns the mount registry of this connection.
func (s *Session) MountedComponents() *domain.MountRegistry { return s.mounted }

// History returns the server-side mirror of the conversation.
func (s *Session) History() *history.History { return s.history }

// Focus returns the focus router of the conversation.
func (s *Session) Focus() *focus.Router { return s.router }

// Send writes msg to the client and, once written, mirrors it into the history.
func (s *Session) Send(ctx context.Context, msg string) error {
	if err := s.transport.Send(ctx, msg); err != nil {
		return err
	}

	var env domain.Envelope
	if err := json.Unmarshal([]byte(msg), &env); err != nil {
		s.logger.Warn("Sent frame is not an envelope", "connection", s.key, "err", err)
		return nil
	}
	if _, ok := s.history.Apply(env); !ok {
		s.logger.Debug("Frame not mirrored", "connection", s.key, "type", env.Type, "mount_key", env.MountKey().String())
	}
	return nil
}

// Snapshot captures the conversation for the snapshot store.
func (s *Session) Snapshot() *domain.Snapshot {
	snap := &domain.Snapshot{
		ConversationID: s.conversationID,
		Entries:        s.history.Entries(),
	}
	if state, ok := s.router.State(); ok {
		snap.Focus = &state
	}
	return snap
}

// restore loads a snapshot into a fresh session. The mount registry stays empty:
// the client is new, so every slot gets a fresh INIT. The saved focus is not
// restored either; the new client starts unfocused and reopens it explicitly.
func (s *Session) restore(snap *domain.Snapshot) {
	s.history.Restore(snap.Entries)
}

// View builds the focus-aware presentation model of the conversation.
func (s *Session) View() focus.View {
	return s.router.View(history.Renderable(s.history.GetResponses()))
}
