package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/ports"
)

// DefaultTrigger is the trigger node unfocused user messages are routed to.
const DefaultTrigger = "chat"

// DefaultLockTTL bounds how long a distributed per-connection lock is held.
const DefaultLockTTL = 30 * time.Second

// ErrUnknownMessage is returned for a client frame with an unsupported type.
var ErrUnknownMessage = errors.New("unknown client message type")

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager tracks live sessions and serializes work per connection.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store      ports.SnapshotStore
	dispatcher ports.TriggerDispatcher

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	sessMu   sync.RWMutex
	sessions map[string]*Session

	locker         ports.DistributedLocker
	lockTTL        time.Duration
	defaultTrigger string
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore enables snapshot save on detach and restore on attach.
func WithStore(store ports.SnapshotStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithDispatcher sets where routed user messages go.
func WithDispatcher(d ports.TriggerDispatcher) Option {
	return func(m *Manager) {
		m.dispatcher = d
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithDefaultTrigger sets the trigger node used when nothing is focused.
func WithDefaultTrigger(trigger string) Option {
	return func(m *Manager) {
		if trigger != "" {
			m.defaultTrigger = trigger
		}
	}
}

// WithHooks sets connection lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:          make(map[string]*lockEntry),
		sessions:       make(map[string]*Session),
		lockTTL:        DefaultLockTTL,
		defaultTrigger: DefaultTrigger,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithLock executes fn while holding the lock for the connection key.
// The lock is not reentrant: fn must not call back into WithLock for the same key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"connection", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Attach registers a new connection, replacing any previous one for the same key.
// The new session starts with an empty mount registry; its history and focus are
// restored from the snapshot store when a snapshot exists.
func (m *Manager) Attach(ctx context.Context, userID, conversationID string, t Transport) (*Session, error) {
	if userID == "" || conversationID == "" {
		return nil, fmt.Errorf("attach: %w", domain.ErrMissingPublishingContext)
	}
	s := newSession(userID, conversationID, t, m.defaultTrigger, m.logger)

	restored := false
	err := m.WithLock(ctx, s.key, func(ctx context.Context) error {
		if m.store != nil {
			snap, err := m.store.Load(ctx, s.key)
			switch {
			case err == nil:
				s.restore(snap)
				restored = true
			case errors.Is(err, domain.ErrSessionNotFound):
			default:
				m.logger.Warn("Failed to load snapshot, starting empty", "connection", s.key, "err", err)
			}
		}

		m.sessMu.Lock()
		m.sessions[s.key] = s
		m.sessMu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Client attached", "connection", s.key, "restored", restored)
	if m.hooks.OnConnect != nil {
		m.hooks.OnConnect(ctx, &domain.ConnectionEvent{
			EventBase:     domain.EventBase{Timestamp: time.Now(), Type: domain.EventConnect},
			ConnectionKey: s.key,
			Restored:      restored,
		})
	}
	return s, nil
}

// Detach removes s if it is still the current session for its key and saves its snapshot.
func (m *Manager) Detach(ctx context.Context, s *Session) error {
	var saveErr error
	err := m.WithLock(ctx, s.key, func(ctx context.Context) error {
		m.sessMu.Lock()
		if cur, ok := m.sessions[s.key]; ok && cur == s {
			delete(m.sessions, s.key)
		}
		m.sessMu.Unlock()

		if m.store != nil {
			saveErr = m.store.Save(ctx, s.key, s.Snapshot())
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("Client detached", "connection", s.key)
	if m.hooks.OnDisconnect != nil {
		m.hooks.OnDisconnect(ctx, &domain.ConnectionEvent{
			EventBase:     domain.EventBase{Timestamp: time.Now(), Type: domain.EventDisconnect},
			ConnectionKey: s.key,
		})
	}
	if saveErr != nil {
		return fmt.Errorf("failed to save snapshot: %w", saveErr)
	}
	return nil
}

// Lookup implements ports.ConnectionRegistry.
func (m *Manager) Lookup(ctx context.Context, userID, conversationID string) (ports.Connection, bool) {
	s, ok := m.Session(userID, conversationID)
	if !ok {
		return nil, false
	}
	return s, true
}

// Session returns the live session for (userID, conversationID).
func (m *Manager) Session(userID, conversationID string) (*Session, bool) {
	m.sessMu.RLock()
	defer m.sessMu.RUnlock()
	s, ok := m.sessions[domain.ConnectionKey(userID, conversationID)]
	return s, ok
}

// Keys returns the connection keys of live sessions, sorted.
func (m *Manager) Keys() []string {
	m.sessMu.RLock()
	defer m.sessMu.RUnlock()
	keys := make([]string, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.sessMu.RLock()
	defer m.sessMu.RUnlock()
	return len(m.sessions)
}

// Conversation returns the turns of a conversation: from the live session when
// connected, otherwise from the snapshot store.
func (m *Manager) Conversation(ctx context.Context, userID, conversationID string) ([]domain.AssistantResponse, error) {
	if s, ok := m.Session(userID, conversationID); ok {
		return s.History().GetResponses(), nil
	}
	if m.store == nil {
		return nil, domain.ErrSessionNotFound
	}
	snap, err := m.store.Load(ctx, domain.ConnectionKey(userID, conversationID))
	if err != nil {
		return nil, err
	}
	out := make([]domain.AssistantResponse, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		if e.Kind == domain.EntryAssistant && e.Response != nil {
			out = append(out, *e.Response)
		}
	}
	return out, nil
}

// Forget drops the stored snapshot of a conversation.
func (m *Manager) Forget(ctx context.Context, userID, conversationID string) error {
	if m.store == nil {
		return nil
	}
	key := domain.ConnectionKey(userID, conversationID)
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Delete(ctx, key)
	})
}

// HandleClientMessage applies one client frame to s.
//
// A user message is recorded in the history and routed through the focus router:
// while focused it goes to the focused slot's trigger node and chat id, otherwise
// to the default trigger with a fresh chat id (or the one the client generated).
// The dispatch happens outside the connection lock.
func (m *Manager) HandleClientMessage(ctx context.Context, s *Session, msg domain.ClientMessage) error {
	switch msg.Type {
	case domain.MessageUserMessage:
		var trigger ports.Trigger
		err := m.WithLock(ctx, s.key, func(ctx context.Context) error {
			route := s.router.Route()
			chatID := route.ChatID
			if !route.Focused {
				chatID = msg.ChatID
			}
			um := s.history.AddUserMessageWithChat(msg.Content, chatID)
			trigger = ports.Trigger{
				TriggerNode:    route.TriggerNode,
				ChatID:         um.ChatID,
				ConversationID: s.conversationID,
				UserID:         s.userID,
				Content:        msg.Content,
				Focused:        route.Focused,
			}
			return nil
		})
		if err != nil {
			return err
		}
		return m.dispatch(ctx, trigger)

	case domain.MessageFocusOpen:
		if s.router.Open(msg.ComponentID, msg.TargetTriggerNode, msg.ChatID, msg.AgentName) {
			return nil
		}
		m.logger.Warn("Focus requested for unknown component",
			"connection", s.key,
			"component_id", msg.ComponentID,
			"target_trigger_node", msg.TargetTriggerNode,
		)
		// The client saw the component; replies still follow its target.
		if msg.TargetTriggerNode != "" {
			s.router.Restore(&domain.FocusState{
				ComponentID:       msg.ComponentID,
				TargetTriggerNode: msg.TargetTriggerNode,
				ChatID:            msg.ChatID,
				AgentName:         msg.AgentName,
			})
		}
		return nil

	case domain.MessageFocusClose:
		s.router.Close()
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
}

func (m *Manager) dispatch(ctx context.Context, t ports.Trigger) error {
	if m.dispatcher == nil {
		m.logger.Debug("No dispatcher, dropping user message",
			"connection", domain.ConnectionKey(t.UserID, t.ConversationID),
			"trigger_node", t.TriggerNode,
		)
		return nil
	}
	if err := m.dispatcher.Dispatch(ctx, t); err != nil {
		return fmt.Errorf("failed to dispatch to %s: %w", t.TriggerNode, err)
	}
	return nil
}
