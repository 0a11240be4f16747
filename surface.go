package surface

import (
	"io"
	"log/slog"

	"github.com/aretw0/surface/pkg/catalog"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/livechat"
	"github.com/aretw0/surface/pkg/node"
	"github.com/aretw0/surface/pkg/ports"
	"github.com/aretw0/surface/pkg/publisher"
	"github.com/aretw0/surface/pkg/session"
)

// Surface is the high-level entry point for the library.
// It wires the session manager, the publisher, the node executor and the
// live-chat ingestor around one set of options.
type Surface struct {
	sessions  *session.Manager
	publisher *publisher.Publisher
	executor  *node.Executor
	ingestor  *session.Ingestor
	catalog   *catalog.Catalog

	store          ports.SnapshotStore
	locker         ports.DistributedLocker
	dispatcher     ports.TriggerDispatcher
	defaultTrigger string
	liveChatSystem string
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
}

// Option defines a functional option for configuring Surface.
type Option func(*Surface)

// WithStore keeps conversation snapshots for reconnecting clients.
func WithStore(store ports.SnapshotStore) Option {
	return func(s *Surface) {
		s.store = store
	}
}

// WithLocker serializes per-connection work across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Surface) {
		s.locker = locker
	}
}

// WithDispatcher sets where routed user messages are delivered.
func WithDispatcher(d ports.TriggerDispatcher) Option {
	return func(s *Surface) {
		s.dispatcher = d
	}
}

// WithCatalog replaces the built-in component catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Surface) {
		s.catalog = c
	}
}

// WithDefaultTrigger sets the trigger node unfocused user messages go to.
func WithDefaultTrigger(trigger string) Option {
	return func(s *Surface) {
		s.defaultTrigger = trigger
	}
}

// WithLiveChatSystem names the foreign live-chat system in normalized metadata.
func WithLiveChatSystem(name string) Option {
	return func(s *Surface) {
		s.liveChatSystem = name
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Surface) {
		s.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Surface) {
		s.logger = logger
	}
}

// New wires a Surface.
func New(opts ...Option) (*Surface, error) {
	s := &Surface{}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.catalog == nil {
		s.catalog = catalog.New()
	}

	s.sessions = session.NewManager(
		session.WithStore(s.store),
		session.WithLocker(s.locker),
		session.WithDispatcher(s.dispatcher),
		session.WithDefaultTrigger(s.defaultTrigger),
		session.WithHooks(s.hooks),
		session.WithLogger(s.logger.With("component", "sessions")),
	)
	s.publisher = publisher.New(s.sessions,
		publisher.WithSerializer(s.sessions),
		publisher.WithResolver(s.catalog),
		publisher.WithHooks(s.hooks),
		publisher.WithLogger(s.logger.With("component", "publisher")),
	)
	s.executor = node.NewExecutor(s.publisher,
		node.WithCatalog(s.catalog),
		node.WithHooks(s.hooks),
		node.WithLogger(s.logger.With("component", "executor")),
	)
	s.ingestor = session.NewIngestor(s.sessions, s.publisher,
		session.WithNormalizer(livechat.NewNormalizer(livechat.WithSystem(s.liveChatSystem))),
		session.WithIngestCatalog(s.catalog),
		session.WithIngestLogger(s.logger.With("component", "livechat")),
	)
	return s, nil
}

// Sessions returns the session manager transports attach connections to.
func (s *Surface) Sessions() *session.Manager { return s.sessions }

// Publisher returns the mount-state publisher.
func (s *Surface) Publisher() *publisher.Publisher { return s.publisher }

// Executor returns the node executor.
func (s *Surface) Executor() *node.Executor { return s.executor }

// Ingestor returns the live-chat ingestor.
func (s *Surface) Ingestor() *session.Ingestor { return s.ingestor }

// Catalog returns the component catalog.
func (s *Surface) Catalog() *catalog.Catalog { return s.catalog }
