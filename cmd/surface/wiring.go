package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/surface"
	"github.com/aretw0/surface/internal/config"
	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/pkg/adapters/dispatch"
	"github.com/aretw0/surface/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/surface/pkg/adapters/redis"
	"github.com/aretw0/surface/pkg/catalog"
	"github.com/aretw0/surface/pkg/observability"
	"github.com/aretw0/surface/pkg/persistence/middleware"
	"github.com/aretw0/surface/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// app is a fully wired Surface instance plus the resources it owns.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	surface  *surface.Surface
	registry *prometheus.Registry
	redis    *goredis.Client
}

// loadConfig reads the config named by --config and builds the matching logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(level)
	if cfg.Log.Format == "json" {
		logger = logging.NewJSON(os.Stderr, level)
	}
	return cfg, logger, nil
}

// newApp wires storage, locking, dispatch, the catalog and metrics into a Surface.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}

	if cfg.Store.Driver == config.StoreRedis || cfg.Redis.Lock {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	store, err := a.snapshotStore()
	if err != nil {
		return nil, err
	}

	var locker ports.DistributedLocker
	if cfg.Redis.Lock {
		locker = redisAdapter.NewLocker(a.redis, cfg.Redis.Prefix+"lock:")
	}

	var dispatcher ports.TriggerDispatcher
	if cfg.Dispatch.WebhookURL != "" {
		opts := []dispatch.Option{
			dispatch.WithTimeout(cfg.Dispatch.Timeout),
			dispatch.WithLogger(logger.With("component", "dispatch")),
		}
		if cfg.Dispatch.Token != "" {
			opts = append(opts, dispatch.WithHeader("Authorization", "Bearer "+cfg.Dispatch.Token))
		}
		dispatcher = dispatch.NewWebhook(cfg.Dispatch.WebhookURL, opts...)
	}

	cat := catalog.New()
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(a.registry)

	opts := []surface.Option{
		surface.WithCatalog(cat),
		surface.WithDefaultTrigger(cfg.Dispatch.DefaultTrigger),
		surface.WithLiveChatSystem(cfg.LiveChat.System),
		surface.WithLifecycleHooks(observability.Hooks(logger, metrics)),
		surface.WithLogger(logger),
	}
	if store != nil {
		opts = append(opts, surface.WithStore(store))
	}
	if locker != nil {
		opts = append(opts, surface.WithLocker(locker))
	}
	if dispatcher != nil {
		opts = append(opts, surface.WithDispatcher(dispatcher))
	}

	a.surface, err = surface.New(opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// snapshotStore builds the configured store wrapped in PII masking and encryption.
func (a *app) snapshotStore() (ports.SnapshotStore, error) {
	var store ports.SnapshotStore
	switch a.cfg.Store.Driver {
	case config.StoreNone:
		return nil, nil
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreRedis:
		store = redisAdapter.NewFromClient(a.redis,
			redisAdapter.WithTTL(a.cfg.Store.TTL),
			redisAdapter.WithPrefix(a.cfg.Redis.Prefix),
		)
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}

	var mws []middleware.Middleware
	if len(a.cfg.Store.PIIPatterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(a.cfg.Store.PIIPatterns))
	}
	active, fallback, err := a.cfg.Encryption.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	return middleware.Chain(store, mws...), nil
}

// Close releases the Redis connection, if any.
func (a *app) Close() error {
	if a.redis == nil {
		return nil
	}
	if err := a.redis.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}
