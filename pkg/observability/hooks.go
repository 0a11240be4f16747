package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/surface/pkg/domain"
)

// Hooks returns lifecycle hooks that log through logger and record into m.
// Either may be nil.
func Hooks(logger *slog.Logger, m *Metrics) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPublish: func(ctx context.Context, e *domain.PublishEvent) {
			kind := "data"
			if e.Type == domain.EventPublishInit {
				kind = "init"
			}
			if logger != nil {
				logger.Debug("publish",
					"kind", kind,
					"connection", e.ConnectionKey,
					"mount_key", e.MountKey.String(),
					"component_type", e.ComponentType,
				)
			}
			if m != nil {
				m.Publishes.WithLabelValues(kind, e.ComponentType).Inc()
			}
		},
		OnPublishSkipped: func(ctx context.Context, e *domain.PublishEvent) {
			if logger != nil {
				logger.Info("publish_skipped",
					"connection", e.ConnectionKey,
					"mount_key", e.MountKey.String(),
					"reason", e.Reason,
				)
			}
			if m != nil {
				m.PublishesSkipped.WithLabelValues(e.Reason).Inc()
			}
		},
		OnNodeExecute: func(ctx context.Context, e *domain.NodeEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = "error"
			}
			if logger != nil {
				logger.Info("node_execute",
					"node_id", e.NodeID,
					"execution_id", e.ExecutionID,
					"component_type", e.ComponentType,
					"outcome", outcome,
				)
			}
			if m != nil {
				m.NodeExecutions.WithLabelValues(e.ComponentType, outcome).Inc()
			}
		},
		OnConnect: func(ctx context.Context, e *domain.ConnectionEvent) {
			if logger != nil {
				logger.Info("connect", "connection", e.ConnectionKey, "restored", e.Restored)
			}
			if m != nil {
				m.ActiveConnections.Inc()
				if e.Restored {
					m.Reconnects.Inc()
				}
			}
		},
		OnDisconnect: func(ctx context.Context, e *domain.ConnectionEvent) {
			if logger != nil {
				logger.Info("disconnect", "connection", e.ConnectionKey)
			}
			if m != nil {
				m.ActiveConnections.Dec()
			}
		},
	}
}

// Combine returns hooks that call every non-nil hook of each set in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, s := range sets {
		out.OnPublish = chain(out.OnPublish, s.OnPublish)
		out.OnPublishSkipped = chain(out.OnPublishSkipped, s.OnPublishSkipped)
		out.OnNodeExecute = chain(out.OnNodeExecute, s.OnNodeExecute)
		out.OnConnect = chain(out.OnConnect, s.OnConnect)
		out.OnDisconnect = chain(out.OnDisconnect, s.OnDisconnect)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
