package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/ports"
	"github.com/google/uuid"
)

// Result reports the outcome of a publish.
// Channel is the connection key the message went to.
type Result struct {
	Success bool   `json:"success"`
	Channel string `json:"channel,omitempty"`
}

// Serializer runs fn while holding the per-connection lock for key.
// session.Manager implements it.
type Serializer interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Resolver completes a component before its INIT. catalog.Catalog implements it.
type Resolver interface {
	Resolve(p domain.ComponentPayload) (domain.ComponentPayload, error)
}

// Publisher turns publish requests into INIT or DATA messages.
type Publisher struct {
	conns    ports.ConnectionRegistry
	serial   Serializer
	resolver Resolver
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithHooks sets lifecycle hooks fired after each decision.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Publisher) {
		p.hooks = hooks
	}
}

// WithSerializer makes every publish run under the per-connection lock.
// Without one, callers must not publish concurrently to the same connection.
func WithSerializer(s Serializer) Option {
	return func(p *Publisher) {
		p.serial = s
	}
}

// WithResolver completes every INIT through r. DATA frames carry the
// caller's props untouched.
func WithResolver(r Resolver) Option {
	return func(p *Publisher) {
		p.resolver = r
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// WithIDGenerator overrides message id generation.
func WithIDGenerator(fn func() string) Option {
	return func(p *Publisher) {
		p.newID = fn
	}
}

// New creates a publisher resolving connections through conns.
func New(conns ports.ConnectionRegistry, opts ...Option) *Publisher {
	p := &Publisher{
		conns:  conns,
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends one INIT or DATA message for req.
//
// A missing connection is not an error: the result is unsuccessful and nothing is sent.
// A send failure leaves the mount key unregistered so the next publish retries the INIT.
func (p *Publisher) Publish(ctx context.Context, req domain.PublishRequest) (Result, error) {
	if req.MountKey().IsZero() || req.UserID == "" || req.ConversationID == "" {
		return Result{}, fmt.Errorf("publish %q: %w", req.Component.Type, domain.ErrMissingPublishingContext)
	}

	conn, ok := p.conns.Lookup(ctx, req.UserID, req.ConversationID)
	if !ok {
		p.logger.Warn("No connection for publish",
			"connection", req.ConnectionKey(),
			"mount_key", req.MountKey().String(),
			"component_type", req.Component.Type,
		)
		p.emitSkipped(ctx, req, "no connection")
		return Result{Success: false}, nil
	}

	result := Result{Channel: conn.Key()}
	send := func(ctx context.Context) error {
		return p.publishTo(ctx, conn, req)
	}

	var err error
	if p.serial != nil {
		err = p.serial.WithLock(ctx, conn.Key(), send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		return result, err
	}
	result.Success = true
	return result, nil
}

func (p *Publisher) publishTo(ctx context.Context, conn ports.Connection, req domain.PublishRequest) error {
	key := req.MountKey()
	mounted := conn.MountedComponents()

	if !mounted.Has(key) {
		if p.resolver != nil {
			resolved, err := p.resolver.Resolve(req.Component)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", key, err)
			}
			req.Component = resolved
		}
		msg := p.initMessage(req)
		if err := p.send(ctx, conn, msg); err != nil {
			return fmt.Errorf("send init for %s: %w", key, err)
		}
		mounted.Add(key)
		p.logger.Debug("Component mounted",
			"connection", conn.Key(),
			"mount_key", key.String(),
			"component_type", req.Component.Type,
		)
		p.emit(ctx, domain.EventPublishInit, conn.Key(), req)
		return nil
	}

	msg := p.dataMessage(req)
	if err := p.send(ctx, conn, msg); err != nil {
		return fmt.Errorf("send data for %s: %w", key, err)
	}
	p.emit(ctx, domain.EventPublishData, conn.Key(), req)
	return nil
}

func (p *Publisher) send(ctx context.Context, conn ports.Connection, msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return conn.Send(ctx, string(raw))
}

func (p *Publisher) header(req domain.PublishRequest, typ domain.MessageType) domain.Header {
	return domain.Header{
		ID:             p.newID(),
		Timestamp:      p.now().UnixMilli(),
		Type:           typ,
		NodeID:         req.NodeID,
		ChatID:         req.ChatID,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		ProviderID:     req.ProviderID,
	}
}

func (p *Publisher) initMessage(req domain.PublishRequest) domain.InitMessage {
	meta := extraMetadata(req)
	meta[domain.MetaComponentKey] = req.MountKey().String()
	if req.TargetTriggerNode != "" {
		meta[domain.MetaTargetTriggerNode] = req.TargetTriggerNode
	}

	props := domain.CloneMap(req.Component.Props)
	if props == nil {
		props = map[string]any{}
	}

	return domain.InitMessage{
		Header: p.header(req, domain.MessageComponentInit),
		Component: domain.ComponentDefinition{
			Type:         req.Component.Type,
			ComponentURL: req.Component.ComponentURL,
			Version:      req.Component.Version,
			Props:        props,
		},
		Metadata: meta,
	}
}

func (p *Publisher) dataMessage(req domain.PublishRequest) domain.DataMessage {
	return domain.DataMessage{
		Header:   p.header(req, domain.MessageComponentData),
		Data:     FilterEmpty(req.Component.Props),
		Metadata: extraMetadata(req),
	}
}

// extraMetadata is the caller-supplied metadata plus workflow identifiers.
func extraMetadata(req domain.PublishRequest) map[string]any {
	meta := make(map[string]any, len(req.Component.Metadata)+4)
	for k, v := range req.Component.Metadata {
		meta[k] = v
	}
	if req.WorkflowID != "" {
		meta[domain.MetaWorkflowID] = req.WorkflowID
	}
	if req.WorkflowRunID != "" {
		meta[domain.MetaWorkflowRunID] = req.WorkflowRunID
	}
	return meta
}

func (p *Publisher) emit(ctx context.Context, typ domain.EventType, connKey string, req domain.PublishRequest) {
	if p.hooks.OnPublish == nil {
		return
	}
	p.hooks.OnPublish(ctx, &domain.PublishEvent{
		EventBase:     domain.EventBase{Timestamp: p.now(), Type: typ},
		ConnectionKey: connKey,
		MountKey:      req.MountKey(),
		ComponentType: req.Component.Type,
	})
}

func (p *Publisher) emitSkipped(ctx context.Context, req domain.PublishRequest, reason string) {
	if p.hooks.OnPublishSkipped == nil {
		return
	}
	p.hooks.OnPublishSkipped(ctx, &domain.PublishEvent{
		EventBase:     domain.EventBase{Timestamp: p.now(), Type: domain.EventPublishSkipped},
		ConnectionKey: req.ConnectionKey(),
		MountKey:      req.MountKey(),
		ComponentType: req.Component.Type,
		Reason:        reason,
	})
}
