package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/internal/validator"
	"github.com/aretw0/surface/pkg/catalog"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/publisher"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// PublishingContextParam is the params key a node may carry its publishing context under
// when the orchestrator does not set ExecutionContext.Publishing.
const PublishingContextParam = "publishingContext"

// ExecutionContext describes one node execution.
type ExecutionContext struct {
	NodeID        string                    `json:"nodeId"`
	ExecutionID   string                    `json:"executionId,omitempty"`
	WorkflowID    string                    `json:"workflowId,omitempty"`
	WorkflowRunID string                    `json:"workflowRunId,omitempty"`
	Publishing    *domain.PublishingContext `json:"publishingContext,omitempty"`
}

// Params are the node parameters naming the component to publish.
type Params struct {
	ComponentType string         `mapstructure:"componentType" validate:"required"`
	Version       string         `mapstructure:"version"`
	ComponentURL  string         `mapstructure:"componentUrl"`
	Props         map[string]any `mapstructure:"props"`
	Metadata      map[string]any `mapstructure:"metadata"`
}

// Publisher is the part of publisher.Publisher the executor needs.
type Publisher interface {
	Publish(ctx context.Context, req domain.PublishRequest) (publisher.Result, error)
}

// Executor runs component-publishing nodes.
type Executor struct {
	pub     Publisher
	catalog *catalog.Catalog
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	newID   func() string
}

// Option configures the Executor.
type Option func(*Executor)

// WithCatalog checks components against c before publishing. Defaults and
// required properties are left to the publisher's INIT resolution.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Executor) {
		e.catalog = c
	}
}

// WithHooks sets lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an executor publishing through pub.
func NewExecutor(pub Publisher, opts ...Option) *Executor {
	e := &Executor{
		pub:    pub,
		logger: logging.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute publishes the component described by params.
//
// It fails with domain.ErrMissingPublishingContext when no destination is known,
// with validator.ErrValidation for malformed params, and with the catalog errors
// for unknown types or invalid props. A missing connection is not a failure.
func (e *Executor) Execute(ctx context.Context, ec ExecutionContext, params map[string]any) (publisher.Result, error) {
	if ec.ExecutionID == "" {
		ec.ExecutionID = e.newID()
	}
	res, typ, err := e.execute(ctx, ec, params)
	e.emit(ctx, ec, typ, err)
	if err != nil {
		e.logger.Error("Node execution failed",
			"node_id", ec.NodeID,
			"execution_id", ec.ExecutionID,
			"component_type", typ,
			"err", err,
		)
	}
	return res, err
}

func (e *Executor) execute(ctx context.Context, ec ExecutionContext, params map[string]any) (publisher.Result, string, error) {
	var p Params
	if err := decode(params, &p); err != nil {
		return publisher.Result{}, "", fmt.Errorf("%w: %v", validator.ErrValidation, err)
	}

	pc, err := publishingContext(ec, params)
	if err != nil {
		return publisher.Result{}, p.ComponentType, err
	}
	if ec.NodeID == "" {
		return publisher.Result{}, p.ComponentType, fmt.Errorf("node id: %w", domain.ErrMissingPublishingContext)
	}

	if err := validator.Struct(p); err != nil {
		return publisher.Result{}, p.ComponentType, err
	}

	payload := domain.ComponentPayload{
		Type:         p.ComponentType,
		Version:      p.Version,
		ComponentURL: p.ComponentURL,
		Props:        p.Props,
		Metadata:     p.Metadata,
	}
	if e.catalog != nil {
		payload, err = e.catalog.ResolveUpdate(payload)
		if err != nil {
			return publisher.Result{}, p.ComponentType, err
		}
	}

	meta := domain.CloneMap(payload.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	if _, ok := meta[domain.MetaOrigin]; !ok {
		meta[domain.MetaOrigin] = domain.OriginWorkflow
	}
	payload.Metadata = meta

	req := domain.PublishRequest{
		Component:         payload,
		ChatID:            pc.ChatID,
		ConversationID:    pc.ConversationID,
		UserID:            pc.UserID,
		ProviderID:        pc.ProviderID,
		WorkflowID:        ec.WorkflowID,
		WorkflowRunID:     ec.WorkflowRunID,
		NodeID:            ec.NodeID,
		TargetTriggerNode: pc.TargetTriggerNode,
	}
	res, err := e.pub.Publish(ctx, req)
	return res, p.ComponentType, err
}

// publishingContext prefers the execution context and falls back to params.
func publishingContext(ec ExecutionContext, params map[string]any) (*domain.PublishingContext, error) {
	if ec.Publishing.Complete() {
		return ec.Publishing, nil
	}
	raw, ok := params[PublishingContextParam]
	if !ok || raw == nil {
		return nil, domain.ErrMissingPublishingContext
	}
	var pc domain.PublishingContext
	if err := decode(raw, &pc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMissingPublishingContext, err)
	}
	if !pc.Complete() {
		return nil, domain.ErrMissingPublishingContext
	}
	return &pc, nil
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func (e *Executor) emit(ctx context.Context, ec ExecutionContext, typ string, err error) {
	if e.hooks.OnNodeExecute == nil {
		return
	}
	e.hooks.OnNodeExecute(ctx, &domain.NodeEvent{
		EventBase:     domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeExecute},
		NodeID:        ec.NodeID,
		ExecutionID:   ec.ExecutionID,
		ComponentType: typ,
		IsError:       err != nil,
	})
}

// IsFatal reports whether err must abort the workflow rather than be logged and skipped.
func IsFatal(err error) bool {
	return errors.Is(err, domain.ErrMissingPublishingContext) ||
		errors.Is(err, catalog.ErrInvalidProps) ||
		errors.Is(err, catalog.ErrUnknownComponent)
}
