package node_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/surface/internal/validator"
	"github.com/aretw0/surface/pkg/catalog"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/node"
	"github.com/aretw0/surface/pkg/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	reqs []domain.PublishRequest
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, req domain.PublishRequest) (publisher.Result, error) {
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return publisher.Result{}, p.err
	}
	return publisher.Result{Success: true, Channel: req.ConnectionKey()}, nil
}

func execCtx() node.ExecutionContext {
	return node.ExecutionContext{
		NodeID:        "n1",
		WorkflowID:    "wf",
		WorkflowRunID: "run-1",
		Publishing: &domain.PublishingContext{
			ChatID:            "c1",
			ConversationID:    "conv",
			UserID:            "u1",
			ProviderID:        "p1",
			TargetTriggerNode: "t1",
		},
	}
}

func TestExecute_Publishes(t *testing.T) {
	pub := &recordingPublisher{}
	exec := node.NewExecutor(pub, node.WithCatalog(catalog.New()))

	res, err := exec.Execute(context.Background(), execCtx(), map[string]any{
		"componentType": "text",
		"props":         map[string]any{"content": "Hello"},
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "u1/conv", res.Channel)

	require.Len(t, pub.reqs, 1)
	req := pub.reqs[0]
	assert.Equal(t, "text", req.Component.Type)
	assert.Equal(t, "builtin://text", req.Component.ComponentURL)
	assert.Equal(t, catalog.BuiltinVersion, req.Component.Version)
	assert.Equal(t, "Hello", req.Component.Props["content"])
	assert.Equal(t, domain.OriginWorkflow, req.Component.Metadata[domain.MetaOrigin])
	assert.Equal(t, domain.MountKey{ChatID: "c1", NodeID: "n1"}, req.MountKey())
	assert.Equal(t, "t1", req.TargetTriggerNode)
	assert.Equal(t, "wf", req.WorkflowID)
	assert.Equal(t, "run-1", req.WorkflowRunID)
}

func TestExecute_MissingPublishingContext(t *testing.T) {
	pub := &recordingPublisher{}
	exec := node.NewExecutor(pub)

	ec := execCtx()
	ec.Publishing = nil
	_, err := exec.Execute(context.Background(), ec, map[string]any{"componentType": "text"})

	assert.ErrorIs(t, err, domain.ErrMissingPublishingContext)
	assert.True(t, node.IsFatal(err))
	assert.Empty(t, pub.reqs, "nothing is published without a destination")

	ec.Publishing = &domain.PublishingContext{ChatID: "c1"}
	_, err = exec.Execute(context.Background(), ec, map[string]any{"componentType": "text"})
	assert.ErrorIs(t, err, domain.ErrMissingPublishingContext)
}

func TestExecute_PublishingContextFromParams(t *testing.T) {
	pub := &recordingPublisher{}
	exec := node.NewExecutor(pub)

	ec := execCtx()
	ec.Publishing = nil
	_, err := exec.Execute(context.Background(), ec, map[string]any{
		"componentType": "chart",
		"componentUrl":  "https://cdn/chart.js",
		node.PublishingContextParam: map[string]any{
			"chatId":         "c9",
			"conversationId": "conv",
			"userId":         "u1",
		},
	})

	require.NoError(t, err)
	require.Len(t, pub.reqs, 1)
	assert.Equal(t, "c9", pub.reqs[0].ChatID)
}

func TestExecute_InvalidParams(t *testing.T) {
	exec := node.NewExecutor(&recordingPublisher{})

	_, err := exec.Execute(context.Background(), execCtx(), map[string]any{"props": map[string]any{}})
	assert.ErrorIs(t, err, validator.ErrValidation)
	assert.False(t, node.IsFatal(err))
}

func TestExecute_CatalogErrors(t *testing.T) {
	exec := node.NewExecutor(&recordingPublisher{}, node.WithCatalog(catalog.New()))

	_, err := exec.Execute(context.Background(), execCtx(), map[string]any{"componentType": "chart"})
	assert.ErrorIs(t, err, catalog.ErrUnknownComponent)

	_, err = exec.Execute(context.Background(), execCtx(), map[string]any{
		"componentType": "list-picker",
		"props":         map[string]any{"elements": "not a list"},
	})
	assert.ErrorIs(t, err, catalog.ErrInvalidProps)
	assert.True(t, node.IsFatal(err))
}

func TestExecute_UpdateKeepsCallerProps(t *testing.T) {
	pub := &recordingPublisher{}
	exec := node.NewExecutor(pub, node.WithCatalog(catalog.New()))

	_, err := exec.Execute(context.Background(), execCtx(), map[string]any{
		"componentType": "list-picker",
		"props":         map[string]any{"title": "Updated"},
	})

	require.NoError(t, err)
	require.Len(t, pub.reqs, 1)
	assert.Equal(t, map[string]any{"title": "Updated"}, pub.reqs[0].Component.Props)
	assert.Equal(t, "builtin://list-picker", pub.reqs[0].Component.ComponentURL)
}

func TestExecute_Hooks(t *testing.T) {
	var events []*domain.NodeEvent
	pub := &recordingPublisher{err: errors.New("boom")}
	exec := node.NewExecutor(pub, node.WithHooks(domain.LifecycleHooks{
		OnNodeExecute: func(_ context.Context, e *domain.NodeEvent) { events = append(events, e) },
	}))

	_, err := exec.Execute(context.Background(), execCtx(), map[string]any{
		"componentType": "chart",
		"componentUrl":  "https://cdn/chart.js",
	})

	require.Error(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsError)
	assert.Equal(t, "n1", events[0].NodeID)
	assert.Equal(t, "chart", events[0].ComponentType)
	assert.NotEmpty(t, events[0].ExecutionID)
}
