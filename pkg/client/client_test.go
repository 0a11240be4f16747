package client_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/surface/pkg/animator"
	"github.com/aretw0/surface/pkg/client"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initFrame(chatID, nodeID, typ string, props map[string]any, meta map[string]any) domain.Envelope {
	return domain.Envelope{
		Header: domain.Header{
			ID:     "id-" + nodeID,
			Type:   domain.MessageComponentInit,
			ChatID: chatID,
			NodeID: nodeID,
		},
		Component: &domain.ComponentDefinition{Type: typ, ComponentURL: "builtin://" + typ, Props: props},
		Metadata:  meta,
	}
}

func dataFrame(chatID, nodeID string, data map[string]any) domain.Envelope {
	return domain.Envelope{
		Header: domain.Header{Type: domain.MessageComponentData, ChatID: chatID, NodeID: nodeID},
		Data:   data,
	}
}

type updates struct {
	mu  sync.Mutex
	all []client.Update
}

func (u *updates) add(up client.Update) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.all = append(u.all, up)
}

func (u *updates) kinds() []client.UpdateKind {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]client.UpdateKind, 0, len(u.all))
	for _, up := range u.all {
		out = append(out, up.Kind)
	}
	return out
}

func newClient(t *testing.T, opts ...client.Option) (*client.Client, *animator.ManualScheduler, *updates) {
	t.Helper()
	sched := animator.NewManualScheduler(time.Unix(0, 0), 10*time.Millisecond)
	rec := &updates{}
	opts = append([]client.Option{
		client.WithAnimatorOptions(animator.WithRate(100), animator.WithScheduler(sched)),
		client.WithUpdateHandler(rec.add),
	}, opts...)
	c := client.New(opts...)
	t.Cleanup(c.Close)
	return c, sched, rec
}

func TestClient_TextIsRevealedProgressively(t *testing.T) {
	c, sched, rec := newClient(t)

	// 1. INIT mounts and starts revealing
	comp, ok := c.Apply(initFrame("c1", "n1", "text", map[string]any{"content": "Hel"}, nil))
	require.True(t, ok)
	shown, ok := c.Displayed(comp.ID)
	require.True(t, ok)
	assert.Equal(t, "H", shown)

	// 2. DATA extends the target
	_, ok = c.Apply(dataFrame("c1", "n1", map[string]any{"content": "Hello"}))
	require.True(t, ok)
	sched.Advance(time.Second)

	shown, _ = c.Displayed(comp.ID)
	assert.Equal(t, "Hello", shown)
	assert.False(t, c.Animating())

	kinds := rec.kinds()
	assert.Equal(t, client.UpdateMounted, kinds[0])
	assert.Contains(t, kinds, client.UpdateChanged)
	assert.Contains(t, kinds, client.UpdateRevealed)

	// 3. History holds one component with the latest props
	turns := c.History().GetResponses()
	require.Len(t, turns, 1)
	require.Len(t, turns[0].Components, 1)
	assert.Equal(t, "Hello", turns[0].Components[0].Props["content"])
}

func TestClient_DataWithoutInitIsDropped(t *testing.T) {
	c, _, _ := newClient(t)

	_, ok := c.Apply(dataFrame("c1", "ghost", map[string]any{"content": "x"}))
	assert.False(t, ok)
	assert.Zero(t, c.History().Len())
}

func TestClient_BindsRendererLazily(t *testing.T) {
	reg := registry.NewRegistry()
	var urls []string
	reg.SetLoader(func(componentType, componentURL string) (domain.RenderFunc, error) {
		urls = append(urls, componentURL)
		if componentType != "chart" {
			return nil, errors.New("no bundle")
		}
		return func(props map[string]any) (string, error) {
			return fmt.Sprintf("chart(%v)", props["series"]), nil
		}, nil
	})
	c, _, _ := newClient(t, client.WithRegistry(reg))

	// 1. First chart loads the renderer from its componentUrl
	comp, ok := c.Apply(initFrame("c1", "n1", "chart", map[string]any{"series": 3}, nil))
	require.True(t, ok)
	require.True(t, comp.Bound())
	out, err := comp.Renderer(comp.Props)
	require.NoError(t, err)
	assert.Equal(t, "chart(3)", out)

	// 2. Second chart reuses the cached renderer
	comp2, ok := c.Apply(initFrame("c1", "n2", "chart", map[string]any{"series": 4}, nil))
	require.True(t, ok)
	assert.True(t, comp2.Bound())
	assert.Equal(t, []string{"builtin://chart"}, urls)

	// 3. Unknown types stay unbound
	comp3, ok := c.Apply(initFrame("c1", "n3", "mystery", map[string]any{}, nil))
	require.True(t, ok)
	assert.False(t, comp3.Bound())
}

func TestClient_FocusRedirectsUserMessage(t *testing.T) {
	c, _, _ := newClient(t, client.WithDefaultTrigger("chat"))

	picker, ok := c.Apply(initFrame("c1", "n1", "list-picker",
		map[string]any{"focusable": true, "elements": []any{}},
		map[string]any{domain.MetaTargetTriggerNode: "n1", domain.MetaAgentName: "Ana"},
	))
	require.True(t, ok)
	plain, ok := c.Apply(initFrame("c1", "n2", "text", map[string]any{"content": "x"}, nil))
	require.True(t, ok)

	// 1. Non-focusable component is refused
	_, ok = c.OpenFocus(plain.ID)
	assert.False(t, ok)

	// 2. Focusable component opens focus
	frame, ok := c.OpenFocus(picker.ID)
	require.True(t, ok)
	assert.Equal(t, domain.MessageFocusOpen, frame.Type)
	assert.Equal(t, "n1", frame.TargetTriggerNode)
	assert.Equal(t, "Ana", frame.AgentName)
	assert.True(t, c.View().HistoryHidden)

	// 3. Next message goes to the focused slot
	msg := c.UserMessage("option A")
	assert.Equal(t, "c1", msg.ChatID)

	// 4. After close a fresh chat id is used
	assert.Equal(t, domain.MessageFocusClose, c.CloseFocus().Type)
	msg = c.UserMessage("hello")
	assert.NotEmpty(t, msg.ChatID)
	assert.NotEqual(t, "c1", msg.ChatID)
}

type sliceSource struct {
	frames []domain.Envelope
}

func (s *sliceSource) Next(ctx context.Context) (domain.Envelope, error) {
	if len(s.frames) == 0 {
		return domain.Envelope{}, io.EOF
	}
	env := s.frames[0]
	s.frames = s.frames[1:]
	return env, nil
}

func TestClient_Run(t *testing.T) {
	c, _, _ := newClient(t)
	src := &sliceSource{frames: []domain.Envelope{
		initFrame("c1", "n1", "text", map[string]any{"content": "a"}, nil),
		initFrame("c2", "n1", "text", map[string]any{"content": "b"}, nil),
	}}

	err := c.Run(context.Background(), src)
	assert.ErrorIs(t, err, io.EOF)
	assert.Len(t, c.History().GetResponses(), 2)
}
