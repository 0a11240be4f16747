package history_test

import (
	"testing"

	"github.com/aretw0/surface/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initFrame(id, chatID, nodeID string, props map[string]any) domain.Envelope {
	return domain.Envelope{
		Header:    domain.Header{ID: id, Type: domain.MessageComponentInit, ChatID: chatID, NodeID: nodeID},
		Component: &domain.ComponentDefinition{Type: "text", ComponentURL: "builtin://text", Props: props},
		Metadata:  map[string]any{domain.MetaComponentKey: chatID + ":" + nodeID},
	}
}

func dataFrame(chatID, nodeID string, data map[string]any) domain.Envelope {
	return domain.Envelope{
		Header: domain.Header{ID: "d", Type: domain.MessageComponentData, ChatID: chatID, NodeID: nodeID},
		Data:   data,
	}
}

func TestApply_InitOpensStreamingTurn(t *testing.T) {
	h := newHistory()

	c, ok := h.Apply(initFrame("m1", "c1", "n1", map[string]any{"content": "He"}))
	require.True(t, ok)
	assert.Equal(t, "m1", c.ID)
	assert.Equal(t, "He", c.Props["content"])

	resp, ok := h.ResponseByChatID("c1")
	require.True(t, ok)
	assert.Equal(t, domain.StreamingActive, resp.StreamingState)
	require.Len(t, resp.Components, 1)
}

func TestApply_InitAttachesToExistingTurn(t *testing.T) {
	h := newHistory()
	h.AddResponse(domain.AssistantResponse{ChatID: "c1"})

	_, ok := h.Apply(initFrame("m1", "c1", "n1", nil))
	require.True(t, ok)
	_, ok = h.Apply(initFrame("m2", "c1", "n2", nil))
	require.True(t, ok)

	responses := h.GetResponses()
	require.Len(t, responses, 1)
	assert.Len(t, responses[0].Components, 2)
}

func TestApply_DataMergesIntoNewMap(t *testing.T) {
	h := newHistory()
	_, _ = h.Apply(initFrame("m1", "c1", "n1", map[string]any{"content": "He", "title": "T"}))
	before, _ := h.FindByMountKey(domain.MountKey{ChatID: "c1", NodeID: "n1"})

	c, ok := h.Apply(dataFrame("c1", "n1", map[string]any{"content": "Hello"}))
	require.True(t, ok)
	assert.Equal(t, "Hello", c.Props["content"])
	assert.Equal(t, "T", c.Props["title"], "absent keys keep their value")
	assert.Equal(t, "He", before.Props["content"], "earlier reads are not mutated")
}

func TestApply_DataWithoutMountIsSoftNoop(t *testing.T) {
	h := newHistory()

	_, ok := h.Apply(dataFrame("c1", "n1", map[string]any{"content": "x"}))
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())
}

func TestApply_ReinitReplacesProps(t *testing.T) {
	h := newHistory()
	_, _ = h.Apply(initFrame("m1", "c1", "n1", map[string]any{"content": "old"}))

	c, ok := h.Apply(initFrame("m9", "c1", "n1", map[string]any{"content": "new"}))
	require.True(t, ok)
	assert.Equal(t, "m9", c.ID, "the id follows the latest INIT so both ends agree")
	assert.Equal(t, "new", c.Props["content"])

	_, ok = h.FindComponent("m1")
	assert.False(t, ok)
	resp, _ := h.ResponseByChatID("c1")
	assert.Len(t, resp.Components, 1)
}

func TestApply_ReinitRedefinesComponent(t *testing.T) {
	h := newHistory()
	_, _ = h.Apply(initFrame("m1", "c1", "n1", map[string]any{"content": "Pick below"}))
	_, _ = h.Apply(initFrame("m2", "c1", "n2", nil))
	require.True(t, h.BindRenderer("m1", func(map[string]any) (string, error) { return "text", nil }))

	// 1. The same slot comes back as a list picker
	frame := initFrame("m3", "c1", "n1", map[string]any{"title": "Pick one", "elements": []any{}})
	frame.Component.Type = "list-picker"
	frame.Metadata = map[string]any{
		domain.MetaComponentKey:      "c1:n1",
		domain.MetaTargetTriggerNode: "n1",
	}
	c, ok := h.Apply(frame)
	require.True(t, ok)

	// 2. Type, metadata and props are replaced; the position is kept
	assert.Equal(t, "list-picker", c.ComponentType)
	assert.Equal(t, "n1", c.MetaString(domain.MetaTargetTriggerNode))
	assert.NotContains(t, c.Props, "content")
	assert.False(t, c.Bound(), "a new type needs a new renderer")

	resp, _ := h.ResponseByChatID("c1")
	require.Len(t, resp.Components, 2)
	assert.Equal(t, "m3", resp.Components[0].ID)
	assert.Equal(t, "m2", resp.Components[1].ID)
}

func TestApply_StreamingStateMetadata(t *testing.T) {
	h := newHistory()
	_, _ = h.Apply(initFrame("m1", "c1", "n1", nil))

	done := dataFrame("c1", "n1", map[string]any{"content": "done"})
	done.Metadata = map[string]any{domain.MetaStreamingState: string(domain.StreamingComplete)}
	_, ok := h.Apply(done)
	require.True(t, ok)

	resp, _ := h.ResponseByChatID("c1")
	assert.Equal(t, domain.StreamingComplete, resp.StreamingState)

	// A later frame cannot move it back
	back := dataFrame("c1", "n1", map[string]any{"content": "again"})
	back.Metadata = map[string]any{domain.MetaStreamingState: string(domain.StreamingIdle)}
	_, _ = h.Apply(back)

	resp, _ = h.ResponseByChatID("c1")
	assert.Equal(t, domain.StreamingComplete, resp.StreamingState)
}

func TestApply_IgnoresClientFrames(t *testing.T) {
	h := newHistory()

	_, ok := h.Apply(domain.Envelope{Header: domain.Header{Type: domain.MessageUserMessage}})
	assert.False(t, ok)
}
