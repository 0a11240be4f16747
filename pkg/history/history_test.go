package history_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newHistory() *history.History {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return history.New(
		history.WithIDGenerator(sequentialIDs()),
		history.WithClock(func() time.Time { return fixed }),
	)
}

func TestHistory_AddUserMessage(t *testing.T) {
	h := newHistory()

	msg := h.AddUserMessage("hello")

	assert.Equal(t, "hello", msg.Content)
	assert.NotEmpty(t, msg.ID)
	assert.NotEmpty(t, msg.ChatID, "a chat id is generated at send time")
	assert.NotEqual(t, msg.ID, msg.ChatID)

	entries := h.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryUser, entries[0].Kind)
	assert.Equal(t, msg, *entries[0].User)
}

func TestHistory_AddUserMessageWithChat(t *testing.T) {
	h := newHistory()

	msg := h.AddUserMessageWithChat("again", "c1")

	assert.Equal(t, "c1", msg.ChatID)
}

func TestHistory_AddResponseDefaults(t *testing.T) {
	h := newHistory()

	resp := h.AddResponse(domain.AssistantResponse{ChatID: "c1"})

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, domain.StreamingIdle, resp.StreamingState)
	assert.NotNil(t, resp.Components)
	assert.Empty(t, resp.Components)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Equal(t, "c1", resp.ChatID)
}

func TestHistory_UpdateResponse(t *testing.T) {
	h := newHistory()
	resp := h.AddResponse(domain.AssistantResponse{})

	streaming := domain.StreamingActive
	updated, ok := h.UpdateResponse(resp.ID, domain.ResponseUpdate{StreamingState: &streaming})
	require.True(t, ok)
	assert.Equal(t, domain.StreamingActive, updated.StreamingState)

	complete := domain.StreamingComplete
	updated, ok = h.UpdateResponse(resp.ID, domain.ResponseUpdate{StreamingState: &complete})
	require.True(t, ok)
	assert.Equal(t, domain.StreamingComplete, updated.StreamingState)
}

func TestHistory_UpdateResponseNeverMovesBackwards(t *testing.T) {
	h := newHistory()
	resp := h.AddResponse(domain.AssistantResponse{StreamingState: domain.StreamingComplete})

	idle := domain.StreamingIdle
	chat := "c9"
	updated, ok := h.UpdateResponse(resp.ID, domain.ResponseUpdate{StreamingState: &idle, ChatID: &chat})

	require.True(t, ok)
	assert.Equal(t, domain.StreamingComplete, updated.StreamingState)
	assert.Equal(t, "c9", updated.ChatID, "other fields still apply")
}

func TestHistory_UpdateResponseNotFound(t *testing.T) {
	h := newHistory()

	_, ok := h.UpdateResponse("missing", domain.ResponseUpdate{})

	assert.False(t, ok)
}

func TestHistory_AddComponentToResponse(t *testing.T) {
	h := newHistory()
	resp := h.AddResponse(domain.AssistantResponse{ChatID: "c1"})

	render := func(props map[string]any) (string, error) { return "x", nil }
	first, ok := h.AddComponentToResponse(resp.ID, domain.Component{ComponentType: "text", NodeID: "n1"}, render)
	require.True(t, ok)
	second, ok := h.AddComponentToResponse(resp.ID, domain.Component{ComponentType: "image", NodeID: "n2"}, nil)
	require.True(t, ok)

	require.Len(t, first.Components, 1)
	require.Len(t, second.Components, 2)
	assert.Equal(t, "text", second.Components[0].ComponentType, "arrival order is preserved")
	assert.Equal(t, "image", second.Components[1].ComponentType)
	assert.True(t, second.Components[0].Bound())
	assert.False(t, second.Components[1].Bound())
	assert.Equal(t, "c1", second.Components[1].ChatID, "components inherit the turn chat id")
	assert.NotEqual(t, second.Components[0].ID, second.Components[1].ID)
}

func TestHistory_AddComponentToMissingResponse(t *testing.T) {
	h := newHistory()

	_, ok := h.AddComponentToResponse("missing", domain.Component{ComponentType: "text"}, nil)

	assert.False(t, ok)
}

func TestHistory_OverlappingTurns(t *testing.T) {
	h := newHistory()
	a := h.AddResponse(domain.AssistantResponse{ChatID: "c1"})
	b := h.AddResponse(domain.AssistantResponse{ChatID: "c2"})

	streaming := domain.StreamingActive
	complete := domain.StreamingComplete
	h.UpdateResponse(a.ID, domain.ResponseUpdate{StreamingState: &streaming})
	h.UpdateResponse(b.ID, domain.ResponseUpdate{StreamingState: &complete})

	responses := h.GetResponses()
	require.Len(t, responses, 2)
	assert.Equal(t, domain.StreamingActive, responses[0].StreamingState)
	assert.Equal(t, domain.StreamingComplete, responses[1].StreamingState)
}

func TestHistory_ReturnedValuesAreCopies(t *testing.T) {
	h := newHistory()
	resp := h.AddResponse(domain.AssistantResponse{ChatID: "c1"})
	got, _ := h.AddComponentToResponse(resp.ID, domain.Component{NodeID: "n1", Props: map[string]any{"content": "a"}}, nil)

	got.Components[0].Props["content"] = "mutated"

	c, ok := h.FindByMountKey(domain.MountKey{ChatID: "c1", NodeID: "n1"})
	require.True(t, ok)
	assert.Equal(t, "a", c.Props["content"])
}

func TestHistory_ReplaceComponentProps(t *testing.T) {
	h := newHistory()
	resp := h.AddResponse(domain.AssistantResponse{ChatID: "c1"})
	h.AddComponentToResponse(resp.ID, domain.Component{NodeID: "n1", Props: map[string]any{"content": "a", "title": "t"}}, nil)

	c, ok := h.ReplaceComponentProps(domain.MountKey{ChatID: "c1", NodeID: "n1"}, map[string]any{"content": "b"})

	require.True(t, ok)
	assert.Equal(t, map[string]any{"content": "b"}, c.Props, "props are replaced whole")

	_, ok = h.ReplaceComponentProps(domain.MountKey{ChatID: "c1", NodeID: "nope"}, nil)
	assert.False(t, ok)
}

func TestHistory_ResponseByChatID(t *testing.T) {
	h := newHistory()
	h.AddResponse(domain.AssistantResponse{ChatID: "c1"})
	latest := h.AddResponse(domain.AssistantResponse{ChatID: "c1"})

	got, ok := h.ResponseByChatID("c1")

	require.True(t, ok)
	assert.Equal(t, latest.ID, got.ID)
}

func TestHistory_RestoreSkipsMalformedEntries(t *testing.T) {
	h := newHistory()

	h.Restore([]domain.Entry{
		domain.UserEntry(domain.UserMessage{ID: "u1", Content: "hi"}),
		{Kind: domain.EntryAssistant},
		{Kind: "bogus"},
		domain.AssistantEntry(domain.AssistantResponse{ID: "r1", StreamingState: domain.StreamingComplete}),
	})

	assert.Equal(t, 2, h.Len())
	_, ok := h.GetResponse("r1")
	assert.True(t, ok)
}

func TestRenderable_SkipsCompleteEmptyTurns(t *testing.T) {
	responses := []domain.AssistantResponse{
		{ID: "empty-complete", StreamingState: domain.StreamingComplete},
		{ID: "empty-streaming", StreamingState: domain.StreamingActive},
		{ID: "full", StreamingState: domain.StreamingComplete, Components: []domain.Component{{ID: "x"}}},
	}

	got := history.Renderable(responses)

	require.Len(t, got, 2)
	assert.Equal(t, "empty-streaming", got[0].ID)
	assert.Equal(t, "full", got[1].ID)
}
