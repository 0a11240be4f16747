package livechat_test

import (
	"testing"
	"time"

	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/livechat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPickerContent = `{"templateType":"ListPicker","data":{"content":{"title":"Pick one","elements":[{"title":"A"},{"title":"B"}]}}}`

func agentMessage(content string) livechat.Message {
	return livechat.Message{
		ID:              "msg-1",
		Type:            livechat.TypeMessage,
		ContentType:     livechat.ContentTypeInteractive,
		Content:         content,
		ParticipantRole: livechat.RoleAgent,
		DisplayName:     "Grace",
		AbsoluteTime:    "2026-03-01T10:00:00.000Z",
	}
}

func TestNormalize_ListPicker(t *testing.T) {
	n := livechat.NewNormalizer(livechat.WithSystem("connect"))

	resp := n.Normalize(agentMessage(listPickerContent))

	assert.Equal(t, domain.StreamingComplete, resp.StreamingState)
	require.Len(t, resp.Components, 2)

	text := resp.Components[0]
	assert.Equal(t, livechat.ComponentText, text.ComponentType)
	assert.Equal(t, "Pick one", text.Props["content"], "the title is shown, not the raw payload")

	picker := resp.Components[1]
	assert.Equal(t, livechat.ComponentListPicker, picker.ComponentType)
	elements, ok := picker.Props["elements"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, elements, 2)
	assert.Equal(t, "A", elements[0]["title"])
	assert.Equal(t, "B", elements[1]["title"])

	for _, c := range resp.Components {
		assert.Equal(t, domain.OriginExternal, c.Metadata[domain.MetaOrigin])
		assert.Equal(t, "connect", c.Metadata[domain.MetaSource])
		assert.Equal(t, "Grace", c.Metadata[domain.MetaAgentName])
		assert.Equal(t, livechat.ContentTypeInteractive, c.Metadata[domain.MetaContentType])
		assert.Equal(t, "msg-1", c.ChatID)
	}
	assert.NotEqual(t, resp.Components[0].MountKey(), resp.Components[1].MountKey())
}

func TestNormalize_TimePicker(t *testing.T) {
	n := livechat.NewNormalizer()
	content := `{"templateType":"TimePicker","data":{"content":{"title":"When?","subtitle":"Choose a slot","timeZoneOffset":-480,` +
		`"location":{"title":"HQ","latitude":47.6,"longitude":-122.3},` +
		`"timeslots":[{"date":"2026-03-02T09:00+00:00","duration":60},{"date":"2026-03-02T10:00+00:00","duration":30}]}}}`

	resp := n.Normalize(agentMessage(content))

	require.Len(t, resp.Components, 2)
	assert.Equal(t, "When?", resp.Components[0].Props["content"])
	assert.Equal(t, "Choose a slot", resp.Components[0].Props["subtitle"])

	picker := resp.Components[1]
	assert.Equal(t, livechat.ComponentTimePicker, picker.ComponentType)
	slots := picker.Props["timeslots"].([]map[string]any)
	require.Len(t, slots, 2)
	assert.Equal(t, 60, slots[0]["duration"])
	assert.Equal(t, -480, picker.Props["timeZoneOffset"])
	assert.Equal(t, "HQ", picker.Props["location"].(map[string]any)["title"])
}

func TestNormalize_FallsBackToPlainText(t *testing.T) {
	n := livechat.NewNormalizer()

	tests := []struct {
		name    string
		content string
	}{
		{"plain text", "Hello, how can I help?"},
		{"malformed json", `{"templateType":"ListPicker","data":`},
		{"unknown template", `{"templateType":"Carousel","data":{"content":{"title":"x"}}}`},
		{"json array", `[1,2,3]`},
		{"missing content block", `{"templateType":"ListPicker"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := n.Normalize(agentMessage(tt.content))

			require.Len(t, resp.Components, 1)
			assert.Equal(t, livechat.ComponentText, resp.Components[0].ComponentType)
			assert.Equal(t, tt.content, resp.Components[0].Props["content"])
			assert.Equal(t, domain.StreamingComplete, resp.StreamingState)
		})
	}
}

func TestNormalize_Timestamp(t *testing.T) {
	fallback := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	n := livechat.NewNormalizer(livechat.WithClock(func() time.Time { return fallback }))

	resp := n.Normalize(agentMessage("hi"))
	assert.Equal(t, 2026, resp.Timestamp.Year())

	msg := agentMessage("hi")
	msg.AbsoluteTime = "yesterday"
	resp = n.Normalize(msg)
	assert.Equal(t, fallback, resp.Timestamp)
}

func TestIsForeignOriginAndAgentName(t *testing.T) {
	n := livechat.NewNormalizer()
	foreign := n.Normalize(agentMessage("hi"))

	assert.True(t, livechat.IsForeignOrigin(foreign))
	assert.Equal(t, "Grace", livechat.AgentNameOf(foreign))
	assert.Equal(t, livechat.DefaultSystem, livechat.SourceOf(foreign))

	native := domain.AssistantResponse{Components: []domain.Component{
		{ComponentType: "text", Metadata: map[string]any{domain.MetaOrigin: domain.OriginWorkflow}},
	}}
	assert.False(t, livechat.IsForeignOrigin(native))
	assert.Empty(t, livechat.AgentNameOf(native))
}

func TestToUserMessage(t *testing.T) {
	n := livechat.NewNormalizer()
	msg := agentMessage("I need help")
	msg.ParticipantRole = livechat.RoleCustomer

	require.True(t, livechat.IsCustomer(msg))
	um := n.ToUserMessage(msg)

	assert.Equal(t, "I need help", um.Content)
	assert.Equal(t, "msg-1", um.ChatID)
}
