package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/surface/pkg/catalog"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/node"
	"github.com/aretw0/surface/pkg/publisher"
	"github.com/aretw0/surface/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTransport struct {
	mu   sync.Mutex
	sent []string
}

func (t *memTransport) Send(ctx context.Context, msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, msg)
	return nil
}

func (t *memTransport) frames() []domain.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Envelope, 0, len(t.sent))
	for _, raw := range t.sent {
		var env domain.Envelope
		_ = json.Unmarshal([]byte(raw), &env)
		out = append(out, env)
	}
	return out
}

type fixture struct {
	mgr     *session.Manager
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mgr := session.NewManager()
	cat := catalog.New()
	pub := publisher.New(mgr, publisher.WithSerializer(mgr), publisher.WithResolver(cat))
	srv := &Server{
		Publisher:     pub,
		Executor:      node.NewExecutor(pub, node.WithCatalog(cat)),
		Ingestor:      session.NewIngestor(mgr, pub),
		Conversations: mgr,
		Catalog:       cat,
	}
	return &fixture{mgr: mgr, handler: NewHandler(srv)}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func publishBody(nodeID, content string) domain.PublishRequest {
	return domain.PublishRequest{
		Component:      domain.ComponentPayload{Type: "text", Props: map[string]any{"content": content}},
		ChatID:         "c1",
		ConversationID: "conv1",
		UserID:         "u1",
		NodeID:         nodeID,
	}
}

func TestHealthAndInfo(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"app":"surface-http"`)
}

func TestPublish_MountsThenUpdates(t *testing.T) {
	f := newFixture(t)
	tr := &memTransport{}
	_, err := f.mgr.Attach(context.Background(), "u1", "conv1", tr)
	require.NoError(t, err)

	// 1. First publish initializes the slot
	w := f.do(t, http.MethodPost, "/v1/publish", publishBody("n1", "Hel"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res publisher.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "u1/conv1", res.Channel)

	// 2. Second publish updates it
	w = f.do(t, http.MethodPost, "/v1/publish", publishBody("n1", "Hello"))
	require.Equal(t, http.StatusOK, w.Code)

	frames := tr.frames()
	require.Len(t, frames, 2)
	assert.Equal(t, domain.MessageComponentInit, frames[0].Type)
	assert.Equal(t, "builtin://text", frames[0].Component.ComponentURL)
	assert.Equal(t, domain.MessageComponentData, frames[1].Type)
}

func TestPublish_PartialUpdate(t *testing.T) {
	f := newFixture(t)
	tr := &memTransport{}
	_, err := f.mgr.Attach(context.Background(), "u1", "conv1", tr)
	require.NoError(t, err)

	body := publishBody("n1", "")
	body.Component = domain.ComponentPayload{
		Type:  "list-picker",
		Props: map[string]any{"title": "Pick one", "elements": []map[string]any{{"title": "A"}}},
	}

	// 1. The INIT carries the whole definition plus defaults
	w := f.do(t, http.MethodPost, "/v1/publish", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 2. A title-only update is accepted and sent as-is
	body.Component.Props = map[string]any{"title": "Updated"}
	w = f.do(t, http.MethodPost, "/v1/publish", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	frames := tr.frames()
	require.Len(t, frames, 2)
	assert.Equal(t, true, frames[0].Component.Props["focusable"])
	assert.Equal(t, domain.MessageComponentData, frames[1].Type)
	assert.Equal(t, map[string]any{"title": "Updated"}, frames[1].Data)
}

func TestPublish_NoConnectionIsNotAnError(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/publish", publishBody("n1", "hi"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false}`, w.Body.String())
}

func TestPublish_Errors(t *testing.T) {
	f := newFixture(t)

	t.Run("Missing node id", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/publish", publishBody("", "hi"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "NodeID")
	})

	t.Run("Unknown component", func(t *testing.T) {
		body := publishBody("n1", "hi")
		body.Component.Type = "mystery"
		w := f.do(t, http.MethodPost, "/v1/publish", body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/publish", strings.NewReader("{"))
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExecuteNode(t *testing.T) {
	f := newFixture(t)
	tr := &memTransport{}
	_, err := f.mgr.Attach(context.Background(), "u1", "conv1", tr)
	require.NoError(t, err)

	t.Run("Missing publishing context", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/nodes/n1/execute", ExecuteRequest{
			Params: map[string]any{"componentType": "text", "props": map[string]any{"content": "x"}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "missing publishing context")
	})

	t.Run("Invalid props", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/nodes/n2/execute", ExecuteRequest{
			PublishingContext: &domain.PublishingContext{ChatID: "c1", ConversationID: "conv1", UserID: "u1"},
			Params:            map[string]any{"componentType": "list-picker", "props": map[string]any{"title": "no elements"}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Publishes", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/nodes/n3/execute", ExecuteRequest{
			WorkflowID:        "wf",
			PublishingContext: &domain.PublishingContext{ChatID: "c1", ConversationID: "conv1", UserID: "u1"},
			Params:            map[string]any{"componentType": "text", "props": map[string]any{"content": "from node"}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		frames := tr.frames()
		require.NotEmpty(t, frames)
		last := frames[len(frames)-1]
		assert.Equal(t, "n3", last.NodeID)
		assert.Equal(t, "wf", last.Metadata[domain.MetaWorkflowID])
		assert.Equal(t, domain.OriginWorkflow, last.Metadata[domain.MetaOrigin])
	})
}

func TestIngestLiveChat(t *testing.T) {
	f := newFixture(t)
	tr := &memTransport{}
	_, err := f.mgr.Attach(context.Background(), "u1", "conv1", tr)
	require.NoError(t, err)

	msg := map[string]any{
		"Id":              "m1",
		"Type":            "MESSAGE",
		"ContentType":     "application/vnd.amazonaws.connect.message.interactive",
		"Content":         `{"templateType":"ListPicker","data":{"content":{"title":"Pick one","elements":[{"title":"A"},{"title":"B"}]}}}`,
		"ParticipantRole": "AGENT",
		"DisplayName":     "Ana",
	}
	w := f.do(t, http.MethodPost, "/v1/livechat/u1/conv1", msg)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Published)
	assert.NotEmpty(t, out.ResponseID)

	event := map[string]any{"Id": "e1", "Type": "EVENT", "ParticipantRole": "SYSTEM"}
	w = f.do(t, http.MethodPost, "/v1/livechat/u1/conv1", event)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ignored":true`)
}

func TestGetConversation_Filters(t *testing.T) {
	f := newFixture(t)
	tr := &memTransport{}
	_, err := f.mgr.Attach(context.Background(), "u1", "conv1", tr)
	require.NoError(t, err)

	// 1. Three components on one turn: A (text), B (list-picker), C (time-picker)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/publish", publishBody("a", "A")).Code)
	for _, c := range []domain.PublishRequest{
		{Component: domain.ComponentPayload{Type: "list-picker", Props: map[string]any{"elements": []any{map[string]any{"title": "x"}}}}, NodeID: "b"},
		{Component: domain.ComponentPayload{Type: "time-picker", Props: map[string]any{"timeslots": []any{map[string]any{"date": "2026-01-01T10:00:00Z"}}}}, NodeID: "c"},
	} {
		c.ChatID, c.ConversationID, c.UserID = "c1", "conv1", "u1"
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/publish", c).Code)
	}

	// 2. Include list-picker and time-picker in that order, excluding nothing
	w := f.do(t, http.MethodGet, "/v1/conversations/u1/conv1?include=time,list&order=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Responses, 1)
	comps := out.Responses[0].Components
	require.Len(t, comps, 2)
	assert.Equal(t, "time-picker", comps[0].ComponentType)
	assert.Equal(t, "list-picker", comps[1].ComponentType)

	// 3. Unknown conversation
	w = f.do(t, http.MethodGet, "/v1/conversations/u9/none", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/publish", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
