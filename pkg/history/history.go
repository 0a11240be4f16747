package history

import (
	"sync"
	"time"

	"github.com/aretw0/surface/pkg/domain"
	"github.com/google/uuid"
)

// History is the per-conversation log. Safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	entries []domain.Entry
	now     func() time.Time
	newID   func() string
}

// Option configures a History.
type Option func(*History)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *History) {
		h.now = now
	}
}

// WithIDGenerator overrides id generation (turns, messages, chat ids, components).
func WithIDGenerator(fn func() string) Option {
	return func(h *History) {
		h.newID = fn
	}
}

// New creates an empty history.
func New(opts ...Option) *History {
	h := &History{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewChatID generates a chat id for a request/response pair.
func (h *History) NewChatID() string {
	return h.newID()
}

// AddUserMessage appends a user message with a freshly generated chat id.
func (h *History) AddUserMessage(content string) domain.UserMessage {
	return h.AddUserMessageWithChat(content, "")
}

// AddUserMessageWithChat appends a user message bound to chatID.
// An empty chatID generates one; focus routing passes the focused slot's chat id.
func (h *History) AddUserMessageWithChat(content, chatID string) domain.UserMessage {
	if chatID == "" {
		chatID = h.newID()
	}
	msg := domain.UserMessage{
		ID:        h.newID(),
		Content:   content,
		Timestamp: h.now(),
		ChatID:    chatID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, domain.UserEntry(msg))
	return msg
}

// AddResponse appends a new turn. Missing fields default to a generated id,
// the current time, the idle state and an empty component list.
func (h *History) AddResponse(partial domain.AssistantResponse) domain.AssistantResponse {
	resp := partial.Clone()
	if resp.ID == "" {
		resp.ID = h.newID()
	}
	if resp.Timestamp.IsZero() {
		resp.Timestamp = h.now()
	}
	if resp.StreamingState == "" {
		resp.StreamingState = domain.StreamingIdle
	}
	if resp.Components == nil {
		resp.Components = []domain.Component{}
	}
	for i := range resp.Components {
		if resp.Components[i].ID == "" {
			resp.Components[i].ID = h.newID()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, domain.AssistantEntry(resp))
	return resp.Clone()
}

// UpdateResponse applies shallow field updates to a turn.
// It returns false when the turn does not exist. A streaming state that would
// move the turn backwards is dropped; the other fields still apply.
func (h *History) UpdateResponse(id string, upd domain.ResponseUpdate) (domain.AssistantResponse, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	resp := h.responseLocked(id)
	if resp == nil {
		return domain.AssistantResponse{}, false
	}
	if upd.StreamingState != nil && resp.StreamingState.CanAdvanceTo(*upd.StreamingState) {
		resp.StreamingState = *upd.StreamingState
	}
	if upd.ChatID != nil {
		resp.ChatID = *upd.ChatID
	}
	if upd.Timestamp != nil {
		resp.Timestamp = *upd.Timestamp
	}
	return resp.Clone(), true
}

// AddComponentToResponse appends a component to a turn, binding renderer if given.
// It returns false when the turn does not exist.
func (h *History) AddComponentToResponse(responseID string, component domain.Component, renderer domain.RenderFunc) (domain.AssistantResponse, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	resp := h.responseLocked(responseID)
	if resp == nil {
		return domain.AssistantResponse{}, false
	}
	c := component.Clone()
	if c.ID == "" {
		c.ID = h.newID()
	}
	if c.ChatID == "" {
		c.ChatID = resp.ChatID
	}
	if renderer != nil {
		c.Renderer = renderer
	}
	resp.Components = append(resp.Components, c)
	return resp.Clone(), true
}

// ReplaceComponentProps swaps the props of the component mounted at key.
// Props are replaced as a whole. It returns false when no component holds key.
func (h *History) ReplaceComponentProps(key domain.MountKey, props map[string]any) (domain.Component, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.entries {
		resp := h.entries[i].Response
		if resp == nil {
			continue
		}
		for j := range resp.Components {
			if resp.Components[j].MountKey() == key {
				resp.Components[j] = resp.Components[j].WithProps(props)
				return resp.Components[j].Clone(), true
			}
		}
	}
	return domain.Component{}, false
}

// BindRenderer attaches renderer to the component with the given id.
func (h *History) BindRenderer(componentID string, renderer domain.RenderFunc) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.entries {
		resp := h.entries[i].Response
		if resp == nil {
			continue
		}
		for j := range resp.Components {
			if resp.Components[j].ID == componentID {
				resp.Components[j].Renderer = renderer
				return true
			}
		}
	}
	return false
}

// GetResponses returns every turn in temporal order.
func (h *History) GetResponses() []domain.AssistantResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.AssistantResponse, 0, len(h.entries))
	for _, e := range h.entries {
		if e.Kind == domain.EntryAssistant && e.Response != nil {
			out = append(out, e.Response.Clone())
		}
	}
	return out
}

// GetResponse returns the turn with the given id.
func (h *History) GetResponse(id string) (domain.AssistantResponse, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if resp := h.responseLocked(id); resp != nil {
		return resp.Clone(), true
	}
	return domain.AssistantResponse{}, false
}

// ResponseByChatID returns the most recent turn answering chatID.
func (h *History) ResponseByChatID(chatID string) (domain.AssistantResponse, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if resp := h.responseByChatLocked(chatID); resp != nil {
		return resp.Clone(), true
	}
	return domain.AssistantResponse{}, false
}

// FindComponent looks a component up by id across all turns.
func (h *History) FindComponent(id string) (domain.Component, bool) {
	return h.findComponent(func(c domain.Component) bool { return c.ID == id })
}

// FindByMountKey looks a component up by its (chatId, nodeId) slot.
func (h *History) FindByMountKey(key domain.MountKey) (domain.Component, bool) {
	return h.findComponent(func(c domain.Component) bool { return c.MountKey() == key })
}

func (h *History) findComponent(match func(domain.Component) bool) (domain.Component, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, e := range h.entries {
		if e.Response == nil {
			continue
		}
		for _, c := range e.Response.Components {
			if match(c) {
				return c.Clone(), true
			}
		}
	}
	return domain.Component{}, false
}

// Entries returns the full log, user messages and turns interleaved.
func (h *History) Entries() []domain.Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.Entry, len(h.entries))
	for i, e := range h.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Restore replaces the log with entries, typically from a snapshot. Renderers are not restored.
func (h *History) Restore(entries []domain.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		switch e.Kind {
		case domain.EntryUser:
			if e.User != nil {
				h.entries = append(h.entries, cloneEntry(e))
			}
		case domain.EntryAssistant:
			if e.Response != nil {
				h.entries = append(h.entries, cloneEntry(e))
			}
		}
	}
}

func (h *History) responseLocked(id string) *domain.AssistantResponse {
	for i := range h.entries {
		if resp := h.entries[i].Response; resp != nil && resp.ID == id {
			return resp
		}
	}
	return nil
}

func cloneEntry(e domain.Entry) domain.Entry {
	switch e.Kind {
	case domain.EntryUser:
		m := *e.User
		return domain.UserEntry(m)
	case domain.EntryAssistant:
		return domain.AssistantEntry(e.Response.Clone())
	default:
		return e
	}
}

// Renderable drops turns that must not be drawn (complete with no components).
func Renderable(responses []domain.AssistantResponse) []domain.AssistantResponse {
	out := make([]domain.AssistantResponse, 0, len(responses))
	for _, r := range responses {
		if r.Renderable() {
			out = append(out, r)
		}
	}
	return out
}
