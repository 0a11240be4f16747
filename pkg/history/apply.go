package history

import (
	"github.com/aretw0/surface/pkg/domain"
)

// Apply folds one server frame into the log and returns the affected component.
//
// COMPONENT_INIT attaches the component to the turn of its chat id, opening a
// streaming turn when there is none. An INIT for a key that is already in the
// log (a reconnect) redefines that component in place: it takes the frame's id,
// type, props and metadata and keeps its position in the turn.
// COMPONENT_DATA layers its values over the mounted component's props into a new
// map; it reports false when nothing is mounted at the key.
//
// A frame whose metadata carries streamingState advances its turn.
func (h *History) Apply(env domain.Envelope) (domain.Component, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := env.MountKey()
	var (
		c  domain.Component
		ok bool
	)
	switch env.Type {
	case domain.MessageComponentInit:
		if env.Component == nil {
			return domain.Component{}, false
		}
		c, ok = h.applyInitLocked(env)
	case domain.MessageComponentData:
		c, ok = h.applyDataLocked(key, env.Data)
	default:
		return domain.Component{}, false
	}
	if !ok {
		return domain.Component{}, false
	}

	if raw, found := env.Metadata[domain.MetaStreamingState].(string); found {
		state := domain.StreamingState(raw)
		if resp := h.responseByChatLocked(key.ChatID); resp != nil && state.Valid() && resp.StreamingState.CanAdvanceTo(state) {
			resp.StreamingState = state
		}
	}
	return c, true
}

func (h *History) applyInitLocked(env domain.Envelope) (domain.Component, bool) {
	key := env.MountKey()
	if i, j, found := h.locateLocked(key); found {
		existing := &h.entries[i].Response.Components[j]
		if env.ID != "" {
			existing.ID = env.ID
		}
		if existing.ComponentType != env.Component.Type {
			existing.ComponentType = env.Component.Type
			existing.Renderer = nil
		}
		existing.Metadata = domain.CloneMap(env.Metadata)
		*existing = existing.WithProps(env.Component.Props)
		if existing.Props == nil {
			existing.Props = map[string]any{}
		}
		return existing.Clone(), true
	}

	resp := h.responseByChatLocked(key.ChatID)
	if resp == nil {
		created := domain.AssistantResponse{
			ID:             h.newID(),
			StreamingState: domain.StreamingActive,
			Components:     []domain.Component{},
			Timestamp:      h.now(),
			ChatID:         key.ChatID,
		}
		h.entries = append(h.entries, domain.AssistantEntry(created))
		resp = h.entries[len(h.entries)-1].Response
	} else if resp.StreamingState.CanAdvanceTo(domain.StreamingActive) {
		resp.StreamingState = domain.StreamingActive
	}

	id := env.ID
	if id == "" {
		id = h.newID()
	}
	c := domain.Component{
		ID:            id,
		ComponentType: env.Component.Type,
		Props:         domain.CloneMap(env.Component.Props),
		Metadata:      domain.CloneMap(env.Metadata),
		NodeID:        key.NodeID,
		ChatID:        key.ChatID,
	}
	if c.Props == nil {
		c.Props = map[string]any{}
	}
	resp.Components = append(resp.Components, c)
	return c.Clone(), true
}

func (h *History) applyDataLocked(key domain.MountKey, data map[string]any) (domain.Component, bool) {
	i, j, found := h.locateLocked(key)
	if !found {
		return domain.Component{}, false
	}
	existing := &h.entries[i].Response.Components[j]
	merged := make(map[string]any, len(existing.Props)+len(data))
	for k, v := range existing.Props {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	existing.Props = merged
	return existing.Clone(), true
}

func (h *History) locateLocked(key domain.MountKey) (int, int, bool) {
	for i := range h.entries {
		resp := h.entries[i].Response
		if resp == nil {
			continue
		}
		for j := range resp.Components {
			if resp.Components[j].MountKey() == key {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// responseByChatLocked returns the most recent turn for chatID.
func (h *History) responseByChatLocked(chatID string) *domain.AssistantResponse {
	for i := len(h.entries) - 1; i >= 0; i-- {
		if resp := h.entries[i].Response; resp != nil && resp.ChatID == chatID {
			return resp
		}
	}
	return nil
}
