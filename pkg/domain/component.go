package domain

// MountKey identifies one persistent visual slot on the client.
// Two publishes with the same key update the same slot, whatever their component ID.
type MountKey struct {
	ChatID string `json:"chatId"`
	NodeID string `json:"nodeId"`
}

// String returns the canonical "chatId:nodeId" form, also used as componentKey on the wire.
func (k MountKey) String() string {
	return k.ChatID + ":" + k.NodeID
}

// IsZero reports whether the key lacks either half.
func (k MountKey) IsZero() bool {
	return k.ChatID == "" || k.NodeID == ""
}

// RenderFunc draws a component from its props.
// It is bound lazily on the client the first time a component type is needed.
type RenderFunc func(props map[string]any) (string, error)

// Component is a rendered instance attached to a turn.
type Component struct {
	ID            string         `json:"id"`
	ComponentType string         `json:"componentType"`
	Props         map[string]any `json:"props"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	NodeID        string         `json:"nodeId,omitempty"`
	ChatID        string         `json:"chatId,omitempty"`

	// Renderer is nil until the client binds it; an unbound component cannot be drawn.
	Renderer RenderFunc `json:"-"`
}

// MountKey returns the (chatId, nodeId) pair of the component.
func (c Component) MountKey() MountKey {
	return MountKey{ChatID: c.ChatID, NodeID: c.NodeID}
}

// Bound reports whether a renderer has been attached.
func (c Component) Bound() bool {
	return c.Renderer != nil
}

// Focusable reports whether the component opted in to focus mode via props.focusable.
func (c Component) Focusable() bool {
	v, ok := c.Props["focusable"].(bool)
	return ok && v
}

// Category returns metadata.category, or "" when absent.
func (c Component) Category() string {
	return c.MetaString(MetaCategory)
}

// MetaString returns a string metadata value, or "" when absent or not a string.
func (c Component) MetaString(key string) string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[key].(string)
	return s
}

// WithProps returns a copy of the component holding a new props map.
// Props are only ever replaced as a whole; nested values are not merged.
func (c Component) WithProps(props map[string]any) Component {
	c.Props = CloneMap(props)
	return c
}

// Clone returns a copy whose top-level maps are not shared with c.
func (c Component) Clone() Component {
	c.Props = CloneMap(c.Props)
	c.Metadata = CloneMap(c.Metadata)
	return c
}

// CloneMap makes a shallow copy of m. A nil map stays nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
