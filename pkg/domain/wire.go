package domain

// MessageType tags every frame exchanged over the connection.
type MessageType string

const (
	// Server -> client.
	MessageComponentInit MessageType = "COMPONENT_INIT"
	MessageComponentData MessageType = "COMPONENT_DATA"

	// Client -> server.
	MessageUserMessage MessageType = "USER_MESSAGE"
	MessageFocusOpen   MessageType = "FOCUS_OPEN"
	MessageFocusClose  MessageType = "FOCUS_CLOSE"
)

// ComponentDefinition is the full bootstrap of a component carried by COMPONENT_INIT.
type ComponentDefinition struct {
	Type         string         `json:"type"`
	ComponentURL string         `json:"componentUrl"`
	Version      string         `json:"version"`
	Props        map[string]any `json:"props"`
}

// Header holds the fields shared by both outbound shapes.
type Header struct {
	ID             string      `json:"id"`
	Timestamp      int64       `json:"timestamp"`
	Type           MessageType `json:"type"`
	NodeID         string      `json:"nodeId"`
	ChatID         string      `json:"chatId"`
	ConversationID string      `json:"conversationId"`
	UserID         string      `json:"userId"`
	ProviderID     string      `json:"providerId"`
}

// MountKey returns the slot addressed by the message.
func (h Header) MountKey() MountKey {
	return MountKey{ChatID: h.ChatID, NodeID: h.NodeID}
}

// InitMessage is the first message a mount key receives on a connection.
type InitMessage struct {
	Header
	Component ComponentDefinition `json:"component"`
	Metadata  map[string]any      `json:"metadata"`
}

// DataMessage is an incremental props update for an initialized mount key.
// Data never contains nil or empty-string values.
type DataMessage struct {
	Header
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

// Envelope is the decoding side of both outbound shapes. Clients unmarshal
// every frame into it and switch on Type.
type Envelope struct {
	Header
	Component *ComponentDefinition `json:"component,omitempty"`
	Data      map[string]any       `json:"data,omitempty"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
}

// ClientMessage is a frame sent by the client over the connection.
type ClientMessage struct {
	Type MessageType `json:"type"`

	// USER_MESSAGE
	Content string `json:"content,omitempty"`
	ChatID  string `json:"chatId,omitempty"`

	// FOCUS_OPEN
	ComponentID       string `json:"componentId,omitempty"`
	TargetTriggerNode string `json:"targetTriggerNode,omitempty"`
	AgentName         string `json:"agentName,omitempty"`
}
