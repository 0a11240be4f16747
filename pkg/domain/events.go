package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPublishInit    EventType = "publish_init"
	EventPublishData    EventType = "publish_data"
	EventPublishSkipped EventType = "publish_skipped"
	EventNodeExecute    EventType = "node_execute"
	EventConnect        EventType = "connect"
	EventDisconnect     EventType = "disconnect"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// PublishEvent describes one publish decision.
type PublishEvent struct {
	EventBase
	ConnectionKey string   `json:"connection_key"`
	MountKey      MountKey `json:"mount_key"`
	ComponentType string   `json:"component_type"`
	Reason        string   `json:"reason,omitempty"`
}

// NodeEvent describes a node execution.
type NodeEvent struct {
	EventBase
	NodeID        string `json:"node_id"`
	ExecutionID   string `json:"execution_id"`
	ComponentType string `json:"component_type"`
	IsError       bool   `json:"is_error,omitempty"`
}

// ConnectionEvent describes a client attaching to or leaving a conversation.
type ConnectionEvent struct {
	EventBase
	ConnectionKey string `json:"connection_key"`
	Restored      bool   `json:"restored,omitempty"`
}

// LifecycleHooks defines callbacks for observability.
type LifecycleHooks struct {
	OnPublish        func(context.Context, *PublishEvent)
	OnPublishSkipped func(context.Context, *PublishEvent)
	OnNodeExecute    func(context.Context, *NodeEvent)
	OnConnect        func(context.Context, *ConnectionEvent)
	OnDisconnect     func(context.Context, *ConnectionEvent)
}
