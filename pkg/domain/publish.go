package domain

// ComponentPayload is what a workflow node hands over for publishing.
type ComponentPayload struct {
	Type         string         `json:"type" validate:"required"`
	Version      string         `json:"version"`
	Props        map[string]any `json:"props"`
	ComponentURL string         `json:"componentUrl"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// PublishRequest is the inbound call at the workflow-node boundary.
type PublishRequest struct {
	Component         ComponentPayload `json:"component" validate:"required"`
	ChatID            string           `json:"chatId" validate:"required"`
	ConversationID    string           `json:"conversationId" validate:"required"`
	UserID            string           `json:"userId" validate:"required"`
	ProviderID        string           `json:"providerId"`
	WorkflowID        string           `json:"workflowId"`
	WorkflowRunID     string           `json:"workflowRunId"`
	NodeID            string           `json:"nodeId" validate:"required"`
	TargetTriggerNode string           `json:"targetTriggerNode,omitempty"`
}

// MountKey returns the slot the request publishes to.
func (r PublishRequest) MountKey() MountKey {
	return MountKey{ChatID: r.ChatID, NodeID: r.NodeID}
}

// ConnectionKey identifies the connection the request is destined for.
func (r PublishRequest) ConnectionKey() string {
	return ConnectionKey(r.UserID, r.ConversationID)
}

// ConnectionKey builds the lookup key of a (userId, conversationId) connection.
func ConnectionKey(userID, conversationID string) string {
	return userID + "/" + conversationID
}

// PublishingContext tells a node where its output goes.
// A node executed without one cannot determine its destination.
type PublishingContext struct {
	ChatID            string `json:"chatId" mapstructure:"chatId"`
	ConversationID    string `json:"conversationId" mapstructure:"conversationId"`
	UserID            string `json:"userId" mapstructure:"userId"`
	ProviderID        string `json:"providerId" mapstructure:"providerId"`
	TargetTriggerNode string `json:"targetTriggerNode,omitempty" mapstructure:"targetTriggerNode"`
}

// Complete reports whether the context names a destination.
func (p *PublishingContext) Complete() bool {
	return p != nil && p.ChatID != "" && p.ConversationID != "" && p.UserID != ""
}
