package domain

// FocusState is the single focus slot of a conversation.
// At most one component is focused; opening another replaces it.
type FocusState struct {
	ComponentID       string `json:"componentId"`
	TargetTriggerNode string `json:"targetTriggerNode"`
	ChatID            string `json:"chatId"`
	AgentName         string `json:"agentName,omitempty"`
}

// Route names the backend destination of an outbound user message.
type Route struct {
	TriggerNode string `json:"triggerNode"`
	ChatID      string `json:"chatId,omitempty"`
	Focused     bool   `json:"focused"`
}
