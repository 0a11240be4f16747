package ports

import "context"

// Trigger is a routed user message on its way to the workflow orchestrator.
type Trigger struct {
	TriggerNode    string `json:"triggerNode"`
	ChatID         string `json:"chatId"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Content        string `json:"content"`
	Focused        bool   `json:"focused"`
}

// TriggerDispatcher hands user input to whatever schedules workflow nodes.
type TriggerDispatcher interface {
	Dispatch(ctx context.Context, trigger Trigger) error
}

// DispatcherFunc adapts a function to TriggerDispatcher.
type DispatcherFunc func(ctx context.Context, trigger Trigger) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, trigger Trigger) error {
	return f(ctx, trigger)
}
