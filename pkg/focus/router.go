// Package focus overlays a single-slot "expanded" mode on a conversation history
// and redirects the next outbound user message to the focused component's slot.
package focus

import (
	"sync"

	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/history"
)

// ComponentLookup resolves a component id against the conversation history.
type ComponentLookup interface {
	FindComponent(id string) (domain.Component, bool)
}

// IsFocusable reports whether c opted in with props.focusable == true.
func IsFocusable(c domain.Component) bool {
	return c.Focusable()
}

// Router owns the focus slot of one conversation. Safe for concurrent use.
type Router struct {
	mu             sync.RWMutex
	lookup         ComponentLookup
	defaultTrigger string
	state          *domain.FocusState
}

// NewRouter creates a router with no focus. defaultTrigger is the conversation's
// trigger node used whenever nothing is focused.
func NewRouter(lookup ComponentLookup, defaultTrigger string) *Router {
	return &Router{
		lookup:         lookup,
		defaultTrigger: defaultTrigger,
	}
}

// Open focuses componentID, replacing any previous focus.
// Opening a component that is not in the history is a no-op and returns false.
func (r *Router) Open(componentID, targetTriggerNode, chatID, agentName string) bool {
	if r.lookup != nil {
		if _, ok := r.lookup.FindComponent(componentID); !ok {
			return false
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = &domain.FocusState{
		ComponentID:       componentID,
		TargetTriggerNode: targetTriggerNode,
		ChatID:            chatID,
		AgentName:         agentName,
	}
	return true
}

// Close clears the slot.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = nil
}

// State returns the current focus, if any.
func (r *Router) State() (domain.FocusState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return domain.FocusState{}, false
	}
	return *r.state, true
}

// Restore sets the slot without validating against history.
func (r *Router) Restore(state *domain.FocusState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state == nil {
		r.state = nil
		return
	}
	s := *state
	r.state = &s
}

// Route returns where the next user message goes. While focused it targets the
// focused slot's trigger node and chat id, so the same mount key receives the
// answer. Otherwise it targets the default trigger with no chat id; the caller
// generates a fresh one.
func (r *Router) Route() domain.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state != nil {
		return domain.Route{
			TriggerNode: r.state.TargetTriggerNode,
			ChatID:      r.state.ChatID,
			Focused:     true,
		}
	}
	return domain.Route{TriggerNode: r.defaultTrigger}
}

// Slot is one component as the layout should present it.
type Slot struct {
	Component domain.Component
	// Expandable components are drawn with a control that opens focus.
	Expandable bool
}

// Turn groups the slots of one renderable turn.
type Turn struct {
	Response domain.AssistantResponse
	Slots    []Slot
}

// View is the presentation model for the whole conversation.
type View struct {
	// Turns is always populated, even while focused: the history view stays
	// mounted and is only hidden, keeping animation and scroll state alive.
	Turns         []Turn
	HistoryHidden bool
	Focused       *domain.Component
	Focus         *domain.FocusState
}

// View builds the presentation model over responses.
func (r *Router) View(responses []domain.AssistantResponse) View {
	state, focused := r.State()

	v := View{}
	for _, resp := range history.Renderable(responses) {
		turn := Turn{Response: resp, Slots: make([]Slot, 0, len(resp.Components))}
		for _, c := range resp.Components {
			isFocused := focused && c.ID == state.ComponentID
			if isFocused {
				fc := c
				v.Focused = &fc
			}
			turn.Slots = append(turn.Slots, Slot{
				Component:  c,
				Expandable: IsFocusable(c) && !isFocused,
			})
		}
		v.Turns = append(v.Turns, turn)
	}

	// Focus on an id that no longer renders shows nothing over the history.
	if focused && v.Focused != nil {
		v.HistoryHidden = true
		v.Focus = &state
	}
	return v
}
