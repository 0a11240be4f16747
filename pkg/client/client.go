// Package client is the consuming side of a Surface connection.
//
// It folds COMPONENT_INIT and COMPONENT_DATA frames into a History, binds a
// renderer to each component type on first use, paces text components through an
// Animator and keeps the focus slot that redirects outgoing user messages.
package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/pkg/animator"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/focus"
	"github.com/aretw0/surface/pkg/history"
	"github.com/aretw0/surface/pkg/registry"
)

// TextComponent is the component type whose "content" prop is revealed progressively.
const TextComponent = "text"

// Source yields server frames, e.g. a websocket.ClientConn.
type Source interface {
	Next(ctx context.Context) (domain.Envelope, error)
}

// UpdateKind tells what changed in an Update.
type UpdateKind string

const (
	// UpdateMounted is sent when a frame added a component to the history.
	UpdateMounted UpdateKind = "mounted"
	// UpdateChanged is sent when a frame replaced a component's props.
	UpdateChanged UpdateKind = "changed"
	// UpdateRevealed is sent on every animation step of a text component.
	UpdateRevealed UpdateKind = "revealed"
)

// Update notifies the presentation layer.
type Update struct {
	Kind      UpdateKind
	Component domain.Component
	// Displayed is the revealed text of a text component.
	Displayed string
}

// Client holds the client-side state of one conversation.
type Client struct {
	history  *history.History
	router   *focus.Router
	registry *registry.Registry

	mu        sync.Mutex
	animators map[string]*animator.Animator
	animOpts  []animator.Option

	onUpdate func(Update)
	logger   *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithRegistry sets the renderer registry components are bound against.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// WithAnimatorOptions configures every text animator the client creates.
func WithAnimatorOptions(opts ...animator.Option) Option {
	return func(c *Client) {
		c.animOpts = append(c.animOpts, opts...)
	}
}

// WithUpdateHandler receives every change. It runs synchronously and must not block.
func WithUpdateHandler(fn func(Update)) Option {
	return func(c *Client) {
		c.onUpdate = fn
	}
}

// WithDefaultTrigger sets the trigger node unfocused messages are labeled with.
func WithDefaultTrigger(trigger string) Option {
	return func(c *Client) {
		c.router = focus.NewRouter(c.history, trigger)
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates an empty client.
func New(opts ...Option) *Client {
	h := history.New()
	c := &Client{
		history:   h,
		router:    focus.NewRouter(h, ""),
		registry:  registry.NewRegistry(),
		animators: make(map[string]*animator.Animator),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// History returns the conversation history.
func (c *Client) History() *history.History { return c.history }

// Focus returns the focus router.
func (c *Client) Focus() *focus.Router { return c.router }

// Run applies frames from src until it fails or ctx is done.
func (c *Client) Run(ctx context.Context, src Source) error {
	for {
		env, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.Apply(env)
	}
}

// Apply folds one frame into the history. It returns false for frames the
// history cannot place (DATA for a slot never initialized).
func (c *Client) Apply(env domain.Envelope) (domain.Component, bool) {
	prev, existed := c.history.FindByMountKey(env.MountKey())
	comp, ok := c.history.Apply(env)
	if !ok {
		c.logger.Debug("Frame dropped", "type", env.Type, "mount_key", env.MountKey().String())
		return domain.Component{}, false
	}
	if existed && prev.ID != comp.ID {
		c.dropAnimator(prev.ID)
	}

	if !comp.Bound() {
		componentURL := ""
		if env.Component != nil {
			componentURL = env.Component.ComponentURL
		}
		if fn, err := c.registry.Resolve(comp.ComponentType, componentURL); err == nil {
			c.history.BindRenderer(comp.ID, fn)
			comp.Renderer = fn
		} else {
			c.logger.Debug("No renderer bound", "component_type", comp.ComponentType, "err", err)
		}
	}

	kind := UpdateChanged
	if !existed {
		kind = UpdateMounted
	}
	c.emit(Update{Kind: kind, Component: comp})

	if comp.ComponentType == TextComponent {
		if content, ok := comp.Props["content"].(string); ok {
			c.animatorFor(comp).AddChunk(content)
		}
	}
	return comp, true
}

func (c *Client) animatorFor(comp domain.Component) *animator.Animator {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.animators[comp.ID]; ok {
		return a
	}
	id := comp.ID
	a := animator.New(func(text string) {
		cur, ok := c.history.FindComponent(id)
		if !ok {
			cur = comp
		}
		c.emit(Update{Kind: UpdateRevealed, Component: cur, Displayed: text})
	}, c.animOpts...)
	c.animators[id] = a
	return a
}

func (c *Client) dropAnimator(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.animators[id]; ok {
		a.Stop()
		delete(c.animators, id)
	}
}

func (c *Client) emit(u Update) {
	if c.onUpdate != nil {
		c.onUpdate(u)
	}
}

// Displayed returns the revealed text of a text component.
func (c *Client) Displayed(componentID string) (string, bool) {
	c.mu.Lock()
	a, ok := c.animators[componentID]
	c.mu.Unlock()
	if !ok {
		return "", false
	}
	return a.Displayed(), true
}

// Animating reports whether any text component is still revealing.
func (c *Client) Animating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.animators {
		if a.Animating() {
			return true
		}
	}
	return false
}

// View builds the focus-aware presentation model.
func (c *Client) View() focus.View {
	return c.router.View(c.history.GetResponses())
}

// OpenFocus focuses componentID and returns the frame announcing it to the server.
// It returns false when the component is unknown or not focusable.
func (c *Client) OpenFocus(componentID string) (domain.ClientMessage, bool) {
	comp, ok := c.history.FindComponent(componentID)
	if !ok || !focus.IsFocusable(comp) {
		return domain.ClientMessage{}, false
	}
	target := comp.MetaString(domain.MetaTargetTriggerNode)
	if target == "" {
		target = comp.NodeID
	}
	agent := comp.MetaString(domain.MetaAgentName)
	if !c.router.Open(componentID, target, comp.ChatID, agent) {
		return domain.ClientMessage{}, false
	}
	return domain.ClientMessage{
		Type:              domain.MessageFocusOpen,
		ComponentID:       componentID,
		TargetTriggerNode: target,
		ChatID:            comp.ChatID,
		AgentName:         agent,
	}, true
}

// CloseFocus clears the focus and returns the frame announcing it.
func (c *Client) CloseFocus() domain.ClientMessage {
	c.router.Close()
	return domain.ClientMessage{Type: domain.MessageFocusClose}
}

// UserMessage records content and returns the frame to send. While focused the
// message reuses the focused slot's chat id; otherwise it starts a new chat.
func (c *Client) UserMessage(content string) domain.ClientMessage {
	route := c.router.Route()
	chatID := route.ChatID
	if !route.Focused {
		chatID = c.history.NewChatID()
	}
	um := c.history.AddUserMessageWithChat(content, chatID)
	return domain.ClientMessage{Type: domain.MessageUserMessage, Content: um.Content, ChatID: um.ChatID}
}

// Close stops every animation.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.animators {
		a.Stop()
	}
}
