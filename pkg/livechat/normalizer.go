package livechat

import (
	"time"

	"github.com/aretw0/surface/pkg/domain"
	"github.com/google/uuid"
)

// DefaultSystem names the foreign system in component metadata.
const DefaultSystem = "live-chat"

// Node ids of the slots a foreign message occupies within its chat id.
const (
	NodeText        = "livechat-text"
	NodeInteractive = "livechat-interactive"
)

// Normalizer maps foreign messages to turns.
type Normalizer struct {
	system string
	now    func() time.Time
	newID  func() string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithSystem sets the source system name recorded in metadata.
func WithSystem(name string) Option {
	return func(n *Normalizer) {
		if name != "" {
			n.system = name
		}
	}
}

// WithClock overrides the fallback timestamp source.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(fn func() string) Option {
	return func(n *Normalizer) {
		n.newID = fn
	}
}

// NewNormalizer creates a normalizer for DefaultSystem unless configured otherwise.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		system: DefaultSystem,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// System returns the configured source system name.
func (n *Normalizer) System() string {
	return n.system
}

// Normalize turns a foreign message into a complete turn. It never fails:
// malformed or unrecognized payloads fall back to plain text.
func (n *Normalizer) Normalize(m Message) domain.AssistantResponse {
	chatID := m.ID
	if chatID == "" {
		chatID = n.newID()
	}

	resp := domain.AssistantResponse{
		ID:             n.newID(),
		StreamingState: domain.StreamingComplete,
		Timestamp:      n.timestamp(m.AbsoluteTime),
		ChatID:         chatID,
	}

	tpl, ok := parseTemplate(m.Content)
	if !ok {
		resp.Components = []domain.Component{n.textComponent(m, chatID, m.Content, "")}
		return resp
	}

	if tpl.title != "" || tpl.subtitle != "" {
		resp.Components = append(resp.Components, n.textComponent(m, chatID, tpl.title, tpl.subtitle))
	}
	resp.Components = append(resp.Components, domain.Component{
		ID:            n.newID(),
		ComponentType: tpl.componentType,
		Props:         tpl.props,
		Metadata:      n.metadata(m),
		NodeID:        NodeInteractive,
		ChatID:        chatID,
	})
	return resp
}

// ToUserMessage maps a customer echo to a user message.
func (n *Normalizer) ToUserMessage(m Message) domain.UserMessage {
	chatID := m.ID
	if chatID == "" {
		chatID = n.newID()
	}
	return domain.UserMessage{
		ID:        n.newID(),
		Content:   m.Content,
		Timestamp: n.timestamp(m.AbsoluteTime),
		ChatID:    chatID,
	}
}

func (n *Normalizer) textComponent(m Message, chatID, content, subtitle string) domain.Component {
	props := map[string]any{"content": content}
	if subtitle != "" {
		props["subtitle"] = subtitle
	}
	return domain.Component{
		ID:            n.newID(),
		ComponentType: ComponentText,
		Props:         props,
		Metadata:      n.metadata(m),
		NodeID:        NodeText,
		ChatID:        chatID,
	}
}

func (n *Normalizer) metadata(m Message) map[string]any {
	contentType := m.ContentType
	if contentType == "" {
		contentType = ContentTypePlain
	}
	return map[string]any{
		domain.MetaOrigin:          domain.OriginExternal,
		domain.MetaSource:          n.system,
		domain.MetaAgentName:       m.DisplayName,
		domain.MetaContentType:     contentType,
		domain.MetaParticipantRole: m.ParticipantRole,
	}
}

func (n *Normalizer) timestamp(raw string) time.Time {
	if raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t
		}
	}
	return n.now()
}

// IsForeignOrigin reports whether the turn came from a live-chat system.
// It only inspects component metadata.
func IsForeignOrigin(r domain.AssistantResponse) bool {
	for _, c := range r.Components {
		if c.MetaString(domain.MetaOrigin) == domain.OriginExternal {
			return true
		}
	}
	return false
}

// AgentNameOf returns the sender display name recorded on the turn, or "".
func AgentNameOf(r domain.AssistantResponse) string {
	for _, c := range r.Components {
		if name := c.MetaString(domain.MetaAgentName); name != "" {
			return name
		}
	}
	return ""
}

// SourceOf returns the source system recorded on the turn, or "".
func SourceOf(r domain.AssistantResponse) string {
	for _, c := range r.Components {
		if src := c.MetaString(domain.MetaSource); src != "" {
			return src
		}
	}
	return ""
}
