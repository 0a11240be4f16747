package domain

import "time"

// StreamingState is the lifecycle of a single turn. It is never global.
type StreamingState string

const (
	StreamingIdle     StreamingState = "idle"
	StreamingActive   StreamingState = "streaming"
	StreamingComplete StreamingState = "complete"
)

func (s StreamingState) rank() int {
	switch s {
	case StreamingIdle:
		return 0
	case StreamingActive:
		return 1
	case StreamingComplete:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is one of the known states.
func (s StreamingState) Valid() bool {
	return s.rank() >= 0
}

// CanAdvanceTo reports whether moving from s to next keeps the state machine
// monotonic (idle -> streaming -> complete). Staying in place is allowed.
func (s StreamingState) CanAdvanceTo(next StreamingState) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

// AssistantResponse is one turn of assistant output.
type AssistantResponse struct {
	ID             string         `json:"id"`
	StreamingState StreamingState `json:"streamingState"`
	Components     []Component    `json:"components"`
	Timestamp      time.Time      `json:"timestamp"`
	ChatID         string         `json:"chatId,omitempty"`
}

// Renderable reports whether the turn should be drawn.
// A complete turn without components is skipped.
func (r AssistantResponse) Renderable() bool {
	return !(r.StreamingState == StreamingComplete && len(r.Components) == 0)
}

// Clone returns a deep-enough copy: the component slice and each component's maps are copied.
func (r AssistantResponse) Clone() AssistantResponse {
	if r.Components != nil {
		comps := make([]Component, len(r.Components))
		for i, c := range r.Components {
			comps[i] = c.Clone()
		}
		r.Components = comps
	}
	return r
}

// ResponseUpdate carries shallow field updates for a turn. Nil fields are left untouched.
type ResponseUpdate struct {
	StreamingState *StreamingState
	ChatID         *string
	Timestamp      *time.Time
}

// UserMessage is an immutable message sent by the user.
type UserMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ChatID    string    `json:"chatId,omitempty"`
}

// EntryKind discriminates History entries.
type EntryKind string

const (
	EntryUser      EntryKind = "user"
	EntryAssistant EntryKind = "assistant"
)

// Entry is a History element: exactly one of User or Response is set, as named by Kind.
type Entry struct {
	Kind     EntryKind          `json:"kind"`
	User     *UserMessage       `json:"user,omitempty"`
	Response *AssistantResponse `json:"response,omitempty"`
}

// UserEntry wraps a user message.
func UserEntry(m UserMessage) Entry {
	return Entry{Kind: EntryUser, User: &m}
}

// AssistantEntry wraps a turn.
func AssistantEntry(r AssistantResponse) Entry {
	return Entry{Kind: EntryAssistant, Response: &r}
}

// Snapshot is the serializable form of one conversation, used to restore
// history when a client reconnects within the cache TTL.
type Snapshot struct {
	ConversationID string      `json:"conversationId"`
	Entries        []Entry     `json:"entries,omitempty"`
	Focus          *FocusState `json:"focus,omitempty"`

	// Sealed holds an encrypted copy of the fields above when the store is wrapped
	// by the encryption middleware. Plain snapshots leave it empty.
	Sealed string `json:"sealed,omitempty"`
}

// Clone returns a copy that shares no entries, turns or maps with s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{ConversationID: s.ConversationID, Sealed: s.Sealed}
	if s.Entries != nil {
		out.Entries = make([]Entry, len(s.Entries))
		for i, e := range s.Entries {
			out.Entries[i] = e.Clone()
		}
	}
	if s.Focus != nil {
		f := *s.Focus
		out.Focus = &f
	}
	return out
}

// Clone returns a copy of the entry that shares no pointers with e.
func (e Entry) Clone() Entry {
	if e.User != nil {
		u := *e.User
		e.User = &u
	}
	if e.Response != nil {
		r := e.Response.Clone()
		e.Response = &r
	}
	return e
}
