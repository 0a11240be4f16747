package livechat

// Participant roles.
const (
	RoleAgent    = "AGENT"
	RoleCustomer = "CUSTOMER"
	RoleSystem   = "SYSTEM"
)

// Message types.
const (
	TypeMessage = "MESSAGE"
	TypeEvent   = "EVENT"
)

// Content types seen on the wire.
const (
	ContentTypePlain       = "text/plain"
	ContentTypeMarkdown    = "text/markdown"
	ContentTypeInteractive = "application/vnd.amazonaws.connect.message.interactive"
)

// Message is a live-chat transcript item as the foreign system delivers it.
type Message struct {
	ID              string `json:"Id"`
	Type            string `json:"Type"`
	ContentType     string `json:"ContentType"`
	Content         string `json:"Content"`
	ParticipantID   string `json:"ParticipantId,omitempty"`
	ParticipantRole string `json:"ParticipantRole"`
	DisplayName     string `json:"DisplayName"`
	AbsoluteTime    string `json:"AbsoluteTime,omitempty"`
	ContactID       string `json:"ContactId,omitempty"`
}

// IsCustomer reports whether the message echoes the end user's own input.
func IsCustomer(m Message) bool {
	return m.ParticipantRole == RoleCustomer
}

// IsEvent reports whether the message is a transcript event (join, leave, typing)
// rather than content.
func IsEvent(m Message) bool {
	return m.Type == TypeEvent
}
