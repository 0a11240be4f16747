package websocket

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aretw0/surface/pkg/domain"
	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ClientReadLimit is the largest server frame a ClientConn accepts, in bytes.
const ClientReadLimit = 1 << 20

// ClientConn is the consumer side of a Surface socket.
type ClientConn struct {
	conn *ws.Conn
}

// Dial connects to endpoint (ws://, wss://, http:// or https://) for one conversation.
func Dial(ctx context.Context, endpoint, userID, conversationID string) (*ClientConn, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set(QueryUserID, userID)
	q.Set(QueryConversationID, conversationID)
	u.RawQuery = q.Encode()

	c, _, err := ws.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	c.SetReadLimit(ClientReadLimit)
	return &ClientConn{conn: c}, nil
}

// Next blocks until the server sends a frame and decodes it.
func (c *ClientConn) Next(ctx context.Context) (domain.Envelope, error) {
	var env domain.Envelope
	if err := wsjson.Read(ctx, c.conn, &env); err != nil {
		return domain.Envelope{}, err
	}
	return env, nil
}

// Send writes a client frame.
func (c *ClientConn) Send(ctx context.Context, msg domain.ClientMessage) error {
	return wsjson.Write(ctx, c.conn, msg)
}

// SendUserMessage sends a USER_MESSAGE frame.
func (c *ClientConn) SendUserMessage(ctx context.Context, content, chatID string) error {
	return c.Send(ctx, domain.ClientMessage{Type: domain.MessageUserMessage, Content: content, ChatID: chatID})
}

// Close performs a normal closure handshake.
func (c *ClientConn) Close() error {
	return c.conn.Close(ws.StatusNormalClosure, "")
}
