package ports

import (
	"context"

	"github.com/aretw0/surface/pkg/domain"
)

// Connection is a live, socket-like client connection.
type Connection interface {
	// Key returns the (userId, conversationId) connection key.
	Key() string

	// MountedComponents returns the registry of mount keys initialized on this connection.
	MountedComponents() *domain.MountRegistry

	// Send writes one serialized message to the client.
	Send(ctx context.Context, msg string) error
}

// ConnectionRegistry resolves the connection of a user conversation.
type ConnectionRegistry interface {
	// Lookup returns the connection for (userID, conversationID).
	// The boolean is false when the client is not connected; that is not an error.
	Lookup(ctx context.Context, userID, conversationID string) (Connection, bool)
}
