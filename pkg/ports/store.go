package ports

import (
	"context"

	"github.com/aretw0/surface/pkg/domain"
)

// SnapshotStore keeps conversation snapshots for reconnecting clients.
// It is a cache: implementations may expire entries at any time.
type SnapshotStore interface {
	// Save persists the snapshot under a connection key.
	Save(ctx context.Context, key string, snapshot *domain.Snapshot) error

	// Load retrieves the snapshot for a connection key.
	// Returns domain.ErrSessionNotFound if there is none.
	Load(ctx context.Context, key string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a connection key.
	Delete(ctx context.Context, key string) error

	// List returns the keys of the stored snapshots.
	List(ctx context.Context) ([]string, error)
}
