package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/surface/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	key := "contract-user/conversation-" + time.Now().Format("20060102150405")

	newSnapshot := func(id string) *domain.Snapshot {
		return &domain.Snapshot{
			ConversationID: id,
			Entries: []domain.Entry{
				domain.UserEntry(domain.UserMessage{ID: "u1", Content: "hello", ChatID: "c1"}),
				domain.AssistantEntry(domain.AssistantResponse{
					ID:             "r1",
					StreamingState: domain.StreamingComplete,
					ChatID:         "c1",
					Components: []domain.Component{
						{ID: "x1", ComponentType: "text", NodeID: "n1", ChatID: "c1", Props: map[string]any{"content": "hi"}},
					},
				}),
			},
			Focus: &domain.FocusState{ComponentID: "x1", TargetTriggerNode: "n1", ChatID: "c1"},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Save
		err := store.Save(ctx, key, newSnapshot("conversation"))
		require.NoError(t, err, "Save should not return error")

		// 2. Load
		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "conversation", loaded.ConversationID)
		require.Len(t, loaded.Entries, 2)
		assert.Equal(t, domain.EntryUser, loaded.Entries[0].Kind)
		assert.Equal(t, "hello", loaded.Entries[0].User.Content)
		require.NotNil(t, loaded.Entries[1].Response)
		assert.Equal(t, domain.StreamingComplete, loaded.Entries[1].Response.StreamingState)
		assert.Equal(t, "hi", loaded.Entries[1].Response.Components[0].Props["content"])
		require.NotNil(t, loaded.Focus)
		assert.Equal(t, "x1", loaded.Focus.ComponentID)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, key, newSnapshot("conversation"))
		require.NoError(t, err)

		err = store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := key + "-1"
		id2 := key + "-2"
		_ = store.Save(ctx, id1, newSnapshot(id1))
		_ = store.Save(ctx, id2, newSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}
