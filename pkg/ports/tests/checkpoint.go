// Package tests holds reusable contract suites for port implementations.
package tests

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract verifies that a CheckpointStore implementation
// adheres to the interface contract.
func RunCheckpointStoreContract(t *testing.T, store ports.CheckpointStore) {
	t.Helper()
	ctx := context.Background()
	sessionID := "contract-" + time.Now().Format("20060102150405.000000")

	sample := func(id, cursor string, step int) *domain.Checkpoint {
		return &domain.Checkpoint{
			SessionID: id,
			RunID:     "run-" + cursor,
			State:     []byte(`{"messages":[{"role":"user","content":"hi"}],"sentiment":"neutral"}`),
			Codec:     "json",
			Cursor:    cursor,
			Status:    domain.CheckpointRunning,
			Step:      step,
			UpdatedAt: time.Date(2025, 7, 16, 23, 25, 0, 0, time.UTC),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		cp := sample(sessionID, "classify", 1)
		require.NoError(t, store.Save(ctx, sessionID, cp))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, cp.SessionID, loaded.SessionID)
		assert.Equal(t, cp.RunID, loaded.RunID)
		assert.True(t, bytes.Equal(cp.State, loaded.State), "state bytes must round-trip exactly")
		assert.Equal(t, cp.Codec, loaded.Codec)
		assert.Equal(t, cp.Cursor, loaded.Cursor)
		assert.Equal(t, cp.Status, loaded.Status)
		assert.Equal(t, cp.Step, loaded.Step)
		assert.True(t, cp.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, sample(sessionID, "classify", 1)))
		next := sample(sessionID, "respond", 2)
		next.Status = domain.CheckpointPaused
		require.NoError(t, store.Save(ctx, sessionID, next))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "respond", loaded.Cursor)
		assert.Equal(t, domain.CheckpointPaused, loaded.Status)
		assert.Equal(t, 2, loaded.Step)
	})

	t.Run("Isolation", func(t *testing.T) {
		cp := sample(sessionID, "classify", 1)
		require.NoError(t, store.Save(ctx, sessionID, cp))
		cp.State[0] = 'X'

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, byte('{'), loaded.State[0], "store must not alias caller bytes")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, sample(sessionID, "classify", 1)))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, sample(id1, "classify", 0)))
		require.NoError(t, store.Save(ctx, id2, sample(id2, "classify", 0)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Concurrent Saves", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(step int) {
				defer wg.Done()
				id := sessionID + "-concurrent"
				assert.NoError(t, store.Save(ctx, id, sample(id, "classify", step)))
			}(i)
		}
		wg.Wait()

		loaded, err := store.Load(ctx, sessionID+"-concurrent")
		require.NoError(t, err)
		assert.Equal(t, "classify", loaded.Cursor)
		_ = store.Delete(ctx, sessionID+"-concurrent")
	})
}
