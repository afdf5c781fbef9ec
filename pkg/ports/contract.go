package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	newSnapshot := func(id string) *domain.Snapshot {
		return &domain.Snapshot{
			RunID:        id,
			Sequence:     "contract",
			Kind:         domain.KindLinear,
			Status:       domain.StatusStarted,
			CurrentStep:  "b",
			CurrentIndex: 1,
			Steps: []domain.StepState{
				{ID: "a", Status: domain.StatusCompleted},
				{ID: "b", Status: domain.StatusStarted},
				{ID: "c", Status: domain.StatusInactive, FinishPending: true},
			},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnapshot(runID)

		err := store.Save(ctx, runID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.CurrentStep, loaded.CurrentStep)
		assert.Equal(t, snap.Status, loaded.Status)
		assert.Equal(t, snap.CurrentIndex, loaded.CurrentIndex)
		require.Len(t, loaded.Steps, 3)
		assert.Equal(t, domain.StatusCompleted, loaded.Steps[0].Status)
		assert.True(t, loaded.Steps[2].FinishPending)
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		loaded.Steps[0].Status = domain.StatusInactive

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, again.Steps[0].Status)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, runID, newSnapshot(runID))
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, id1, newSnapshot(id1))
		_ = store.Save(ctx, id2, newSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
