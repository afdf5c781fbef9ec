package ports

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// SnapshotStore defines the interface for persisting run snapshots.
// Snapshots let hosts inspect runs after a restart and audit how they ended.
type SnapshotStore interface {
	// Save persists the snapshot for a given run ID.
	Save(ctx context.Context, runID string, snapshot *domain.Snapshot) error

	// Load retrieves the snapshot for a given run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all stored runs.
	List(ctx context.Context) ([]string, error)
}
