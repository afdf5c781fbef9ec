package ports

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// DefinitionLoader defines how hosts retrieve flow definitions.
// This allows the storage layer (files, memory) to be decoupled from the engine.
type DefinitionLoader interface {
	// Load returns the definition with the given name.
	Load(name string) (*domain.Definition, error)

	// List returns the names of all available definitions, sorted.
	List() ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying definitions change.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
