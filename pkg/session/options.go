package session

import (
	"log/slog"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/sequence"
)

// Option configures the Manager.
type Option func(*Manager)

// VariablesFactory returns the resolver conditions of a new run are bound to.
// Returning the same resolver for every run shares values across runs.
type VariablesFactory func(def *domain.Definition) ports.VariableResolver

// WithStore persists a snapshot of every run on each status change and serves
// snapshots of runs that are no longer live.
func WithStore(store ports.SnapshotStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks. Default 30s.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager and the runs it creates.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithVariables sets the resolver factory. The default gives every run its own
// in-memory variables.
func WithVariables(factory VariablesFactory) Option {
	return func(m *Manager) {
		m.newVars = factory
	}
}

// WithAudio sets the audio factory used by every run.
func WithAudio(factory ports.AudioFactory) Option {
	return func(m *Manager) {
		m.seqOpts = append(m.seqOpts, sequence.WithAudio(factory))
	}
}

// WithHooks registers lifecycle hooks on every run.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = append(m.hooks, hooks)
	}
}
