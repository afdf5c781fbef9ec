package sequence

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Option configures a Sequence or a BranchingSequence.
type Option func(*shared)

// WithLogger sets a custom structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *shared) {
		rt.logger = logger
	}
}

// WithLoop sets the loop the container posts audio callbacks to.
// Several containers may share one loop.
func WithLoop(loop *Loop) Option {
	return func(rt *shared) {
		rt.loop = loop
	}
}

// WithAudio sets the factory used to allocate the shared audio handle.
// Without it steps play through a silent handle whose clips end immediately.
func WithAudio(factory ports.AudioFactory) Option {
	return func(rt *shared) {
		rt.newAudio = factory
	}
}

// WithBasePitch sets the pitch restored on the shared handle whenever a step completes.
func WithBasePitch(pitch float64) Option {
	return func(rt *shared) {
		rt.basePitch = pitch
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(rt *shared) {
		rt.hooks = hooks
	}
}

// WithContext sets the parent context of every run. Cancelling it abandons
// pending audio waits.
func WithContext(ctx context.Context) Option {
	return func(rt *shared) {
		rt.base = ctx
	}
}

// WithRunID makes every run of the container use id instead of a generated
// one, so hosts can key snapshots by their own identifiers.
func WithRunID(id string) Option {
	return func(rt *shared) {
		rt.fixed = id
	}
}

func newShared(name string, opts []Option) *shared {
	rt := &shared{
		name:      name,
		basePitch: 1,
		base:      context.Background(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = logging.NewNop()
	}
	rt.logger = rt.logger.With("sequence", name)
	if rt.loop == nil {
		rt.loop = NewLoop()
	}
	if rt.base == nil {
		rt.base = context.Background()
	}
	rt.ctx, rt.cancel = context.WithCancel(rt.base)
	return rt
}
