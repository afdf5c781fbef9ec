package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/sequence"
)

// Recorder saves the snapshot of a run to a store on every status change.
type Recorder struct {
	store   ports.SnapshotStore
	logger  *slog.Logger
	timeout time.Duration
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderLogger sets a custom structured logger.
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithSaveTimeout bounds each save. Default 2s.
func WithSaveTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.timeout = d
	}
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store ports.SnapshotStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		logger:  logging.NewNop(),
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach subscribes to run and every step it owns. Saves happen synchronously
// on the engine goroutine, so a snapshot never misses the change that
// triggered it. The returned function detaches the recorder.
func (r *Recorder) Attach(run sequence.Runner) (detach func()) {
	listener := func(domain.StatusEvent) { r.save(run) }

	stopRun := run.Subscribe(listener)
	stopSteps := sequence.SubscribeSteps(run, listener)
	return func() {
		stopRun()
		stopSteps()
	}
}

func (r *Recorder) save(run sequence.Runner) {
	snap := run.Snapshot()
	if snap.RunID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Save(ctx, snap.RunID, &snap); err != nil {
		r.logger.Error("failed to save snapshot", "run_id", snap.RunID, "sequence", snap.Sequence, "error", err)
	}
}
