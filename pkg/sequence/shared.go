package sequence

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/google/uuid"
)

// shared is the per-container runtime state lent to every step it owns.
type shared struct {
	name   string
	loop   *Loop
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	newAudio    ports.AudioFactory
	audio       ports.AudioHandle
	basePitch   float64
	initialized bool

	base   context.Context
	ctx    context.Context
	cancel context.CancelFunc
	runID  string
	fixed  string
	reason domain.EndReason
}

// start opens a new run: fresh context and run ID, and the audio handle
// allocated the first time only.
func (rt *shared) start() {
	rt.abandon(domain.ReasonRestarted)
	rt.cancel()
	rt.ctx, rt.cancel = context.WithCancel(rt.base)
	rt.runID = rt.fixed
	if rt.runID == "" {
		rt.runID = uuid.NewString()
	}
	rt.reason = domain.ReasonNone

	if rt.initialized {
		return
	}
	if rt.audio == nil {
		if rt.newAudio != nil {
			rt.audio = rt.newAudio()
		}
		if rt.audio == nil {
			rt.audio = &silentAudio{pitch: 1, volume: 1}
		}
	}
	rt.audio.SetPitch(rt.basePitch)
	rt.initialized = true
}

// stop cancels pending waits and silences the handle. Handles that hold
// resources are closed and reallocated by the next start.
func (rt *shared) stop() {
	rt.abandon(domain.ReasonReset)
	rt.cancel()
	if rt.audio == nil {
		return
	}
	rt.audio.Stop()
	if c, ok := rt.audio.(io.Closer); ok {
		if err := c.Close(); err != nil {
			rt.logger.Warn("failed to close audio handle", "error", err)
		}
		rt.audio = nil
	}
}

// abandon reports the end of a run that is dropped before reaching Completed.
func (rt *shared) abandon(reason domain.EndReason) {
	if rt.runID == "" || rt.reason != domain.ReasonNone {
		return
	}
	rt.logger.Debug("run abandoned", "run_id", rt.runID, "reason", reason)
	if rt.hooks.OnRunEnd != nil {
		rt.hooks.OnRunEnd(rt.hookCtx(), &domain.RunEvent{EventBase: rt.eventBase(domain.EventRunEnd), Reason: reason})
	}
}

// clear forgets the run, as if the container had never begun.
func (rt *shared) clear() {
	rt.runID = ""
	rt.reason = domain.ReasonNone
	rt.initialized = false
}

// hookCtx is the context handed to hooks. It outlives the run so hooks can
// still persist the events raised while a run is cancelled.
func (rt *shared) hookCtx() context.Context {
	ctx := logging.WithSequence(rt.base, rt.name)
	if rt.runID != "" {
		ctx = logging.WithRunID(ctx, rt.runID)
	}
	return ctx
}

func (rt *shared) eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: now(),
		Type:      t,
		RunID:     rt.runID,
		Sequence:  rt.name,
	}
}

// silentAudio is the handle used when no factory is configured.
type silentAudio struct {
	pitch  float64
	volume float64
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (a *silentAudio) Play(domain.Clip) <-chan struct{} { return closedCh }
func (a *silentAudio) Stop()                            {}
func (a *silentAudio) IsPlaying() bool                  { return false }
func (a *silentAudio) Pitch() float64                   { return a.pitch }
func (a *silentAudio) SetPitch(p float64)               { a.pitch = p }
func (a *silentAudio) Volume() float64                  { return a.volume }
func (a *silentAudio) SetVolume(v float64)              { a.volume = v }
