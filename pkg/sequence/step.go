package sequence

import (
	"context"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Parent is a container that owns steps: a Sequence or a BranchingSequence.
type Parent interface {
	// CompleteStep is called by a step once it has completed.
	CompleteStep(step *Step)
	Name() string

	runtime() *shared
}

// StepOption configures a Step.
type StepOption func(*Step)

// WithClip attaches an audio cue played when the step begins.
func WithClip(clip domain.Clip) StepOption {
	return func(s *Step) {
		s.clip = &clip
	}
}

// WithAudioDelay waits d after the step begins before playing its clip.
func WithAudioDelay(d time.Duration) StepOption {
	return func(s *Step) {
		s.delay = d
	}
}

// WithPitch overrides the shared handle pitch while the step runs.
func WithPitch(pitch float64) StepOption {
	return func(s *Step) {
		s.pitch = &pitch
	}
}

// AudioOnly completes the step automatically once its clip has finished playing.
func AudioOnly() StepOption {
	return func(s *Step) {
		s.audioOnly = true
	}
}

// FinishBeforeStart lets the step be completed while still inactive. The
// completion is honored as soon as the step begins.
func FinishBeforeStart() StepOption {
	return func(s *Step) {
		s.finishEarly = true
	}
}

// OnStarted registers the callback fired when the step begins.
func OnStarted(fn func()) StepOption {
	return func(s *Step) {
		s.onStarted = fn
	}
}

// OnCompleted registers the callback fired when the step completes, before its
// parent moves on.
func OnCompleted(fn func()) StepOption {
	return func(s *Step) {
		s.onCompleted = fn
	}
}

// WithContent attaches presentation content (markdown) to the step.
func WithContent(content string) StepOption {
	return func(s *Step) {
		s.content = content
	}
}

// Step is the unit of a sequence. It completes when the host calls CompleteStep
// or, for audio-only steps, when its clip finishes.
type Step struct {
	node

	content     string
	clip        *domain.Clip
	delay       time.Duration
	pitch       *float64
	audioOnly   bool
	finishEarly bool
	onStarted   func()
	onCompleted func()

	parent        Parent
	finishPending bool
	gen           uint64
	cancel        context.CancelFunc
}

// NewStep creates an inactive step.
func NewStep(id string, opts ...StepOption) *Step {
	s := &Step{node: node{name: id, kind: domain.KindStep}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the step identifier.
func (s *Step) ID() string { return s.name }

// Content returns the markdown shown while the step runs.
func (s *Step) Content() string { return s.content }

// Clip returns the audio cue, if any.
func (s *Step) Clip() (domain.Clip, bool) {
	if s.clip == nil {
		return domain.Clip{}, false
	}
	return *s.clip, true
}

// AudioDelay returns how long the step waits before playing its clip.
func (s *Step) AudioDelay() time.Duration { return s.delay }

// IsAudioOnly reports whether the step completes itself when playback ends.
func (s *Step) IsAudioOnly() bool { return s.audioOnly }

// CanFinishBeforeStart reports whether completions are recorded while inactive.
func (s *Step) CanFinishBeforeStart() bool { return s.finishEarly }

// FinishPending reports whether a completion was recorded before the step began.
func (s *Step) FinishPending() bool { return s.finishPending }

// Parent returns the container the step was initialized by, or nil.
func (s *Step) Parent() Parent { return s.parent }

// Initialize prepares the step for a run of parent.
func (s *Step) Initialize(parent Parent) {
	s.invalidate()
	s.finishPending = false
	s.status = domain.StatusInactive
	s.parent = parent
	s.rt = nil
	if parent != nil {
		s.rt = parent.runtime()
	}
}

// Begin starts the step: pitch override, Started, the started callback, then
// either the pending completion or the audio cue.
func (s *Step) Begin() {
	rt := s.rt
	if rt == nil || !rt.initialized {
		return
	}
	s.invalidate()
	ctx, cancel := context.WithCancel(rt.ctx)
	s.cancel = cancel
	gen := s.gen

	if s.pitch != nil {
		rt.audio.SetPitch(*s.pitch)
	}
	s.raise(domain.StatusStarted)
	rt.logger.Debug("step started", "step", s.name, "run_id", rt.runID)
	if s.onStarted != nil {
		s.onStarted()
	}
	if s.gen != gen {
		// The started callback already moved the run on.
		return
	}

	if s.finishPending {
		s.finishPending = false
		s.CompleteStep()
		return
	}

	rt.audio.Stop()

	switch {
	case s.clip == nil:
		if s.audioOnly {
			rt.loop.Post(func() { s.autoComplete(gen) })
		}
	case s.delay <= 0:
		s.play(ctx, gen)
	default:
		go func() {
			timer := time.NewTimer(s.delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
				rt.loop.Post(func() {
					if s.current(gen) {
						s.play(ctx, gen)
					}
				})
			}
		}()
	}
}

func (s *Step) play(ctx context.Context, gen uint64) {
	rt := s.rt
	done := rt.audio.Play(*s.clip)
	if !s.audioOnly {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			rt.loop.Post(func() { s.autoComplete(gen) })
		}
	}()
}

func (s *Step) autoComplete(gen uint64) {
	if !s.current(gen) {
		if s.rt != nil {
			s.rt.logger.Debug("discarding stale playback signal", "step", s.name)
		}
		return
	}
	s.CompleteStep()
}

// CompleteStep completes a started step and hands control back to the parent.
// An inactive step that can finish before starting records the completion
// instead. Any other call is ignored.
func (s *Step) CompleteStep() {
	switch {
	case s.status == domain.StatusStarted:
	case s.status == domain.StatusInactive && s.finishEarly:
		s.finishPending = true
		return
	default:
		if s.rt != nil {
			s.rt.logger.Debug("ignoring completion", "step", s.name, "status", s.status)
		}
		return
	}

	s.invalidate()
	gen := s.gen
	if s.onCompleted != nil {
		s.onCompleted()
	}
	if s.gen != gen {
		// The completed callback reset or restarted the run.
		return
	}
	rt := s.rt
	if rt != nil && rt.audio != nil {
		rt.audio.SetPitch(rt.basePitch)
	}
	s.raise(domain.StatusCompleted)
	if rt != nil {
		rt.logger.Debug("step completed", "step", s.name, "run_id", rt.runID)
	}
	if s.parent != nil {
		s.parent.CompleteStep(s)
	}
}

// Skip completes the step if it is running.
func (s *Step) Skip() {
	if s.status == domain.StatusStarted {
		s.CompleteStep()
	}
}

// markInactive returns the step to Inactive without firing callbacks.
func (s *Step) markInactive() {
	s.invalidate()
	s.finishPending = false
	s.raise(domain.StatusInactive)
}

// invalidate discards whatever the current activation is waiting for.
func (s *Step) invalidate() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Step) current(gen uint64) bool {
	return s.gen == gen && s.status == domain.StatusStarted
}

func (s *Step) state() domain.StepState {
	return domain.StepState{ID: s.name, Status: s.status, FinishPending: s.finishPending}
}
