package sequence

import (
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Sequence runs its steps in order.
type Sequence struct {
	node
	steps []*Step
	index int
}

// NewSequence creates an inactive sequence over steps.
func NewSequence(name string, steps []*Step, opts ...Option) *Sequence {
	return &Sequence{
		node:  node{name: name, kind: domain.KindLinear, rt: newShared(name, opts)},
		steps: append([]*Step(nil), steps...),
	}
}

func (q *Sequence) runtime() *shared { return q.rt }

// Begin starts a new run at the first step. Calling it again restarts the run
// and reuses the audio handle.
func (q *Sequence) Begin() {
	q.rt.start()
	q.index = 0
	q.raise(domain.StatusStarted)
	for _, s := range q.steps {
		s.Initialize(q)
	}
	q.rt.logger.Info("sequence started", "run_id", q.rt.runID, "steps", len(q.steps))

	if len(q.steps) == 0 {
		q.end(domain.ReasonFinished, "")
		return
	}
	q.steps[0].Begin()
}

// CompleteStep advances past step if it is the current one.
func (q *Sequence) CompleteStep(step *Step) {
	if q.status != domain.StatusStarted || q.index >= len(q.steps) || step == nil || q.steps[q.index] != step {
		q.rt.logger.Debug("ignoring stale completion", "step", stepName(step), "index", q.index)
		return
	}

	q.index++
	if q.index < len(q.steps) {
		q.steps[q.index].Begin()
		return
	}
	q.end(domain.ReasonFinished, step.name)
}

// GoToPreviousStep re-enters the previous step. The current step goes back to
// Inactive without its completed callback, and nothing the previous step did
// the first time is undone. It is a no-op on the first step or outside a run.
func (q *Sequence) GoToPreviousStep() {
	if q.status != domain.StatusStarted || q.index == 0 || q.index >= len(q.steps) {
		return
	}
	q.steps[q.index].markInactive()
	q.index--
	q.rt.logger.Debug("going back", "step", q.steps[q.index].name, "run_id", q.rt.runID)
	q.steps[q.index].Begin()
}

// Skip completes the current step.
func (q *Sequence) Skip() {
	if s := q.CurrentStep(); s != nil {
		s.Skip()
	}
}

// Reset returns the sequence and all its steps to Inactive.
func (q *Sequence) Reset() {
	q.rt.stop()
	for _, s := range q.steps {
		s.markInactive()
	}
	q.index = 0
	q.raise(domain.StatusInactive)
	q.rt.clear()
}

// CurrentStep returns the running step, or nil outside a run.
func (q *Sequence) CurrentStep() *Step {
	if q.status != domain.StatusStarted || q.index >= len(q.steps) {
		return nil
	}
	return q.steps[q.index]
}

// CurrentIndex returns the position of the current step.
func (q *Sequence) CurrentIndex() int { return q.index }

// Steps returns the steps in order.
func (q *Sequence) Steps() []*Step { return append([]*Step(nil), q.steps...) }

// Err returns the configuration error that ended the last run, if any.
func (q *Sequence) Err() error { return q.rt.reason.Err() }

// Reason returns why the last run ended.
func (q *Sequence) Reason() domain.EndReason { return q.rt.reason }

// RunID identifies the current run. It is empty before Begin and after Reset.
func (q *Sequence) RunID() string { return q.rt.runID }

// Audio returns the shared handle, or nil before the first Begin.
func (q *Sequence) Audio() ports.AudioHandle { return q.rt.audio }

// Loop returns the loop the sequence posts to.
func (q *Sequence) Loop() *Loop { return q.rt.loop }

// Snapshot captures the runtime state.
func (q *Sequence) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		RunID:        q.rt.runID,
		Sequence:     q.name,
		Kind:         q.kind,
		Status:       q.status,
		CurrentIndex: q.index,
		Steps:        states(q.steps),
		Reason:       q.rt.reason,
		UpdatedAt:    now(),
	}
	if s := q.CurrentStep(); s != nil {
		snap.CurrentStep = s.name
	}
	return snap
}

func states(steps []*Step) []domain.StepState {
	out := make([]domain.StepState, len(steps))
	for i, s := range steps {
		out[i] = s.state()
	}
	return out
}

func stepName(s *Step) string {
	if s == nil {
		return ""
	}
	return s.name
}
