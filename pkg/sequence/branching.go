package sequence

import (
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// BranchingSequence runs a graph of steps. When the current step completes, the
// first of its transitions whose condition holds selects the next step.
type BranchingSequence struct {
	node
	entry   *Step
	steps   []*Step
	groups  []*StepTransitionGroup
	owned   []*Step
	cache   map[*Step][]*StepTransition
	current *Step
}

// NewBranchingSequence creates an inactive graph. The steps it owns are steps
// plus the entry, every group source and every transition target.
func NewBranchingSequence(name string, steps []*Step, entry *Step, groups []*StepTransitionGroup, opts ...Option) *BranchingSequence {
	b := &BranchingSequence{
		node:   node{name: name, kind: domain.KindBranching, rt: newShared(name, opts)},
		entry:  entry,
		steps:  append([]*Step(nil), steps...),
		groups: append([]*StepTransitionGroup(nil), groups...),
	}
	b.rebuild()
	return b
}

func (b *BranchingSequence) runtime() *shared { return b.rt }

// SetEntry changes the entry step used by the next Begin.
func (b *BranchingSequence) SetEntry(step *Step) {
	b.entry = step
	b.rebuild()
}

// SetTransitions replaces the transition groups. They take effect on the next Begin.
func (b *BranchingSequence) SetTransitions(groups ...*StepTransitionGroup) {
	b.groups = append([]*StepTransitionGroup(nil), groups...)
}

// AddTransitionGroup appends a group. It takes effect on the next Begin.
func (b *BranchingSequence) AddTransitionGroup(group *StepTransitionGroup) {
	b.groups = append(b.groups, group)
}

// Begin starts a new run at the entry step. Without an entry step the run ends
// immediately.
func (b *BranchingSequence) Begin() {
	b.rt.start()
	b.current = nil
	b.raise(domain.StatusStarted)

	previous := b.owned
	b.rebuild()
	owned := make(map[*Step]bool, len(b.owned))
	for _, s := range b.owned {
		owned[s] = true
		s.Initialize(b)
	}
	for _, s := range previous {
		if !owned[s] {
			s.Initialize(nil)
		}
	}
	b.rt.logger.Info("sequence started", "run_id", b.rt.runID, "steps", len(b.owned))

	if b.entry == nil {
		b.end(domain.ReasonMissingEntry, "")
		return
	}
	b.current = b.entry
	b.entry.Begin()
}

// CompleteStep moves on from step if it is the current one.
func (b *BranchingSequence) CompleteStep(step *Step) {
	if b.status != domain.StatusStarted || step == nil || step != b.current {
		b.rt.logger.Debug("ignoring stale completion", "step", stepName(step), "current", stepName(b.current))
		return
	}

	transitions := b.cache[step]
	if len(transitions) == 0 {
		b.end(domain.ReasonTerminal, step.name)
		return
	}

	for i, t := range transitions {
		if !t.Evaluate() {
			continue
		}
		if t.Target == nil {
			b.end(domain.ReasonMissingTarget, step.name)
			return
		}
		b.rt.logger.Debug("taking transition", "from", step.name, "to", t.Target.name, "index", i, "run_id", b.rt.runID)
		if t.OnTaken != nil {
			t.OnTaken()
		}
		if b.rt.hooks.OnTransition != nil {
			b.rt.hooks.OnTransition(b.rt.hookCtx(), &domain.TransitionEvent{
				EventBase: b.rt.eventBase(domain.EventTransition),
				From:      step.name,
				To:        t.Target.name,
				Index:     i,
				Notify:    t.Notify,
			})
		}
		b.current = t.Target
		t.Target.Begin()
		return
	}
	b.end(domain.ReasonDeadEnd, step.name)
}

// Skip completes the current step.
func (b *BranchingSequence) Skip() {
	if s := b.CurrentStep(); s != nil {
		s.Skip()
	}
}

// Reset returns the graph and all its steps to Inactive.
func (b *BranchingSequence) Reset() {
	b.rt.stop()
	for _, s := range b.owned {
		s.markInactive()
	}
	b.current = nil
	b.raise(domain.StatusInactive)
	b.rt.clear()
}

// rebuild recomputes the owned steps and the Step -> transitions cache.
// Groups sharing a source are merged in order.
func (b *BranchingSequence) rebuild() {
	seen := make(map[*Step]bool)
	owned := make([]*Step, 0, len(b.steps))
	own := func(s *Step) {
		if s != nil && !seen[s] {
			seen[s] = true
			owned = append(owned, s)
		}
	}

	for _, s := range b.steps {
		own(s)
	}
	own(b.entry)

	cache := make(map[*Step][]*StepTransition, len(b.groups))
	for _, g := range b.groups {
		if g == nil || g.From == nil {
			b.rt.logger.Warn("ignoring transition group without source step")
			continue
		}
		own(g.From)
		if _, dup := cache[g.From]; dup {
			b.rt.logger.Warn("merging duplicate transition group", "step", g.From.name)
		}
		for _, t := range g.Transitions {
			if t == nil {
				continue
			}
			cache[g.From] = append(cache[g.From], t)
			own(t.Target)
		}
		if _, ok := cache[g.From]; !ok {
			cache[g.From] = nil
		}
	}

	b.owned = owned
	b.cache = cache
}

// Transitions returns the cached outgoing edges of step.
func (b *BranchingSequence) Transitions(step *Step) []*StepTransition {
	return append([]*StepTransition(nil), b.cache[step]...)
}

// Entry returns the entry step.
func (b *BranchingSequence) Entry() *Step { return b.entry }

// CurrentStep returns the running step, or nil outside a run.
func (b *BranchingSequence) CurrentStep() *Step {
	if b.status != domain.StatusStarted {
		return nil
	}
	return b.current
}

// LastStep returns the step the run is at or ended on.
func (b *BranchingSequence) LastStep() *Step { return b.current }

// CurrentIndex returns the position of the current step in Steps, or -1.
func (b *BranchingSequence) CurrentIndex() int {
	for i, s := range b.owned {
		if s == b.current {
			return i
		}
	}
	return -1
}

// Steps returns every owned step.
func (b *BranchingSequence) Steps() []*Step { return append([]*Step(nil), b.owned...) }

// Step returns the owned step with the given ID.
func (b *BranchingSequence) Step(id string) *Step {
	for _, s := range b.owned {
		if s.name == id {
			return s
		}
	}
	return nil
}

// Err returns the configuration error that ended the last run, if any.
func (b *BranchingSequence) Err() error { return b.rt.reason.Err() }

// Reason returns why the last run ended.
func (b *BranchingSequence) Reason() domain.EndReason { return b.rt.reason }

// RunID identifies the current run. It is empty before Begin and after Reset.
func (b *BranchingSequence) RunID() string { return b.rt.runID }

// Audio returns the shared handle, or nil before the first Begin.
func (b *BranchingSequence) Audio() ports.AudioHandle { return b.rt.audio }

// Loop returns the loop the sequence posts to.
func (b *BranchingSequence) Loop() *Loop { return b.rt.loop }

// Snapshot captures the runtime state.
func (b *BranchingSequence) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		RunID:        b.rt.runID,
		Sequence:     b.name,
		Kind:         b.kind,
		Status:       b.status,
		CurrentStep:  stepName(b.current),
		CurrentIndex: b.CurrentIndex(),
		Steps:        states(b.owned),
		Reason:       b.rt.reason,
		UpdatedAt:    now(),
	}
}
