package sequence

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Runner is what hosts drive: a Sequence or a BranchingSequence.
type Runner interface {
	Name() string
	Kind() domain.Kind
	Status() domain.Status

	Begin()
	Reset()
	Skip()
	CompleteStep(step *Step)

	CurrentStep() *Step
	Steps() []*Step
	Err() error
	Reason() domain.EndReason
	RunID() string
	Snapshot() domain.Snapshot

	Subscribe(l Listener) func()
	Watch(ctx context.Context) <-chan domain.StatusEvent

	Loop() *Loop
	Audio() ports.AudioHandle
}

// Rewinder is implemented by runners that can re-enter the previous step.
type Rewinder interface {
	GoToPreviousStep()
}

var (
	_ Runner   = (*Sequence)(nil)
	_ Runner   = (*BranchingSequence)(nil)
	_ Rewinder = (*Sequence)(nil)
	_ Parent   = (*Sequence)(nil)
	_ Parent   = (*BranchingSequence)(nil)
)

// SubscribeSteps registers l on every step of r and returns a function that
// removes all of them.
func SubscribeSteps(r Runner, l Listener) func() {
	steps := r.Steps()
	cancels := make([]func(), 0, len(steps))
	for _, s := range steps {
		cancels = append(cancels, s.Subscribe(l))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}
