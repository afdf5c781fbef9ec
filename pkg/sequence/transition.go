package sequence

import "github.com/aretw0/stepwise/pkg/condition"

// StepTransition is a guarded edge to Target.
type StepTransition struct {
	// Condition guards the edge. Nil is the default edge.
	Condition condition.Condition
	Target    *Step
	// Notify is a label reported to hooks when the edge is taken.
	Notify string
	// OnTaken runs when the edge is taken, before the target begins.
	OnTaken func()
}

// To is shorthand for a transition guarded by when.
func To(target *Step, when condition.Condition) *StepTransition {
	return &StepTransition{Condition: when, Target: target}
}

// Evaluate reports whether the edge can be taken.
func (t *StepTransition) Evaluate() bool {
	return condition.Evaluate(t.Condition)
}

// StepTransitionGroup holds the ordered outgoing edges of one step.
type StepTransitionGroup struct {
	From        *Step
	Transitions []*StepTransition
}

// From starts a group of edges leaving step.
func From(step *Step, transitions ...*StepTransition) *StepTransitionGroup {
	return &StepTransitionGroup{From: step, Transitions: transitions}
}
