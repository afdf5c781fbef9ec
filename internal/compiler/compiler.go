package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/stepwise/pkg/condition"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/sequence"
)

// Declarer is implemented by resolvers that accept variable declarations
// (kind and default) before conditions are bound.
type Declarer interface {
	Declare(def domain.VariableDef) error
}

// Compile builds a fresh runtime graph from def. Every call returns new steps,
// so one definition can back any number of concurrent runs.
//
// Structural problems the engine handles at runtime (no entry step, a
// transition whose target is missing) are compiled as such and surface as soft
// run failures. Conditions that cannot be bound are compile errors.
func Compile(def *domain.Definition, vars ports.VariableResolver, opts ...sequence.Option) (sequence.Runner, error) {
	if def == nil {
		return nil, fmt.Errorf("definition is nil")
	}

	if d, ok := vars.(Declarer); ok {
		for _, v := range def.Variables {
			if err := d.Declare(v); err != nil {
				return nil, fmt.Errorf("failed to declare variable %s: %w", v.Name, err)
			}
		}
	}

	steps := make([]*sequence.Step, 0, len(def.Steps))
	byID := make(map[string]*sequence.Step, len(def.Steps))
	for i := range def.Steps {
		sd := &def.Steps[i]
		if sd.ID == "" {
			return nil, fmt.Errorf("step %d has no id", i)
		}
		if _, dup := byID[sd.ID]; dup {
			return nil, fmt.Errorf("duplicate step id %q", sd.ID)
		}
		s := sequence.NewStep(sd.ID, stepOptions(sd)...)
		steps = append(steps, s)
		byID[sd.ID] = s
	}

	if def.BasePitch > 0 {
		opts = append([]sequence.Option{sequence.WithBasePitch(def.BasePitch)}, opts...)
	}

	switch def.Kind {
	case domain.KindLinear, "":
		return sequence.NewSequence(def.Name, steps, opts...), nil
	case domain.KindBranching:
		groups, err := compileTransitions(def, byID, vars)
		if err != nil {
			return nil, err
		}
		return sequence.NewBranchingSequence(def.Name, steps, byID[def.Entry], groups, opts...), nil
	}
	return nil, fmt.Errorf("unknown sequence kind %q", def.Kind)
}

func stepOptions(sd *domain.StepDef) []sequence.StepOption {
	var opts []sequence.StepOption
	if sd.Content != "" {
		opts = append(opts, sequence.WithContent(sd.Content))
	}
	if a := sd.Audio; a != nil {
		if a.Clip.Name != "" {
			opts = append(opts, sequence.WithClip(a.Clip))
		}
		if a.Delay > 0 {
			opts = append(opts, sequence.WithAudioDelay(a.Delay))
		}
		if a.Pitch != nil {
			opts = append(opts, sequence.WithPitch(*a.Pitch))
		}
	}
	if sd.AudioOnly {
		opts = append(opts, sequence.AudioOnly())
	}
	if sd.FinishEarly {
		opts = append(opts, sequence.FinishBeforeStart())
	}
	return opts
}

func compileTransitions(def *domain.Definition, byID map[string]*sequence.Step, vars ports.VariableResolver) ([]*sequence.StepTransitionGroup, error) {
	var groups []*sequence.StepTransitionGroup
	for i := range def.Steps {
		sd := &def.Steps[i]
		if len(sd.Transitions) == 0 {
			continue
		}
		group := &sequence.StepTransitionGroup{From: byID[sd.ID]}
		for j, td := range sd.Transitions {
			cond, err := Condition(def, td.When, vars)
			if err != nil {
				return nil, fmt.Errorf("step %s transition %d: %w", sd.ID, j, err)
			}
			group.Transitions = append(group.Transitions, &sequence.StepTransition{
				Condition: cond,
				Target:    byID[td.To],
				Notify:    td.Notify,
			})
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Condition binds cd to its variable. A nil cd is the default edge.
// The kind comes from the variable declaration or, when undeclared, from the
// literal's type.
func Condition(def *domain.Definition, cd *domain.ConditionDef, vars ports.VariableResolver) (condition.Condition, error) {
	if cd == nil {
		return nil, nil
	}
	if cd.Var == "" {
		return nil, fmt.Errorf("condition has no variable")
	}
	if vars == nil {
		return nil, fmt.Errorf("condition on %s needs a variable resolver", cd.Var)
	}

	op, err := domain.ParseComparison(string(cd.Op))
	if err != nil {
		return nil, err
	}

	kind, err := KindOf(def, cd)
	if err != nil {
		return nil, err
	}
	target, err := domain.CoerceValue(kind, cd.Value)
	if err != nil {
		return nil, fmt.Errorf("condition on %s: %w", cd.Var, err)
	}

	switch kind {
	case domain.ValueBool:
		src, err := vars.Bool(cd.Var)
		if err != nil {
			return nil, err
		}
		return condition.NewBool(src, op, target.(bool))
	case domain.ValueInt:
		src, err := vars.Int(cd.Var)
		if err != nil {
			return nil, err
		}
		return condition.NewInt(src, op, target.(int))
	case domain.ValueFloat:
		src, err := vars.Float(cd.Var)
		if err != nil {
			return nil, err
		}
		return condition.NewFloat(src, op, target.(float64))
	default:
		src, err := vars.String(cd.Var)
		if err != nil {
			return nil, err
		}
		return condition.NewString(src, op, target.(string))
	}
}

// KindOf returns the value kind a condition compares.
func KindOf(def *domain.Definition, cd *domain.ConditionDef) (domain.ValueKind, error) {
	if def != nil {
		if v, ok := def.Variable(cd.Var); ok {
			return domain.ParseValueKind(string(v.Kind))
		}
	}
	switch v := cd.Value.(type) {
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return domain.ValueInt, nil
		}
		return domain.ValueFloat, nil
	case bool:
		return domain.ValueBool, nil
	case int, int64, uint64:
		return domain.ValueInt, nil
	case float64:
		return domain.ValueFloat, nil
	case string:
		return domain.ValueString, nil
	}
	return "", fmt.Errorf("%w: cannot infer kind of %s from %v (%T)", domain.ErrVariableKind, cd.Var, cd.Value, cd.Value)
}
