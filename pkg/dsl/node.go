package dsl

import (
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
)

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	step    domain.StepDef
	builder *Builder
}

// Content sets the markdown shown while the step runs.
func (s *StepBuilder) Content(content string) *StepBuilder {
	s.step.Content = content
	return s
}

// Audio attaches a clip played when the step begins.
func (s *StepBuilder) Audio(clip string, duration time.Duration) *StepBuilder {
	s.audio().Clip = domain.Clip{Name: clip, Duration: duration}
	return s
}

// Delay waits before playing the clip.
func (s *StepBuilder) Delay(d time.Duration) *StepBuilder {
	s.audio().Delay = d
	return s
}

// Pitch overrides the audio pitch while the step runs.
func (s *StepBuilder) Pitch(pitch float64) *StepBuilder {
	s.audio().Pitch = &pitch
	return s
}

func (s *StepBuilder) audio() *domain.AudioDef {
	if s.step.Audio == nil {
		s.step.Audio = &domain.AudioDef{}
	}
	return s.step.Audio
}

// AudioOnly completes the step when its clip ends.
func (s *StepBuilder) AudioOnly() *StepBuilder {
	s.step.AudioOnly = true
	return s
}

// FinishEarly lets the step be completed before it begins.
func (s *StepBuilder) FinishEarly() *StepBuilder {
	s.step.FinishEarly = true
	return s
}

// Go adds an unconditional (default) transition to the target step.
func (s *StepBuilder) Go(target string) *StepBuilder {
	s.step.Transitions = append(s.step.Transitions, domain.TransitionDef{To: target})
	return s
}

// When adds a transition to target taken when variable op value holds.
func (s *StepBuilder) When(variable string, op domain.Comparison, value any, target string) *StepBuilder {
	s.step.Transitions = append(s.step.Transitions, domain.TransitionDef{
		To:   target,
		When: &domain.ConditionDef{Var: variable, Op: op, Value: value},
	})
	return s
}

// Notify labels the last added transition. The label is reported to hooks when
// the transition is taken.
func (s *StepBuilder) Notify(label string) *StepBuilder {
	if n := len(s.step.Transitions); n > 0 {
		s.step.Transitions[n-1].Notify = label
	}
	return s
}

// Terminal removes every outgoing transition.
func (s *StepBuilder) Terminal() *StepBuilder {
	s.step.Transitions = nil
	return s
}

// Then returns to the definition builder.
func (s *StepBuilder) Then() *Builder {
	return s.builder
}

// Build returns the underlying step definition.
func (s *StepBuilder) Build() domain.StepDef {
	step := s.step
	step.Transitions = append([]domain.TransitionDef(nil), s.step.Transitions...)
	if s.step.Audio != nil {
		audio := *s.step.Audio
		step.Audio = &audio
	}
	return step
}
