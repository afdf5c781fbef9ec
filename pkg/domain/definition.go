package domain

import "time"

// Clip is a handle to an audio cue. Duration is informational for real audio engines
// and drives playback length for simulated ones.
type Clip struct {
	Name     string        `json:"name" yaml:"name" mapstructure:"name"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty" mapstructure:"duration"`
}

// Definition is the immutable, design-time description of a flow.
// It is compiled into fresh runtime graphs, one per run.
type Definition struct {
	Name        string        `json:"name" yaml:"name" mapstructure:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Kind        Kind          `json:"kind" yaml:"kind" mapstructure:"kind"`
	Entry       string        `json:"entry,omitempty" yaml:"entry,omitempty" mapstructure:"entry"`
	BasePitch   float64       `json:"base_pitch,omitempty" yaml:"base_pitch,omitempty" mapstructure:"base_pitch"`
	Variables   []VariableDef `json:"variables,omitempty" yaml:"variables,omitempty" mapstructure:"variables"`
	Steps       []StepDef     `json:"steps" yaml:"steps" mapstructure:"steps"`

	// Source is the file the definition was loaded from, if any.
	Source string `json:"-" yaml:"-" mapstructure:"-"`
}

// VariableDef declares an external observable value and its kind.
type VariableDef struct {
	Name    string    `json:"name" yaml:"name" mapstructure:"name"`
	Kind    ValueKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Default any       `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
}

// StepDef describes one step. Transitions are only meaningful in branching flows.
type StepDef struct {
	ID          string          `json:"id" yaml:"id" mapstructure:"id"`
	Content     string          `json:"content,omitempty" yaml:"content,omitempty" mapstructure:"content"`
	Audio       *AudioDef       `json:"audio,omitempty" yaml:"audio,omitempty" mapstructure:"audio"`
	AudioOnly   bool            `json:"audio_only,omitempty" yaml:"audio_only,omitempty" mapstructure:"audio_only"`
	FinishEarly bool            `json:"finish_early,omitempty" yaml:"finish_early,omitempty" mapstructure:"finish_early"`
	Transitions []TransitionDef `json:"transitions,omitempty" yaml:"transitions,omitempty" mapstructure:"transitions"`
}

// AudioDef is the audio cue attached to a step.
type AudioDef struct {
	Clip  Clip          `json:"clip" yaml:"clip" mapstructure:"clip"`
	Delay time.Duration `json:"delay,omitempty" yaml:"delay,omitempty" mapstructure:"delay"`
	Pitch *float64      `json:"pitch,omitempty" yaml:"pitch,omitempty" mapstructure:"pitch"`
}

// TransitionDef is a guarded edge. A nil When makes it the default edge.
type TransitionDef struct {
	To     string        `json:"to" yaml:"to" mapstructure:"to"`
	When   *ConditionDef `json:"when,omitempty" yaml:"when,omitempty" mapstructure:"when"`
	Notify string        `json:"notify,omitempty" yaml:"notify,omitempty" mapstructure:"notify"`
}

// ConditionDef binds one variable to a comparison against a literal.
type ConditionDef struct {
	Var   string     `json:"var" yaml:"var" mapstructure:"var"`
	Op    Comparison `json:"op,omitempty" yaml:"op,omitempty" mapstructure:"op"`
	Value any        `json:"value" yaml:"value" mapstructure:"value"`
}

// Step returns the step definition with the given ID.
func (d *Definition) Step(id string) (*StepDef, bool) {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return &d.Steps[i], true
		}
	}
	return nil, false
}

// Variable returns the variable declaration with the given name.
func (d *Definition) Variable(name string) (*VariableDef, bool) {
	for i := range d.Variables {
		if d.Variables[i].Name == name {
			return &d.Variables[i], true
		}
	}
	return nil, false
}
