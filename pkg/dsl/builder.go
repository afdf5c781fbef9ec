package dsl

import (
	"fmt"

	"github.com/aretw0/stepwise/internal/validator"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
)

// Builder manages the definition construction.
type Builder struct {
	def   domain.Definition
	order []string
	steps map[string]*StepBuilder
}

// New creates a builder for a linear sequence.
func New(name string) *Builder {
	return &Builder{
		def:   domain.Definition{Name: name, Kind: domain.KindLinear},
		steps: make(map[string]*StepBuilder),
	}
}

// Branching turns the definition into a graph starting at entry.
func (b *Builder) Branching(entry string) *Builder {
	b.def.Kind = domain.KindBranching
	b.def.Entry = entry
	return b
}

// Describe sets the human readable description.
func (b *Builder) Describe(description string) *Builder {
	b.def.Description = description
	return b
}

// BasePitch sets the pitch restored after every step.
func (b *Builder) BasePitch(pitch float64) *Builder {
	b.def.BasePitch = pitch
	return b
}

// Var declares an external value conditions can read.
func (b *Builder) Var(name string, kind domain.ValueKind, initial any) *Builder {
	b.def.Variables = append(b.def.Variables, domain.VariableDef{Name: name, Kind: kind, Default: initial})
	return b
}

// Add creates a new step. Steps keep the order they were added in.
// If the step already exists, it returns the existing builder.
func (b *Builder) Add(id string) *StepBuilder {
	if sb, ok := b.steps[id]; ok {
		return sb
	}
	sb := &StepBuilder{step: domain.StepDef{ID: id}, builder: b}
	b.steps[id] = sb
	b.order = append(b.order, id)
	return sb
}

// Definition assembles and validates the definition.
func (b *Builder) Definition() (*domain.Definition, error) {
	def := b.def
	def.Variables = append([]domain.VariableDef(nil), b.def.Variables...)
	def.Steps = make([]domain.StepDef, 0, len(b.order))
	for _, id := range b.order {
		def.Steps = append(def.Steps, b.steps[id].Build())
	}

	if err := validator.Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// Build compiles the definition into a memory loader.
func (b *Builder) Build() (*memory.Loader, error) {
	def, err := b.Definition()
	if err != nil {
		return nil, err
	}

	loader, err := memory.NewLoader(*def)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}
