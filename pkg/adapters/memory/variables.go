package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Var is an in-process observable value. Safe for concurrent use.
type Var[T ports.Primitive] struct {
	name  string
	mu    sync.RWMutex
	value T
}

// NewVar creates a variable holding initial.
func NewVar[T ports.Primitive](name string, initial T) *Var[T] {
	return &Var[T]{name: name, value: initial}
}

func (v *Var[T]) Name() string { return v.name }

// Value returns the current value.
func (v *Var[T]) Value() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set replaces the current value.
func (v *Var[T]) Set(value T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = value
}

type entry struct {
	kind domain.ValueKind
	v    any
}

// Variables implements ports.VariableResolver and ports.VariableSetter in memory.
// Resolving an unknown name creates it with the zero value; using a name with a
// different kind than it was created with is an error.
type Variables struct {
	mu   sync.RWMutex
	vars map[string]entry
}

// NewVariables creates an empty registry.
func NewVariables() *Variables {
	return &Variables{vars: make(map[string]entry)}
}

// Declare creates (or resets) a variable from its definition, applying the default.
func (r *Variables) Declare(def domain.VariableDef) error {
	switch def.Kind {
	case domain.ValueBool:
		return declare[bool](r, def)
	case domain.ValueInt:
		return declare[int](r, def)
	case domain.ValueFloat:
		return declare[float64](r, def)
	case domain.ValueString:
		return declare[string](r, def)
	}
	return fmt.Errorf("variable %s: %w: %q", def.Name, domain.ErrVariableKind, def.Kind)
}

func declare[T ports.Primitive](r *Variables, def domain.VariableDef) error {
	v, err := lookup[T](r, def.Name, def.Kind)
	if err != nil {
		return err
	}
	if def.Default == nil {
		return nil
	}
	val, err := domain.CoerceValue(def.Kind, def.Default)
	if err != nil {
		return fmt.Errorf("variable %s default: %w", def.Name, err)
	}
	v.Set(val.(T))
	return nil
}

func lookup[T ports.Primitive](r *Variables, name string, kind domain.ValueKind) (*Var[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.vars[name]; ok {
		if e.kind != kind {
			return nil, fmt.Errorf("variable %s is %s, not %s: %w", name, e.kind, kind, domain.ErrVariableKind)
		}
		return e.v.(*Var[T]), nil
	}
	var zero T
	v := NewVar(name, zero)
	r.vars[name] = entry{kind: kind, v: v}
	return v, nil
}

func (r *Variables) Bool(name string) (ports.Observable[bool], error) {
	return lookup[bool](r, name, domain.ValueBool)
}

func (r *Variables) Int(name string) (ports.Observable[int], error) {
	return lookup[int](r, name, domain.ValueInt)
}

func (r *Variables) Float(name string) (ports.Observable[float64], error) {
	return lookup[float64](r, name, domain.ValueFloat)
}

func (r *Variables) String(name string) (ports.Observable[string], error) {
	return lookup[string](r, name, domain.ValueString)
}

// SetBool sets a boolean variable, creating it if needed.
func (r *Variables) SetBool(name string, value bool) error { return set(r, name, domain.ValueBool, value) }

// SetInt sets an integer variable, creating it if needed.
func (r *Variables) SetInt(name string, value int) error { return set(r, name, domain.ValueInt, value) }

// SetFloat sets a float variable, creating it if needed.
func (r *Variables) SetFloat(name string, value float64) error {
	return set(r, name, domain.ValueFloat, value)
}

// SetString sets a string variable, creating it if needed.
func (r *Variables) SetString(name string, value string) error {
	return set(r, name, domain.ValueString, value)
}

func set[T ports.Primitive](r *Variables, name string, kind domain.ValueKind, value T) error {
	v, err := lookup[T](r, name, kind)
	if err != nil {
		return err
	}
	v.Set(value)
	return nil
}

// SetRaw parses raw according to the variable's kind. The variable must exist.
func (r *Variables) SetRaw(name string, raw string) error {
	r.mu.RLock()
	e, ok := r.vars[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownVariable, name)
	}

	val, err := domain.ParseValue(e.kind, raw)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	switch v := e.v.(type) {
	case *Var[bool]:
		v.Set(val.(bool))
	case *Var[int]:
		v.Set(val.(int))
	case *Var[float64]:
		v.Set(val.(float64))
	case *Var[string]:
		v.Set(val.(string))
	}
	return nil
}

// Values returns the current value of every variable.
func (r *Variables) Values() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]any, len(r.vars))
	for name, e := range r.vars {
		switch v := e.v.(type) {
		case *Var[bool]:
			out[name] = v.Value()
		case *Var[int]:
			out[name] = v.Value()
		case *Var[float64]:
			out[name] = v.Value()
		case *Var[string]:
			out[name] = v.Value()
		}
	}
	return out
}

// Names returns the sorted variable names.
func (r *Variables) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.vars))
	for name := range r.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
