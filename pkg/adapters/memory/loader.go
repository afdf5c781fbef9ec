package memory

import (
	"fmt"
	"sort"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Loader implements ports.DefinitionLoader using an in-memory map.
type Loader struct {
	defs map[string]domain.Definition
}

// NewLoader creates a Loader holding the given definitions, keyed by name.
func NewLoader(defs ...domain.Definition) (*Loader, error) {
	l := &Loader{defs: make(map[string]domain.Definition)}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("definition missing name")
		}
		if _, dup := l.defs[d.Name]; dup {
			return nil, fmt.Errorf("duplicate definition %s", d.Name)
		}
		l.defs[d.Name] = d
	}
	return l, nil
}

// Load returns a copy of the named definition.
func (l *Loader) Load(name string) (*domain.Definition, error) {
	d, ok := l.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, name)
	}
	d.Steps = append([]domain.StepDef(nil), d.Steps...)
	d.Variables = append([]domain.VariableDef(nil), d.Variables...)
	return &d, nil
}

// List returns all definition names.
func (l *Loader) List() ([]string, error) {
	keys := make([]string, 0, len(l.defs))
	for k := range l.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
