package tests

import (
	"errors"
	"testing"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// DefinitionLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.DefinitionLoader.
// expected maps definition names to the number of steps each should have.
func DefinitionLoaderContractTest(t *testing.T, loader ports.DefinitionLoader, expected map[string]int) {
	t.Helper()

	t.Run("Load_Success", func(t *testing.T) {
		for name, steps := range expected {
			def, err := loader.Load(name)
			if err != nil {
				t.Fatalf("unexpected error loading %s: %v", name, err)
			}
			if def.Name != name {
				t.Errorf("name mismatch: got %q, want %q", def.Name, name)
			}
			if len(def.Steps) != steps {
				t.Errorf("step count mismatch for %s: got %d, want %d", name, len(def.Steps), steps)
			}
			if def.Kind != domain.KindLinear && def.Kind != domain.KindBranching {
				t.Errorf("unexpected kind for %s: %q", name, def.Kind)
			}
		}
	})

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := loader.Load("non-existent-definition")
		if !errors.Is(err, domain.ErrDefinitionNotFound) {
			t.Errorf("expected ErrDefinitionNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		names, err := loader.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(names) != len(expected) {
			t.Errorf("expected %d definitions, got %d (%v)", len(expected), len(names), names)
		}
		for i := 1; i < len(names); i++ {
			if names[i-1] > names[i] {
				t.Errorf("List is not sorted: %v", names)
				break
			}
		}
	})
}
