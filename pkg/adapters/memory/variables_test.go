package memory_test

import (
	"testing"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariables_ResolveAndSet(t *testing.T) {
	vars := memory.NewVariables()

	score, err := vars.Int("score")
	require.NoError(t, err)
	assert.Equal(t, 0, score.Value(), "unknown variables start at the zero value")

	require.NoError(t, vars.SetInt("score", 7))
	assert.Equal(t, 7, score.Value(), "observable reads the current value")

	require.NoError(t, vars.SetRaw("score", " 12 "))
	assert.Equal(t, 12, score.Value())

	again, err := vars.Int("score")
	require.NoError(t, err)
	assert.Same(t, score, again)
}

func TestVariables_KindMismatch(t *testing.T) {
	vars := memory.NewVariables()
	require.NoError(t, vars.SetBool("ready", true))

	_, err := vars.Int("ready")
	assert.ErrorIs(t, err, domain.ErrVariableKind)

	err = vars.SetString("ready", "yes")
	assert.ErrorIs(t, err, domain.ErrVariableKind)
}

func TestVariables_SetRaw(t *testing.T) {
	vars := memory.NewVariables()

	err := vars.SetRaw("missing", "1")
	assert.ErrorIs(t, err, domain.ErrUnknownVariable)

	require.NoError(t, vars.SetFloat("speed", 1.5))
	assert.Error(t, vars.SetRaw("speed", "fast"))
	require.NoError(t, vars.SetRaw("speed", "2.25"))

	require.NoError(t, vars.SetString("name", ""))
	require.NoError(t, vars.SetRaw("name", "ada"))

	assert.Equal(t, map[string]any{"speed": 2.25, "name": "ada"}, vars.Values())
	assert.Equal(t, []string{"name", "speed"}, vars.Names())
}

func TestVariables_Declare(t *testing.T) {
	vars := memory.NewVariables()

	require.NoError(t, vars.Declare(domain.VariableDef{Name: "level", Kind: domain.ValueInt, Default: 3}))
	require.NoError(t, vars.Declare(domain.VariableDef{Name: "ratio", Kind: domain.ValueFloat, Default: 2}))
	require.NoError(t, vars.Declare(domain.VariableDef{Name: "done", Kind: domain.ValueBool, Default: "true"}))
	require.NoError(t, vars.Declare(domain.VariableDef{Name: "mode", Kind: domain.ValueString}))

	assert.Equal(t, map[string]any{"level": 3, "ratio": 2.0, "done": true, "mode": ""}, vars.Values())

	err := vars.Declare(domain.VariableDef{Name: "bad", Kind: "complex"})
	assert.ErrorIs(t, err, domain.ErrVariableKind)

	err = vars.Declare(domain.VariableDef{Name: "level2", Kind: domain.ValueInt, Default: 1.5})
	assert.ErrorIs(t, err, domain.ErrVariableKind)
}
