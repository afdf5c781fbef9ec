package compiler_test

import (
	"testing"
	"time"

	"github.com/aretw0/stepwise/internal/compiler"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quizDefinition() *domain.Definition {
	return &domain.Definition{
		Name:  "quiz",
		Kind:  domain.KindBranching,
		Entry: "ask",
		Variables: []domain.VariableDef{
			{Name: "answer", Kind: domain.ValueInt, Default: 0},
		},
		Steps: []domain.StepDef{
			{ID: "ask", Content: "Pick 1 or 2", Transitions: []domain.TransitionDef{
				{To: "one", When: &domain.ConditionDef{Var: "answer", Op: domain.Equals, Value: 1}},
				{To: "two", When: &domain.ConditionDef{Var: "answer", Op: "==", Value: 2}, Notify: "picked_two"},
				{To: "other"},
			}},
			{ID: "one"},
			{ID: "two"},
			{ID: "other"},
		},
	}
}

func TestCompile_Branching(t *testing.T) {
	vars := memory.NewVariables()
	runner, err := compiler.Compile(quizDefinition(), vars)
	require.NoError(t, err)

	graph, ok := runner.(*sequence.BranchingSequence)
	require.True(t, ok)
	assert.Equal(t, "quiz", graph.Name())
	assert.Equal(t, "ask", graph.Entry().ID())
	assert.Equal(t, "Pick 1 or 2", graph.Entry().Content())
	require.Len(t, graph.Transitions(graph.Entry()), 3)
	assert.Equal(t, "picked_two", graph.Transitions(graph.Entry())[1].Notify)

	require.NoError(t, vars.SetInt("answer", 2))
	graph.Begin()
	graph.Skip()
	assert.Equal(t, "two", graph.CurrentStep().ID())
}

func TestCompile_FreshGraphPerCall(t *testing.T) {
	def := quizDefinition()
	vars := memory.NewVariables()

	first, err := compiler.Compile(def, vars)
	require.NoError(t, err)
	second, err := compiler.Compile(def, vars)
	require.NoError(t, err)

	first.Begin()
	assert.Equal(t, domain.StatusStarted, first.Status())
	assert.Equal(t, domain.StatusInactive, second.Status())
	assert.NotSame(t, first.Steps()[0], second.Steps()[0])
}

func TestCompile_Linear(t *testing.T) {
	pitch := 1.2
	def := &domain.Definition{
		Name:      "intro",
		Kind:      domain.KindLinear,
		BasePitch: 0.9,
		Steps: []domain.StepDef{
			{ID: "welcome", Audio: &domain.AudioDef{Clip: domain.Clip{Name: "hi.wav"}, Delay: time.Second, Pitch: &pitch}, AudioOnly: true},
			{ID: "bye", FinishEarly: true},
		},
	}

	runner, err := compiler.Compile(def, nil)
	require.NoError(t, err)

	seq, ok := runner.(*sequence.Sequence)
	require.True(t, ok)
	steps := seq.Steps()
	require.Len(t, steps, 2)

	clip, ok := steps[0].Clip()
	require.True(t, ok)
	assert.Equal(t, "hi.wav", clip.Name)
	assert.Equal(t, time.Second, steps[0].AudioDelay())
	assert.True(t, steps[0].IsAudioOnly())
	assert.True(t, steps[1].CanFinishBeforeStart())

	audio := memory.NewAudio()
	runner, err = compiler.Compile(def, nil, sequence.WithAudio(func() ports.AudioHandle { return audio }))
	require.NoError(t, err)
	runner.Begin()
	assert.Equal(t, 1.2, audio.Pitch())
	runner.Reset()
}

func TestCompile_SoftStructuralProblems(t *testing.T) {
	def := &domain.Definition{
		Name: "broken",
		Kind: domain.KindBranching,
		Steps: []domain.StepDef{
			{ID: "a", Transitions: []domain.TransitionDef{{To: "ghost"}}},
		},
	}

	runner, err := compiler.Compile(def, memory.NewVariables())
	require.NoError(t, err)
	runner.Begin()
	assert.ErrorIs(t, runner.Err(), domain.ErrMissingEntryStep)

	def.Entry = "a"
	runner, err = compiler.Compile(def, memory.NewVariables())
	require.NoError(t, err)
	runner.Begin()
	runner.Skip()
	assert.ErrorIs(t, runner.Err(), domain.ErrMissingTarget)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  *domain.Definition
		vars *memory.Variables
	}{
		{"nil definition", nil, nil},
		{"unknown kind", &domain.Definition{Name: "x", Kind: "tree"}, nil},
		{"duplicate step", &domain.Definition{Name: "x", Steps: []domain.StepDef{{ID: "a"}, {ID: "a"}}}, nil},
		{"missing step id", &domain.Definition{Name: "x", Steps: []domain.StepDef{{}}}, nil},
		{"ordered operator on bool", &domain.Definition{
			Name: "x", Kind: domain.KindBranching, Entry: "a",
			Steps: []domain.StepDef{{ID: "a", Transitions: []domain.TransitionDef{
				{To: "a", When: &domain.ConditionDef{Var: "flag", Op: domain.GreaterThan, Value: true}},
			}}},
		}, memory.NewVariables()},
		{"literal of the wrong kind", &domain.Definition{
			Name: "x", Kind: domain.KindBranching, Entry: "a",
			Variables: []domain.VariableDef{{Name: "n", Kind: domain.ValueInt}},
			Steps: []domain.StepDef{{ID: "a", Transitions: []domain.TransitionDef{
				{To: "a", When: &domain.ConditionDef{Var: "n", Value: "many"}},
			}}},
		}, memory.NewVariables()},
		{"no resolver", &domain.Definition{
			Name: "x", Kind: domain.KindBranching, Entry: "a",
			Steps: []domain.StepDef{{ID: "a", Transitions: []domain.TransitionDef{
				{To: "a", When: &domain.ConditionDef{Var: "n", Value: 1}},
			}}},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.vars != nil {
				_, err = compiler.Compile(tt.def, tt.vars)
			} else {
				_, err = compiler.Compile(tt.def, nil)
			}
			assert.Error(t, err)
		})
	}
}

func TestKindOf(t *testing.T) {
	def := quizDefinition()

	kind, err := compiler.KindOf(def, &domain.ConditionDef{Var: "answer", Value: "1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ValueInt, kind, "declared kind wins over the literal")

	kind, err = compiler.KindOf(def, &domain.ConditionDef{Var: "speed", Value: 1.5})
	require.NoError(t, err)
	assert.Equal(t, domain.ValueFloat, kind)

	_, err = compiler.KindOf(def, &domain.ConditionDef{Var: "x", Value: []int{1}})
	assert.ErrorIs(t, err, domain.ErrVariableKind)
}
