package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(issues []Issue, severity Severity) []string {
	var out []string
	for _, i := range issues {
		if i.Severity == severity {
			out = append(out, i.String())
		}
	}
	return out
}

func TestValidate_ValidGraph(t *testing.T) {
	def := &domain.Definition{
		Name:      "quiz",
		Kind:      domain.KindBranching,
		Entry:     "start",
		Variables: []domain.VariableDef{{Name: "score", Kind: domain.ValueInt, Default: 0}},
		Steps: []domain.StepDef{
			{ID: "start", Transitions: []domain.TransitionDef{
				{To: "pass", When: &domain.ConditionDef{Var: "score", Op: ">=", Value: 10}},
				{To: "fail"},
			}},
			{ID: "pass"},
			{ID: "fail"},
		},
	}

	assert.NoError(t, Validate(def))
	assert.Empty(t, Check(def))
}

func TestValidate_BrokenGraph(t *testing.T) {
	def := &domain.Definition{
		Name: "broken",
		Kind: domain.KindBranching,
		Steps: []domain.StepDef{
			{ID: "a", Transitions: []domain.TransitionDef{
				{To: "ghost_node"},
				{To: ""},
				{To: "a", When: &domain.ConditionDef{Var: "ready", Op: ">", Value: true}},
			}},
			{ID: "a"},
		},
	}

	err := Validate(def)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "broken", verr.Definition)

	text := err.Error()
	for _, want := range []string{
		"no entry step",
		"duplicate step id",
		"unknown step 'ghost_node'",
		"transition 1 has no target",
		"bool does not support >",
	} {
		assert.True(t, strings.Contains(text, want), "missing %q in:\n%s", want, text)
	}
}

func TestCheck_Warnings(t *testing.T) {
	def := &domain.Definition{
		Name:  "g",
		Kind:  domain.KindBranching,
		Entry: "a",
		Steps: []domain.StepDef{
			{ID: "a", AudioOnly: true, Transitions: []domain.TransitionDef{
				{To: "b"},
				{To: "c", When: &domain.ConditionDef{Var: "n", Value: 1}},
			}},
			{ID: "b"},
			{ID: "c"},
			{ID: "island"},
		},
	}

	assert.NoError(t, Validate(def), "warnings do not fail validation")
	warnings := messages(Check(def), SeverityWarning)
	assert.Contains(t, warnings, "warning: step 'a': default transition 0 shadows the 1 transitions after it")
	assert.Contains(t, warnings, "warning: step 'island': step is unreachable from the entry step")
	assert.Contains(t, warnings, "warning: step 'a': audio-only step without clip completes immediately")
}

func TestCheck_LinearAndVariables(t *testing.T) {
	negative := -1.0
	def := &domain.Definition{
		Name: "intro",
		Kind: domain.KindLinear,
		Variables: []domain.VariableDef{
			{Name: "n", Kind: "int", Default: "lots"},
			{Name: "n", Kind: "int"},
			{Name: "z", Kind: "complex"},
		},
		Steps: []domain.StepDef{
			{ID: "a", Transitions: []domain.TransitionDef{{To: "a"}}},
			{ID: "b", Audio: &domain.AudioDef{Clip: domain.Clip{Name: "x.wav"}, Delay: -1, Pitch: &negative}},
		},
	}

	issues := Check(def)
	errs := messages(issues, SeverityError)
	assert.Len(t, errs, 5)
	assert.Contains(t, messages(issues, SeverityWarning), "warning: step 'a': transitions are ignored in linear sequences")
}

func TestCheck_UnknownKind(t *testing.T) {
	errs := messages(Check(&domain.Definition{Kind: "tree"}), SeverityError)
	assert.Len(t, errs, 2)
}
