package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	v, err := domain.ParseValue(domain.ValueBool, "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = domain.ParseValue(domain.ValueInt, " 42 ")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = domain.ParseValue(domain.ValueFloat, "0.5")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	v, err = domain.ParseValue(domain.ValueString, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	_, err = domain.ParseValue(domain.ValueInt, "4.2")
	assert.Error(t, err)

	_, err = domain.ParseValue("complex", "1")
	assert.ErrorIs(t, err, domain.ErrVariableKind)
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name string
		kind domain.ValueKind
		in   any
		want any
	}{
		{"int from float literal", domain.ValueInt, 3.0, 3},
		{"int from int64", domain.ValueInt, int64(9), 9},
		{"int from json number", domain.ValueInt, json.Number("12"), 12},
		{"float from int", domain.ValueFloat, 2, 2.0},
		{"bool from string", domain.ValueBool, "false", false},
		{"string from number", domain.ValueString, 7, "7"},
		{"string from nil", domain.ValueString, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.CoerceValue(tt.kind, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := domain.CoerceValue(domain.ValueInt, 1.5)
	assert.ErrorIs(t, err, domain.ErrVariableKind)

	_, err = domain.CoerceValue(domain.ValueBool, 1)
	assert.ErrorIs(t, err, domain.ErrVariableKind)
}
