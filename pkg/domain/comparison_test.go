package domain_test

import (
	"testing"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComparison(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Comparison
	}{
		{"", domain.Equals},
		{"equals", domain.Equals},
		{"==", domain.Equals},
		{"NE", domain.NotEquals},
		{">", domain.GreaterThan},
		{"less_than", domain.LessThan},
		{" >= ", domain.GreaterOrEqual},
		{"lte", domain.LessOrEqual},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseComparison(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := domain.ParseComparison("approximately")
	assert.ErrorIs(t, err, domain.ErrUnsupportedComparison)
}

func TestValueKind_Supports(t *testing.T) {
	all := []domain.Comparison{
		domain.Equals, domain.NotEquals, domain.GreaterThan,
		domain.LessThan, domain.GreaterOrEqual, domain.LessOrEqual,
	}
	for _, op := range all {
		assert.True(t, domain.ValueInt.Supports(op), "int %s", op)
		assert.True(t, domain.ValueFloat.Supports(op), "float %s", op)
		equality := op == domain.Equals || op == domain.NotEquals
		assert.Equal(t, equality, domain.ValueBool.Supports(op), "bool %s", op)
		assert.Equal(t, equality, domain.ValueString.Supports(op), "string %s", op)
	}
	assert.False(t, domain.ValueInt.Supports("between"))
	assert.False(t, domain.ValueKind("complex").Supports(domain.Equals))
}

func TestComparison_Symbol(t *testing.T) {
	assert.Equal(t, ">=", domain.GreaterOrEqual.Symbol())
	assert.Equal(t, "between", domain.Comparison("between").Symbol())
	assert.True(t, domain.LessThan.Ordered())
	assert.False(t, domain.NotEquals.Ordered())
}
