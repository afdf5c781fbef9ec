package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Text(t *testing.T) {
	assert.Equal(t, "inactive", domain.StatusInactive.String())
	assert.Equal(t, "completed", domain.StatusCompleted.String())
	assert.Equal(t, "status(7)", domain.Status(7).String())

	data, err := json.Marshal(domain.StepState{ID: "a", Status: domain.StatusStarted})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","status":"started"}`, string(data))

	var s domain.StepState
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b","status":"completed"}`), &s))
	assert.Equal(t, domain.StatusCompleted, s.Status)

	err = json.Unmarshal([]byte(`{"status":"paused"}`), &s)
	assert.Error(t, err)
}

func TestEndReason_Err(t *testing.T) {
	assert.NoError(t, domain.ReasonFinished.Err())
	assert.NoError(t, domain.ReasonTerminal.Err())
	assert.ErrorIs(t, domain.ReasonMissingEntry.Err(), domain.ErrMissingEntryStep)
	assert.ErrorIs(t, domain.ReasonMissingTarget.Err(), domain.ErrMissingTarget)
	assert.ErrorIs(t, domain.ReasonDeadEnd.Err(), domain.ErrDeadEnd)
}
