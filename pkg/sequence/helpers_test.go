package sequence_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/sequence"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// runUntilDone drives the loop until r ends.
func runUntilDone(t *testing.T, r sequence.Runner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.Loop().RunUntil(ctx, func() bool { return r.Status() == domain.StatusCompleted })
	require.NoError(t, err, "run did not complete")
}

// requireSameState fails when two snapshots differ in anything but run timing.
func requireSameState(t *testing.T, want, got domain.Snapshot) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(domain.Snapshot{}, "UpdatedAt")); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func statusesOf(steps []*sequence.Step) []domain.Status {
	out := make([]domain.Status, len(steps))
	for i, s := range steps {
		out[i] = s.Status()
	}
	return out
}

// countingInt is an observable that records how often it was read.
type countingInt struct {
	value int
	reads int
}

func (c *countingInt) Value() int {
	c.reads++
	return c.value
}
