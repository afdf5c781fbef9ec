package sequence_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestStream_SubscribeAndUnsubscribe(t *testing.T) {
	step := sequence.NewStep("a")
	seq := sequence.NewSequence("s", []*sequence.Step{step})

	var got []domain.Status
	unsubscribe := step.Subscribe(func(e domain.StatusEvent) {
		assert.Equal(t, "a", e.Node)
		assert.Equal(t, domain.KindStep, e.Kind)
		got = append(got, e.Status)
	})

	seq.Begin()
	step.CompleteStep()
	unsubscribe()
	seq.Reset()

	assert.Equal(t, []domain.Status{domain.StatusStarted, domain.StatusCompleted}, got)
}

func TestStream_Watch(t *testing.T) {
	defer goleak.VerifyNone(t)

	seq := sequence.NewSequence("s", []*sequence.Step{sequence.NewStep("a")})

	ctx, cancel := context.WithCancel(context.Background())
	events := seq.Watch(ctx)

	seq.Begin()
	seq.Skip()

	first := <-events
	second := <-events
	assert.Equal(t, domain.StatusStarted, first.Status)
	assert.Equal(t, domain.StatusCompleted, second.Status)
	assert.Equal(t, "s", second.Sequence)
	assert.NotEmpty(t, second.RunID)

	cancel()
	select {
	case _, ok := <-events:
		require.False(t, ok, "channel is closed once the context is done")
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel was not closed")
	}
}
