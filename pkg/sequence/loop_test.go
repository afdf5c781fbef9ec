package sequence_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLoop_DrainRunsNestedPostsInOrder(t *testing.T) {
	loop := sequence.NewLoop()
	var order []int

	loop.Post(func() {
		order = append(order, 1)
		loop.Post(func() { order = append(order, 3) })
	})
	loop.Post(func() { order = append(order, 2) })

	assert.Equal(t, 2, loop.Pending())
	n := loop.Drain()

	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, loop.Pending())
	assert.Equal(t, 0, loop.Drain())
}

func TestLoop_RunUntilWakesOnPost(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := sequence.NewLoop()
	done := false

	go func() {
		time.Sleep(10 * time.Millisecond)
		loop.Post(func() { done = true })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, loop.RunUntil(ctx, func() bool { return done }))
}

func TestLoop_RunStopsWithContext(t *testing.T) {
	loop := sequence.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoop_Call(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := sequence.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan error, 1)
	go func() { stopped <- loop.Run(ctx) }()

	value := 0
	require.NoError(t, loop.Call(context.Background(), func() { value = 42 }))
	assert.Equal(t, 42, value)

	cancel()
	assert.ErrorIs(t, <-stopped, context.Canceled)

	callCtx, callCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer callCancel()
	err := loop.Call(callCtx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded, "nobody drives the loop anymore")
}
