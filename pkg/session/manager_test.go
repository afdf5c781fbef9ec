package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/dsl"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func loader(t *testing.T) ports.DefinitionLoader {
	t.Helper()

	tour := dsl.New("tour")
	tour.Add("a")
	tour.Add("b")
	tour.Add("c")
	tourDef, err := tour.Definition()
	require.NoError(t, err)

	quiz := dsl.New("quiz").Branching("ask").Var("answer", domain.ValueInt, 0)
	quiz.Add("ask").
		When("answer", domain.Equals, 1, "right").
		Go("wrong")
	quiz.Add("right")
	quiz.Add("wrong")
	quizDef, err := quiz.Definition()
	require.NoError(t, err)

	l, err := memory.NewLoader(*tourDef, *quizDef)
	require.NoError(t, err)
	return l
}

func TestManager_LinearRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := memory.NewStore()
	m := session.NewManager(loader(t), session.WithStore(store))
	defer m.Shutdown()
	ctx := context.Background()

	run, err := m.Create(ctx, "tour", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID())
	assert.Equal(t, "tour", run.Definition())

	snap, err := m.Begin(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStarted, snap.Status)
	assert.Equal(t, "a", snap.CurrentStep)
	assert.Equal(t, "run-1", snap.RunID)

	snap, err = m.Complete(ctx, "run-1", "")
	require.NoError(t, err)
	assert.Equal(t, "b", snap.CurrentStep)

	// A completion aimed at a step that is no longer current is ignored.
	snap, err = m.Complete(ctx, "run-1", "a")
	require.NoError(t, err)
	assert.Equal(t, "b", snap.CurrentStep)

	snap, err = m.Previous(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "a", snap.CurrentStep)

	for i := 0; i < 3; i++ {
		snap, err = m.Complete(ctx, "run-1", "")
		require.NoError(t, err)
	}
	assert.True(t, snap.Terminated())
	assert.Equal(t, domain.ReasonFinished, snap.Reason)

	stored, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestManager_BranchingRunWithVariables(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := session.NewManager(loader(t))
	defer m.Shutdown()
	ctx := context.Background()

	_, err := m.Create(ctx, "quiz", "q")
	require.NoError(t, err)
	_, err = m.Begin(ctx, "q")
	require.NoError(t, err)

	require.NoError(t, m.SetVariable(ctx, "q", "answer", "1"))
	vals, err := m.Variables("q")
	require.NoError(t, err)
	assert.Equal(t, 1, vals["answer"])

	assert.ErrorIs(t, m.SetVariable(ctx, "q", "missing", "1"), domain.ErrUnknownVariable)

	snap, err := m.Complete(ctx, "q", "ask")
	require.NoError(t, err)
	assert.Equal(t, "right", snap.CurrentStep)

	_, err = m.Previous(ctx, "q")
	assert.ErrorIs(t, err, session.ErrNotRewindable)
}

func TestManager_Errors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := session.NewManager(loader(t))
	defer m.Shutdown()
	ctx := context.Background()

	_, err := m.Create(ctx, "nope", "")
	assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)

	_, err = m.Begin(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	_, err = m.Create(ctx, "tour", "dup")
	require.NoError(t, err)
	_, err = m.Create(ctx, "tour", "dup")
	assert.ErrorIs(t, err, domain.ErrRunExists)

	run, err := m.Create(ctx, "tour", "")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID())
	assert.Len(t, m.List(), 2)
}

func TestManager_CloseKeepsStoredSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := memory.NewStore()
	m := session.NewManager(loader(t), session.WithStore(store))
	ctx := context.Background()

	_, err := m.Create(ctx, "tour", "r")
	require.NoError(t, err)
	_, err = m.Begin(ctx, "r")
	require.NoError(t, err)

	require.NoError(t, m.Close("r"))
	assert.ErrorIs(t, m.Close("r"), domain.ErrRunNotFound)

	snap, err := m.Snapshot(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "a", snap.CurrentStep)

	require.NoError(t, m.Delete(ctx, "r"))
	_, err = m.Snapshot(ctx, "r")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestManager_Events(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := session.NewManager(loader(t))
	defer m.Shutdown()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := m.Create(ctx, "tour", "r")
	require.NoError(t, err)
	events, err := m.Events(ctx, "r")
	require.NoError(t, err)

	_, err = m.Begin(ctx, "r")
	require.NoError(t, err)

	var got []string
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case e := <-events:
			if e.Status == domain.StatusStarted {
				got = append(got, e.Node)
			}
		case <-timeout:
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []string{"tour", "a"}, got)

	cancel()
	for range events {
	}
}

func TestManager_AudioOnlyStepsRunOnTheLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := dsl.New("narration")
	b.Add("intro").Audio("intro.wav", 20*time.Millisecond).AudioOnly()
	b.Add("next")
	l, err := b.Build()
	require.NoError(t, err)

	m := session.NewManager(l, session.WithAudio(func() ports.AudioHandle { return memory.NewAudio() }))
	defer m.Shutdown()
	ctx := context.Background()

	_, err = m.Create(ctx, "narration", "n")
	require.NoError(t, err)
	_, err = m.Begin(ctx, "n")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		snap, err := m.Snapshot(ctx, "n")
		return err == nil && snap.CurrentStep == "next"
	}, time.Second, 10*time.Millisecond)
}

func TestManager_ConcurrentOperations(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := dsl.New("long")
	for i := 0; i < 50; i++ {
		b.Add(fmt.Sprintf("s%02d", i))
	}
	l, err := b.Build()
	require.NoError(t, err)

	m := session.NewManager(l)
	defer m.Shutdown()
	ctx := context.Background()
	_, err = m.Create(ctx, "long", "r")
	require.NoError(t, err)
	_, err = m.Begin(ctx, "r")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Complete(ctx, "r", "")
		}()
	}
	wg.Wait()

	snap, err := m.Snapshot(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 20, snap.CurrentIndex)
}

type countingLocker struct {
	mu     sync.Mutex
	locks  int
	active int
}

func (c *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locks++
	c.active++
	return func(context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.active--
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	locker := &countingLocker{}
	m := session.NewManager(loader(t), session.WithLocker(locker))
	defer m.Shutdown()
	ctx := context.Background()

	_, err := m.Create(ctx, "tour", "r")
	require.NoError(t, err)
	_, err = m.Begin(ctx, "r")
	require.NoError(t, err)
	_, err = m.Complete(ctx, "r", "")
	require.NoError(t, err)

	assert.Equal(t, 2, locker.locks)
	assert.Zero(t, locker.active)
}
