package sequence_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func threeSteps(opts ...sequence.StepOption) []*sequence.Step {
	return []*sequence.Step{
		sequence.NewStep("a", opts...),
		sequence.NewStep("b", opts...),
		sequence.NewStep("c", opts...),
	}
}

func TestSequence_ScenarioA(t *testing.T) {
	steps := threeSteps()
	seq := sequence.NewSequence("tutorial", steps)

	seq.Begin()
	require.Equal(t, domain.StatusStarted, seq.Status())
	require.Same(t, steps[0], seq.CurrentStep())

	steps[0].CompleteStep()
	assert.Equal(t, 1, seq.CurrentIndex())
	assert.Same(t, steps[1], seq.CurrentStep())

	// A second signal through the stale reference is dropped.
	steps[0].CompleteStep()
	seq.CompleteStep(steps[0])
	assert.Equal(t, 1, seq.CurrentIndex())
	assert.Equal(t, domain.StatusStarted, steps[1].Status())

	steps[1].CompleteStep()
	steps[2].CompleteStep()

	assert.Equal(t, domain.StatusCompleted, seq.Status())
	assert.Equal(t, domain.ReasonFinished, seq.Reason())
	assert.NoError(t, seq.Err())
	assert.Nil(t, seq.CurrentStep())
	assert.Equal(t, []domain.Status{domain.StatusCompleted, domain.StatusCompleted, domain.StatusCompleted}, statusesOf(steps))
}

func TestSequence_NonCurrentCompletionIsNoop(t *testing.T) {
	steps := threeSteps()
	seq := sequence.NewSequence("s", steps)
	seq.Begin()

	seq.CompleteStep(steps[2])
	seq.CompleteStep(nil)
	seq.CompleteStep(sequence.NewStep("stranger"))

	assert.Equal(t, 0, seq.CurrentIndex())
	assert.Equal(t, domain.StatusStarted, steps[0].Status())
	assert.Equal(t, domain.StatusInactive, steps[2].Status())
}

func TestSequence_StatusIsMonotonic(t *testing.T) {
	steps := threeSteps()
	seq := sequence.NewSequence("s", steps)

	var seqStatuses []domain.Status
	seq.Subscribe(func(e domain.StatusEvent) { seqStatuses = append(seqStatuses, e.Status) })

	stepStatuses := map[string][]domain.Status{}
	sequence.SubscribeSteps(seq, func(e domain.StatusEvent) {
		stepStatuses[e.Node] = append(stepStatuses[e.Node], e.Status)
	})

	seq.Begin()
	for seq.Status() != domain.StatusCompleted {
		seq.Skip()
	}

	assert.Equal(t, []domain.Status{domain.StatusStarted, domain.StatusCompleted}, seqStatuses)
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, []domain.Status{domain.StatusStarted, domain.StatusCompleted}, stepStatuses[id], id)
	}

	seq.Reset()
	assert.Equal(t, domain.StatusInactive, seqStatuses[len(seqStatuses)-1])
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, domain.StatusInactive, stepStatuses[id][2], id)
	}
}

func TestSequence_CallbackOrder(t *testing.T) {
	var log []string
	mk := func(id string) *sequence.Step {
		return sequence.NewStep(id,
			sequence.OnStarted(func() { log = append(log, id+":started") }),
			sequence.OnCompleted(func() { log = append(log, id+":completed") }),
		)
	}
	steps := []*sequence.Step{mk("a"), mk("b")}
	seq := sequence.NewSequence("s", steps)
	seq.Subscribe(func(e domain.StatusEvent) { log = append(log, "seq:"+e.Status.String()) })

	seq.Begin()
	steps[0].CompleteStep()
	steps[1].CompleteStep()

	assert.Equal(t, []string{
		"seq:started",
		"a:started",
		"a:completed",
		"b:started",
		"b:completed",
		"seq:completed",
	}, log)
}

func TestSequence_Empty(t *testing.T) {
	seq := sequence.NewSequence("empty", nil)
	seq.Begin()

	assert.Equal(t, domain.StatusCompleted, seq.Status())
	assert.Equal(t, domain.ReasonFinished, seq.Reason())
	assert.Nil(t, seq.CurrentStep())
}

func TestSequence_GoToPreviousStep(t *testing.T) {
	completed := 0
	steps := threeSteps(sequence.OnCompleted(func() { completed++ }))
	seq := sequence.NewSequence("s", steps)

	seq.Begin()
	seq.GoToPreviousStep()
	assert.Equal(t, 0, seq.CurrentIndex(), "no-op on the first step")
	assert.Equal(t, domain.StatusStarted, steps[0].Status())

	steps[0].CompleteStep()
	require.Equal(t, 1, completed)

	seq.GoToPreviousStep()
	assert.Equal(t, 0, seq.CurrentIndex())
	assert.Equal(t, domain.StatusStarted, steps[0].Status(), "previous step is re-entered")
	assert.Equal(t, domain.StatusInactive, steps[1].Status())
	assert.Equal(t, 1, completed, "the left step does not fire its completed callback")

	steps[1].CompleteStep()
	assert.Equal(t, 0, seq.CurrentIndex(), "signals from the left step are ignored")

	steps[0].CompleteStep()
	assert.Equal(t, 1, seq.CurrentIndex())
	assert.Equal(t, 2, completed)
}

func TestSequence_FinishBeforeStart(t *testing.T) {
	var log []string
	a := sequence.NewStep("a")
	b := sequence.NewStep("b",
		sequence.FinishBeforeStart(),
		sequence.OnStarted(func() { log = append(log, "b:started") }),
		sequence.OnCompleted(func() { log = append(log, "b:completed") }),
	)
	c := sequence.NewStep("c")
	seq := sequence.NewSequence("s", []*sequence.Step{a, b, c})

	seq.Begin()
	b.CompleteStep()
	c.CompleteStep()

	assert.Equal(t, domain.StatusInactive, b.Status())
	assert.True(t, b.FinishPending())
	assert.False(t, c.FinishPending(), "steps without the flag drop early completions")
	assert.True(t, seq.Snapshot().Steps[1].FinishPending)

	a.CompleteStep()

	assert.Equal(t, []string{"b:started", "b:completed"}, log)
	assert.Equal(t, domain.StatusCompleted, b.Status())
	assert.False(t, b.FinishPending())
	assert.Same(t, c, seq.CurrentStep())
}

func TestSequence_ResetMatchesFreshInstance(t *testing.T) {
	build := func() *sequence.Sequence {
		return sequence.NewSequence("s", []*sequence.Step{
			sequence.NewStep("a"),
			sequence.NewStep("b", sequence.FinishBeforeStart()),
			sequence.NewStep("c"),
		})
	}
	fresh := build()
	used := build()

	used.Begin()
	used.Steps()[2].CompleteStep()
	used.Steps()[1].CompleteStep()
	used.Skip()
	used.Reset()

	requireSameState(t, fresh.Snapshot(), used.Snapshot())
	assert.Empty(t, used.RunID())
	assert.Nil(t, used.CurrentStep())

	// Finished runs reset the same way.
	used.Begin()
	for used.Status() != domain.StatusCompleted {
		used.Skip()
	}
	used.Reset()
	requireSameState(t, fresh.Snapshot(), used.Snapshot())
}

func TestSequence_AllocatesAudioOnce(t *testing.T) {
	allocated := 0
	factory := func() ports.AudioHandle {
		allocated++
		return memory.NewAudio()
	}
	seq := sequence.NewSequence("s", threeSteps(), sequence.WithAudio(factory))
	assert.Nil(t, seq.Audio())

	seq.Begin()
	first := seq.Audio()
	firstRun := seq.RunID()
	seq.Skip()
	seq.Begin()

	assert.Equal(t, 1, allocated)
	assert.Same(t, first, seq.Audio())
	assert.NotEqual(t, firstRun, seq.RunID(), "a new Begin opens a new run")
	assert.Equal(t, 0, seq.CurrentIndex(), "Begin restarts from the first step")

	seq.Reset()
	seq.Begin()
	assert.Equal(t, 1, allocated)
}

type closingAudio struct {
	*memory.Audio
	closed int
}

func (c *closingAudio) Close() error {
	c.closed++
	return nil
}

func TestSequence_ResetReleasesClosableAudio(t *testing.T) {
	var handles []*closingAudio
	factory := func() ports.AudioHandle {
		h := &closingAudio{Audio: memory.NewAudio()}
		handles = append(handles, h)
		return h
	}
	seq := sequence.NewSequence("s", threeSteps(), sequence.WithAudio(factory))

	seq.Begin()
	seq.Reset()
	require.Len(t, handles, 1)
	assert.Equal(t, 1, handles[0].closed)
	assert.Nil(t, seq.Audio())

	seq.Begin()
	assert.Len(t, handles, 2)
}

func TestSequence_PitchOverrideAndRestore(t *testing.T) {
	audio := memory.NewAudio()
	steps := []*sequence.Step{
		sequence.NewStep("high", sequence.WithPitch(1.5)),
		sequence.NewStep("plain"),
	}
	seq := sequence.NewSequence("s", steps,
		sequence.WithAudio(func() ports.AudioHandle { return audio }),
		sequence.WithBasePitch(0.8),
	)

	seq.Begin()
	assert.Equal(t, 1.5, audio.Pitch())

	seq.Skip()
	assert.Equal(t, 0.8, audio.Pitch())
}

func TestSequence_AudioOnlyStepsCompleteThemselves(t *testing.T) {
	defer goleak.VerifyNone(t)

	audio := memory.NewAudio()
	steps := []*sequence.Step{
		sequence.NewStep("intro", sequence.WithClip(domain.Clip{Name: "intro.wav", Duration: 5 * time.Millisecond}), sequence.AudioOnly()),
		sequence.NewStep("cue", sequence.WithClip(domain.Clip{Name: "cue.wav"}), sequence.WithAudioDelay(5*time.Millisecond), sequence.AudioOnly()),
		sequence.NewStep("silent", sequence.AudioOnly()),
	}
	seq := sequence.NewSequence("s", steps, sequence.WithAudio(func() ports.AudioHandle { return audio }))

	seq.Begin()
	assert.Equal(t, []string{"intro.wav"}, audio.Played())

	runUntilDone(t, seq)

	assert.Equal(t, []string{"intro.wav", "cue.wav"}, audio.Played())
	assert.Equal(t, domain.ReasonFinished, seq.Reason())
}

func TestSequence_ClipWithoutAudioOnlyWaitsForHost(t *testing.T) {
	defer goleak.VerifyNone(t)

	audio := memory.NewAudio()
	step := sequence.NewStep("narrated", sequence.WithClip(domain.Clip{Name: "line.wav"}))
	seq := sequence.NewSequence("s", []*sequence.Step{step}, sequence.WithAudio(func() ports.AudioHandle { return audio }))

	seq.Begin()
	seq.Loop().Drain()

	assert.Equal(t, []string{"line.wav"}, audio.Played())
	assert.Equal(t, domain.StatusStarted, step.Status())

	step.CompleteStep()
	assert.Equal(t, domain.StatusCompleted, seq.Status())
}

func TestSequence_StalePlaybackAfterReset(t *testing.T) {
	defer goleak.VerifyNone(t)

	audio := memory.NewAudio()
	long := domain.Clip{Name: "long.wav", Duration: time.Hour}
	step := sequence.NewStep("a", sequence.WithClip(long), sequence.AudioOnly())
	seq := sequence.NewSequence("s", []*sequence.Step{step, sequence.NewStep("b")},
		sequence.WithAudio(func() ports.AudioHandle { return audio }))

	seq.Begin()
	seq.Reset()
	seq.Begin()

	// Give a late callback from the first run the chance to land on the loop.
	time.Sleep(20 * time.Millisecond)
	seq.Loop().Drain()

	assert.Equal(t, 0, seq.CurrentIndex())
	assert.Equal(t, domain.StatusStarted, step.Status())
	assert.True(t, audio.IsPlaying())

	// Ending playback of the current run does complete the step.
	audio.Finish()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, seq.Loop().RunUntil(ctx, func() bool { return seq.CurrentIndex() == 1 }))

	seq.Reset()
}

func TestSequence_DelayCancelledByReset(t *testing.T) {
	defer goleak.VerifyNone(t)

	audio := memory.NewAudio()
	step := sequence.NewStep("a",
		sequence.WithClip(domain.Clip{Name: "late.wav"}),
		sequence.WithAudioDelay(20*time.Millisecond),
	)
	seq := sequence.NewSequence("s", []*sequence.Step{step}, sequence.WithAudio(func() ports.AudioHandle { return audio }))

	seq.Begin()
	seq.Reset()
	time.Sleep(40 * time.Millisecond)
	seq.Loop().Drain()

	assert.Empty(t, audio.Played())
}

func TestSequence_Hooks(t *testing.T) {
	var statuses int
	var ends []*domain.RunEvent
	hooks := domain.LifecycleHooks{
		OnStatus: func(ctx context.Context, e *domain.StatusEvent) { statuses++ },
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) { ends = append(ends, e) },
	}
	seq := sequence.NewSequence("s", threeSteps(), sequence.WithHooks(hooks))

	seq.Begin()
	runID := seq.RunID()
	for seq.Status() != domain.StatusCompleted {
		seq.Skip()
	}

	// sequence started + completed, three steps started + completed
	assert.Equal(t, 8, statuses)
	require.Len(t, ends, 1)
	assert.Equal(t, domain.ReasonFinished, ends[0].Reason)
	assert.Equal(t, runID, ends[0].RunID)
	assert.Empty(t, ends[0].Err)
}

func TestSequence_AbandonedRunsReportEnd(t *testing.T) {
	var ends []*domain.RunEvent
	hooks := domain.LifecycleHooks{
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) { ends = append(ends, e) },
	}
	seq := sequence.NewSequence("s", threeSteps(), sequence.WithHooks(hooks))

	seq.Reset()
	assert.Empty(t, ends, "nothing to abandon before the first Begin")

	seq.Begin()
	first := seq.RunID()
	seq.Begin()
	second := seq.RunID()
	seq.Reset()

	require.Len(t, ends, 2)
	assert.Equal(t, first, ends[0].RunID)
	assert.Equal(t, domain.ReasonRestarted, ends[0].Reason)
	assert.Equal(t, second, ends[1].RunID)
	assert.Equal(t, domain.ReasonReset, ends[1].Reason)
	assert.Empty(t, ends[1].Err)
}

func TestSequence_FixedRunID(t *testing.T) {
	seq := sequence.NewSequence("s", threeSteps(), sequence.WithRunID("run-7"))

	assert.Empty(t, seq.RunID())
	seq.Begin()
	assert.Equal(t, "run-7", seq.RunID())
	assert.Equal(t, "run-7", seq.Snapshot().RunID)

	seq.Reset()
	assert.Empty(t, seq.RunID())
	seq.Begin()
	assert.Equal(t, "run-7", seq.RunID())
}

func TestSequence_CompletedCallbackResetsOrRestarts(t *testing.T) {
	t.Run("reset", func(t *testing.T) {
		var seq *sequence.Sequence
		steps := []*sequence.Step{
			sequence.NewStep("a", sequence.OnCompleted(func() { seq.Reset() })),
			sequence.NewStep("b"),
		}
		seq = sequence.NewSequence("s", steps)
		fresh := sequence.NewSequence("s", []*sequence.Step{sequence.NewStep("a"), sequence.NewStep("b")})

		seq.Begin()
		steps[0].CompleteStep()

		assert.Equal(t, domain.StatusInactive, seq.Status())
		assert.Equal(t, []domain.Status{domain.StatusInactive, domain.StatusInactive}, statusesOf(steps))
		requireSameState(t, fresh.Snapshot(), seq.Snapshot())
	})

	t.Run("restart", func(t *testing.T) {
		var seq *sequence.Sequence
		restarted := false
		a := sequence.NewStep("a", sequence.OnCompleted(func() {
			if !restarted {
				restarted = true
				seq.Begin()
			}
		}))
		b := sequence.NewStep("b")
		seq = sequence.NewSequence("s", []*sequence.Step{a, b})

		seq.Begin()
		a.CompleteStep()

		require.True(t, restarted)
		assert.Equal(t, domain.StatusStarted, seq.Status())
		assert.Equal(t, 0, seq.CurrentIndex())
		assert.Same(t, a, seq.CurrentStep())
		assert.Equal(t, domain.StatusStarted, a.Status())
		assert.Equal(t, domain.StatusInactive, b.Status())

		a.CompleteStep()
		assert.Equal(t, 1, seq.CurrentIndex())
		assert.Equal(t, domain.StatusCompleted, a.Status())
		assert.Equal(t, domain.StatusStarted, b.Status())
	})
}
