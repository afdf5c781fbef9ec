/*
Package sequence is the runtime engine: steps, linear sequences and branching
sequences.

A Sequence walks an ordered list of steps. A BranchingSequence starts at an entry
step and, every time the current step completes, takes the first outgoing
transition whose condition holds. Steps can gate their own completion on an audio
cue (optionally delayed) played through a handle shared by the whole sequence.

# Execution model

The engine is single-threaded and cooperative. Every method of Step, Sequence and
BranchingSequence must be called from the goroutine driving the container's Loop.
The only waits (the audio delay and, for audio-only steps, the end of playback)
happen on helper goroutines that post their result back to the Loop:

	loop := sequence.NewLoop()
	seq := sequence.NewSequence("intro", steps, sequence.WithLoop(loop))
	seq.Begin()
	_ = loop.RunUntil(ctx, func() bool { return seq.Status() == domain.StatusCompleted })

Each step activation carries a generation token and a context. Reset, a new
Begin, GoToPreviousStep and completion invalidate both, so a late playback signal
from an earlier activation is discarded.

# Failures

Configuration problems (no entry step, a transition without target, no matching
transition) never panic or return errors: the run is logged and ended, and the
cause is available from Err and Snapshot().Reason.
*/
package sequence
