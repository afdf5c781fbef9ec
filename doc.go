/*
Package stepwise runs multi-step experiences (tutorials, training flows,
narrative beats) described as sequences of steps.

A step may play an audio clip and can complete itself once the clip ends.
Progression is either linear, or guided by transitions whose conditions read
values owned by the host.

The engine is single-threaded and cooperative: every engine call happens on
the goroutine that drives a [sequence.Loop]. Audio waits run in the background
and post their results back to the loop, so a host embedding the engine in a
frame loop only calls Drain once per frame:

	engine, err := stepwise.New("./flows")
	if err != nil {
		log.Fatal(err)
	}

	loop := sequence.NewLoop()
	run, vars, err := engine.Compile("tutorial", loop)
	if err != nil {
		log.Fatal(err)
	}
	run.Begin()

	for run.Status() != domain.StatusCompleted {
		loop.Drain()
		// render the frame, then feed input:
		// run.Skip() or vars.(ports.VariableSetter).SetRaw("answer", "yes")
	}

Hosts that serve many concurrent runs use a [session.Manager] instead, which
gives every run its own loop goroutine:

	manager := engine.Manager(session.WithStore(redis.New(addr, "", 0)))
	run, _ := manager.Create(ctx, "tutorial", "")
	snap, _ := manager.Begin(ctx, run.ID())
*/
package stepwise
