/*
Package runner provides the hosts that drive graph walks.

Graphs never start goroutines on their own. A walk is a ports.Pollable and a
host decides when it is polled.

# Key Components

  - Loop: The default host. Drive polls in the caller's goroutine and sleeps
    between polls only while the walk is suspended. Spawned walks run in their
    own goroutines and can be awaited with Wait.
  - Tracker: Follows the walks spawned during one run. Attach it to the
    context with WithTracker; spawned walks keep it for their own spawns.
  - Manual: A deterministic host. Drive polls in place and spawned walks wait
    in a queue until Step is called. Pair it with a fake clock in tests.
  - SignalManager: Derives a context cancelled on SIGINT or SIGTERM.

# Usage

	loop := runner.NewLoop(runner.WithLogger(logger))
	g := graph.New(reg, graph.WithHost(loop))

	run := runner.NewTracker()
	ctx = runner.WithTracker(ctx, run)
	if err := g.Run(ctx, "Start"); err != nil {
		log.Fatal(err)
	}
	_ = run.Wait(ctx)
*/
package runner
