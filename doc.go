/*
Package flowgraph is a visual-scripting graph interpreter.

Designers wire nodes together through typed ports. Control ports decide the
order nodes run in; data ports carry values between them. Every run walks the
live graph, so nodes and edges can change between steps of a walk.

# Concept

A node is an instance of a command: a Go function registered in a
registry.Registry. The function's parameters become input ports, its result
and pointer parameters become output ports, and commands that return a
registry.Delay or a registry.Future suspend the walk until the timer or
future completes. Walks never start goroutines on their own; a ports.Host
(runner.Loop or runner.Manual) decides when they are polled.

# Usage

	eng, err := flowgraph.New(flowgraph.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	g, err := eng.Parse(data) // YAML or JSON graph document
	if err != nil {
		log.Fatal(err)
	}
	if err := eng.Run(ctx, g, "Start"); err != nil {
		log.Fatal(err)
	}

Named graphs are kept in a ports.GraphStore (memory, file or Redis) and opened
through Engine.Library. Engine.RunStored loads one and runs it in one call.
*/
package flowgraph
