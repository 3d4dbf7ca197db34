package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	// Target is a graph file or a stored graph name.
	Target string
	Start  string
	// Values is a JSON object written into the shared values before the walk.
	Values string
	// Save stores the graph, values included, under its name afterwards.
	Save  bool
	Quiet bool
}

// Execute runs one graph until its walk and every walk it spawned are done.
func Execute(ctx context.Context, rt *Runtime, opts RunOptions, out io.Writer) error {
	var initial map[string]any
	if opts.Values != "" {
		if err := json.Unmarshal([]byte(opts.Values), &initial); err != nil {
			return fmt.Errorf("error parsing --values JSON: %w", err)
		}
	}

	g, name, err := LoadGraph(ctx, rt.Engine, opts.Target)
	if err != nil {
		return err
	}
	for k, v := range initial {
		if err := g.Values().Set(k, v); err != nil {
			return fmt.Errorf("error setting value %q: %w", k, err)
		}
	}

	rt.Logger.Info("run started", "graph", name, "start", opts.Start)
	err = rt.Engine.Run(ctx, g, opts.Start)
	if isInterrupted(err) {
		if !opts.Quiet {
			printSystemMessage(out, "Interrupted in '%s'.", name)
		}
		return nil
	}
	if err != nil {
		return handleExecutionError(err)
	}

	if opts.Save {
		if err := rt.Engine.Library().Save(ctx, name, g); err != nil {
			return err
		}
	}
	if !opts.Quiet {
		printSystemMessage(out, "Finished '%s' from '%s'.", name, opts.Start)
		printValues(out, g.Values().Snapshot())
	}
	return nil
}
