package flowgraph_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/graph"
	"github.com/aretw0/flowgraph/pkg/observability"
	"github.com/aretw0/flowgraph/pkg/registry"
	"github.com/aretw0/flowgraph/pkg/runner"
	"github.com/aretw0/flowgraph/pkg/schema"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoreGraph = `
nodes:
  - id: Start
    command: Start
    ports:
      - name: Next
        connections:
          - to: {node: set, port: From}
  - id: set
    command: SetValue
    ports:
      - name: key
        literal: score
      - name: value
        literal: "10"
`

func TestEngine_ParseAndRun(t *testing.T) {
	eng, err := flowgraph.New()
	require.NoError(t, err)
	defer eng.Close()

	g, err := eng.Parse([]byte(scoreGraph))
	require.NoError(t, err)
	require.NoError(t, eng.Run(context.Background(), g, "Start"))

	v, ok := g.Values().Get("score")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestEngine_ValueSchema(t *testing.T) {
	eng, err := flowgraph.New(flowgraph.WithValueSchema(schema.Schema{"score": schema.String()}))
	require.NoError(t, err)

	g, err := eng.Parse([]byte(scoreGraph))
	require.NoError(t, err)
	err = eng.Run(context.Background(), g, "Start")
	assert.Error(t, err, "an int is not a string")
}

func TestEngine_CustomGroupsAndHooks(t *testing.T) {
	var got []int
	var left []string
	eng, err := flowgraph.New(
		flowgraph.WithHost(runner.NewManual(0)),
		flowgraph.WithGroups(registry.Group{Name: "Game", Definitions: []registry.Definition{
			registry.Func("Score", func(n int) { got = append(got, n) }, registry.Arg("points").Default(3)),
		}}),
		flowgraph.WithLifecycleHooks(domain.LifecycleHooks{
			OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { left = append(left, e.NodeID) },
		}),
	)
	require.NoError(t, err)

	g := eng.NewGraph()
	start, err := g.AddCommand("Start", domain.Point{})
	require.NoError(t, err)
	score, err := g.AddCommand("Score", domain.Point{X: 100})
	require.NoError(t, err)
	require.NoError(t, start.ConnectNext(score))

	require.NoError(t, eng.Run(context.Background(), g, start.ID()))
	assert.Equal(t, []int{3}, got)
	assert.Equal(t, []string{start.ID(), score.ID()}, left)
}

func TestEngine_DuplicateGroup(t *testing.T) {
	_, err := flowgraph.New(flowgraph.WithGroups(registry.Group{Name: "Flow"}))
	assert.ErrorIs(t, err, flowgraph.ErrReservedGroup)

	_, err = flowgraph.New(flowgraph.WithGroups(registry.Group{Name: "Debug", Definitions: []registry.Definition{
		registry.Func("Trace", func() {}),
	}}))
	assert.ErrorIs(t, err, flowgraph.ErrReservedGroup)
}

// slowBranch builds Start -> Slow where Slow sits on a trigger input, so it
// runs as a spawned walk that blocks until release is closed.
func slowBranch(t *testing.T, eng *flowgraph.Engine) *graph.Graph {
	t.Helper()
	g := eng.NewGraph()
	start, err := g.AddCommand("Start", domain.Point{})
	require.NoError(t, err)
	slow, err := g.AddCommand("Slow", domain.Point{X: 100})
	require.NoError(t, err)
	require.NoError(t, g.Connect(
		domain.PortRef{Node: start.ID(), Port: domain.PortNext},
		domain.PortRef{Node: slow.ID(), Port: "Trigger"},
	))
	return g
}

func TestEngine_RunsDoNotWaitForEachOther(t *testing.T) {
	boom := errors.New("boom")
	release := make(chan struct{})
	eng, err := flowgraph.New(flowgraph.WithGroups(registry.Group{Name: "Test", Definitions: []registry.Definition{
		registry.Func("Slow", func(trigger registry.Flow) error {
			<-release
			return boom
		}, registry.Arg("Trigger")),
	}}))
	require.NoError(t, err)
	defer eng.Close()
	ctx := context.Background()

	b := slowBranch(t, eng)
	bDone := make(chan error, 1)
	go func() { bDone <- eng.Run(ctx, b, "Start") }()

	a, err := eng.Parse([]byte(scoreGraph))
	require.NoError(t, err)
	require.NoError(t, eng.Run(ctx, a, "Start"), "another run's branch must not leak its error")

	select {
	case err := <-bDone:
		t.Fatalf("run returned before its branch finished: %v", err)
	default:
	}

	close(release)
	select {
	case err := <-bDone:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after its branch finished")
	}
}

func TestEngine_RunWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	eng, err := flowgraph.New(flowgraph.WithGroups(registry.Group{Name: "Test", Definitions: []registry.Definition{
		registry.Func("Slow", func(trigger registry.Flow) { <-release }, registry.Arg("Trigger")),
	}}))
	require.NoError(t, err)
	defer eng.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = eng.Run(ctx, slowBranch(t, eng), "Start")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_RunStored(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	eng, err := flowgraph.New(flowgraph.WithLogger(logging.NewWriter(&logs, slog.LevelDebug, logging.FormatJSON)))
	require.NoError(t, err)

	g, err := eng.Parse([]byte(scoreGraph))
	require.NoError(t, err)
	require.NoError(t, eng.Library().Save(ctx, "scores", g))

	names, err := eng.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"scores"}, names)

	ran, err := eng.RunStored(ctx, "scores", "Start")
	require.NoError(t, err)
	v, _ := ran.Values().Get("score")
	assert.Equal(t, 10, v)
	assert.Contains(t, logs.String(), `"msg":"traversal_end"`)

	_, err = eng.RunStored(ctx, "missing", "Start")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestEngine_Validate(t *testing.T) {
	eng, err := flowgraph.New()
	require.NoError(t, err)

	g, err := eng.Parse([]byte(scoreGraph))
	require.NoError(t, err)
	assert.NoError(t, eng.Validate(g.Doc()))

	doc := g.Doc()
	doc.Nodes = append(doc.Nodes, domain.NodeDoc{ID: "x", Command: "Missing"})
	assert.ErrorContains(t, eng.Validate(doc), `unknown command "Missing"`)
}

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	eng, err := flowgraph.New(flowgraph.WithMetrics(m))
	require.NoError(t, err)

	g, err := eng.Parse([]byte(scoreGraph))
	require.NoError(t, err)
	require.NoError(t, eng.Run(context.Background(), g, "Start"))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, observability.Namespace+"_traversals_total")
}

func TestEngine_DelayOnFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	eng, err := flowgraph.New(flowgraph.WithClock(clock), flowgraph.WithHost(runner.NewManual(0)))
	require.NoError(t, err)

	g := eng.NewGraph()
	start, _ := g.AddCommand("Start", domain.Point{})
	wait, _ := g.AddCommand("Delay", domain.Point{})
	require.NoError(t, start.ConnectNext(wait))

	tr, err := g.Start(context.Background(), start.ID())
	require.NoError(t, err)
	require.NoError(t, pollUntilWaiting(tr))
	clock.Advance(time.Second)
	done, err := pollAll(tr)
	require.NoError(t, err)
	assert.True(t, done)
}

func pollUntilWaiting(tr *graph.Traversal) error {
	for i := 0; i < 10 && !tr.Suspended(); i++ {
		if _, err := tr.Poll(context.Background()); err != nil {
			return err
		}
	}
	return nil
}

func pollAll(tr *graph.Traversal) (bool, error) {
	for i := 0; i < 10; i++ {
		done, err := tr.Poll(context.Background())
		if done || err != nil {
			return done, err
		}
	}
	return false, nil
}
