package graph_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/graph"
	"github.com/aretw0/flowgraph/pkg/runner"
	"github.com/aretw0/flowgraph/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poll(t *testing.T, tr *graph.Traversal) bool {
	t.Helper()
	done, err := tr.Poll(t.Context())
	require.NoError(t, err)
	return done
}

func TestRun_OutParamAndResult(t *testing.T) {
	fx := newFixture(t)
	out := fx.add(t, "OutTest")
	fx.set(t, out, "a", 3)

	require.NoError(t, out.Run(t.Context()))
	assert.Equal(t, 4, value(t, out, "Result"))
	assert.Equal(t, 6, value(t, out, "out"))

	rec := fx.add(t, "Record")
	fx.link(t, out, "out", rec, "v")
	require.NoError(t, rec.Run(t.Context()))
	assert.Equal(t, []any{6}, fx.rec.all())
}

func TestRun_SyncRejectsSuspendable(t *testing.T) {
	fx := newFixture(t)
	wait := fx.add(t, "CoroutineWaitTest")

	err := wait.Run(t.Context())
	assert.ErrorIs(t, err, domain.ErrSyncRunOnSuspendable)

	var re *domain.NodeRunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, wait.ID(), re.NodeID)
}

func TestRunStep_Timer(t *testing.T) {
	fx := newFixture(t)
	wait := fx.add(t, "CoroutineWaitTest")
	fx.set(t, wait, "time", 0.5)

	done, err := wait.RunStep(t.Context())
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, domain.StateWaiting, wait.State())

	fx.clock.Advance(499 * time.Millisecond)
	done, err = wait.RunStep(t.Context())
	require.NoError(t, err)
	assert.False(t, done)

	fx.clock.Advance(time.Millisecond)
	done, err = wait.RunStep(t.Context())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, domain.StateDone, wait.State())
}

func TestTraversal_TimerCycle(t *testing.T) {
	fx := newFixture(t)
	start := fx.add(t, "Start")
	log := fx.add(t, "LogErrorTest")
	wait := fx.add(t, "CoroutineWaitTest")
	fx.chain(t, start, log, wait, log)

	tr, err := fx.g.Start(t.Context(), start.ID())
	require.NoError(t, err)

	assert.False(t, poll(t, tr), "start moves on to the log")
	assert.False(t, poll(t, tr), "log runs once before the first wait")
	assert.Equal(t, wait.ID(), tr.Current())
	assert.Equal(t, []any{"test1"}, fx.rec.all())

	for cycle := 1; cycle <= 3; cycle++ {
		assert.False(t, poll(t, tr))
		assert.True(t, tr.Suspended())
		assert.False(t, poll(t, tr))
		assert.Len(t, fx.rec.all(), cycle, "no log before the delay elapses")

		fx.clock.Advance(time.Second)
		assert.False(t, poll(t, tr), "timer completes")
		assert.Equal(t, log.ID(), tr.Current())
		assert.False(t, poll(t, tr), "log runs and loops back")
		assert.Len(t, fx.rec.all(), cycle+1)
	}

	fx.g.Disconnect(ref(wait, domain.PortNext, 0), ref(log, domain.PortFrom, 0))
	assert.False(t, poll(t, tr))
	fx.clock.Advance(time.Second)
	assert.True(t, poll(t, tr), "walk ends once the cycle is cut")
	assert.True(t, poll(t, tr))

	assert.Equal(t, []any{"test1", "test1", "test1", "test1"}, fx.rec.all())
	assert.Equal(t, 2+3*2+1, tr.Steps())
}

func TestRun_BranchGate(t *testing.T) {
	fx := newFixture(t)
	start := fx.add(t, "Start")
	branch := fx.add(t, "Branch")
	yes, no := fx.add(t, "Record"), fx.add(t, "Record")
	fx.set(t, yes, "v", "yes")
	fx.set(t, no, "v", "no")
	fx.chain(t, start, branch)
	fx.link(t, branch, "True", yes, "From")
	fx.link(t, branch, "False", no, "From")

	fx.set(t, branch, "condition", true)
	require.NoError(t, fx.g.Run(t.Context(), start.ID()))
	assert.Equal(t, []any{"yes"}, fx.rec.all())

	fx.set(t, branch, "condition", false)
	require.NoError(t, fx.g.Run(t.Context(), start.ID()))
	assert.Equal(t, []any{"yes", "no"}, fx.rec.all())
}

func TestRun_Switch(t *testing.T) {
	fx := newFixture(t)
	start := fx.add(t, "Start")
	sw := fx.add(t, "Switch")
	fx.chain(t, start, sw)

	cases, _ := sw.Port("cases")
	require.NoError(t, cases.SetLiteral("[a, b, c]"))
	for i, label := range []string{"a", "b", "c"} {
		r := fx.add(t, "Record")
		fx.set(t, r, "v", label)
		require.NoError(t, fx.g.Connect(ref(sw, "cases", i), ref(r, "From", 0)))
	}

	fx.set(t, sw, "index", 2)
	require.NoError(t, fx.g.Run(t.Context(), start.ID()))
	assert.Equal(t, []any{"c"}, fx.rec.all())

	fx.set(t, sw, "index", 7)
	err := fx.g.Run(t.Context(), start.ID())
	assert.ErrorIs(t, err, domain.ErrMissingPort)
	assert.Len(t, fx.rec.all(), 1)
}

func TestTraversal_Future(t *testing.T) {
	fx := newFixture(t)
	start := fx.add(t, "Start")
	fetch := fx.add(t, "Fetch")
	rec := fx.add(t, "Record")
	fx.chain(t, start, fetch, rec)
	fx.link(t, fetch, "Result", rec, "v")

	tr, err := fx.g.Start(t.Context(), start.ID())
	require.NoError(t, err)
	assert.False(t, poll(t, tr))
	assert.False(t, poll(t, tr))
	assert.True(t, tr.Suspended())
	assert.False(t, poll(t, tr))

	fx.resolve(42, nil)
	assert.False(t, poll(t, tr), "future resolved")
	assert.True(t, poll(t, tr), "record runs and the walk ends")
	assert.Equal(t, []any{42}, fx.rec.all())
	assert.Equal(t, 42, value(t, fetch, "Result"))
}

func TestTraversal_FutureError(t *testing.T) {
	fx := newFixture(t)
	start := fx.add(t, "Start")
	fetch := fx.add(t, "Fetch")
	fx.chain(t, start, fetch)

	boom := errors.New("boom")
	fx.resolve(nil, boom)

	err := fx.g.Run(t.Context(), start.ID())
	assert.ErrorIs(t, err, boom)
	var re *domain.NodeRunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, fetch.ID(), re.NodeID)
}

func TestRun_SpawnOnOtherControlInput(t *testing.T) {
	fx := newFixture(t)
	start := fx.add(t, "Start")
	gate := fx.add(t, "Gate")
	fx.link(t, start, "Next", gate, "Trigger")

	require.NoError(t, fx.g.Run(t.Context(), start.ID()))
	assert.Empty(t, fx.rec.all(), "the gate runs in its own walk")
	assert.Equal(t, 1, fx.host.Pending())

	assert.True(t, fx.host.RunUntilIdle(t.Context(), 10))
	assert.Equal(t, []any{"gate"}, fx.rec.all())
}

func TestRunPort(t *testing.T) {
	fx := newFixture(t)
	start := fx.add(t, "Start")
	rec := fx.add(t, "Record")
	fx.set(t, rec, "v", "fired")
	fx.chain(t, start, rec)

	require.NoError(t, fx.g.RunPort(t.Context(), start.ID(), "Next"))
	assert.True(t, fx.host.RunUntilIdle(t.Context(), 10))
	assert.Equal(t, []any{"fired"}, fx.rec.all())

	err := fx.g.RunPort(t.Context(), rec.ID(), "v")
	assert.ErrorIs(t, err, domain.ErrIncompatiblePorts)
}

func TestAutoRun_ProducerRunsOnEveryRead(t *testing.T) {
	fx := newFixture(t)
	start := fx.add(t, "Start")
	clock := fx.add(t, "GetTime")
	rec := fx.add(t, "Record")
	fx.chain(t, start, rec)
	fx.link(t, clock, "t", rec, "v")

	require.NoError(t, fx.g.Run(t.Context(), start.ID()))
	require.NoError(t, fx.g.Run(t.Context(), start.ID()))
	assert.Equal(t, []any{1, 2}, fx.rec.all())
}

func TestAutoRun_CycleIsReported(t *testing.T) {
	fx := newFixture(t)
	e1, e2 := fx.add(t, "Echo"), fx.add(t, "Echo")
	rec := fx.add(t, "Record")
	fx.link(t, e1, "out", e2, "in")
	fx.link(t, e2, "out", e1, "in")
	fx.link(t, e1, "out", rec, "v")

	err := rec.Run(t.Context())
	assert.ErrorIs(t, err, domain.ErrResolutionCycle)
	assert.Empty(t, fx.rec.all())
}

func TestRun_DanglingStart(t *testing.T) {
	fx := newFixture(t)
	err := fx.g.Run(t.Context(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestRun_InertNodeStopsWalk(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.g.Load(&domain.GraphDoc{Nodes: []domain.NodeDoc{
		{ID: "Start", Command: "Flow/Start", Ports: []domain.PortDoc{
			{Name: "Next", Connections: []domain.Connection{{To: domain.PortRef{Node: "dead", Port: "From"}}}},
		}},
		{ID: "dead", Command: "Nope/Missing", Ports: []domain.PortDoc{{Name: "From"}}},
	}}))
	dead, ok := fx.g.Node("dead")
	require.True(t, ok)
	assert.True(t, dead.Inert())

	err := fx.g.Run(t.Context(), "Start")
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)
}

func TestValues_SharedBetweenNodes(t *testing.T) {
	fx := newFixture(t, graph.WithValueSchema(schema.Schema{"score": schema.Int()}))
	start := fx.add(t, "Start")
	set := fx.add(t, "SetValue")
	get := fx.add(t, "GetValue")
	rec := fx.add(t, "Record")
	fx.set(t, set, "key", "player")
	fx.set(t, set, "value", "ana")
	fx.set(t, get, "key", "player")
	fx.chain(t, start, set, get, rec)
	fx.link(t, get, "Result", rec, "v")

	require.NoError(t, fx.g.Run(t.Context(), start.ID()))
	assert.Equal(t, []any{"ana"}, fx.rec.all())

	v, ok := fx.g.Values().Get("player")
	require.True(t, ok)
	assert.Equal(t, "ana", v)

	assert.Error(t, fx.g.Values().Set("score", "high"))
	require.NoError(t, fx.g.Values().Set("score", 7))
	score, err := graph.ValueOf[int](fx.g.Values(), "score")
	require.NoError(t, err)
	assert.Equal(t, 7, score)
}

func TestValues_Decode(t *testing.T) {
	vals := graph.NewValues(nil)
	require.NoError(t, vals.Set("player", map[string]any{"name": "ana", "level": "3"}))

	type player struct {
		Name  string
		Level int
	}
	p, err := graph.ValueOf[player](vals, "player")
	require.NoError(t, err)
	assert.Equal(t, player{Name: "ana", Level: 3}, p)

	missing, err := graph.ValueOf[int](vals, "nope")
	require.NoError(t, err)
	assert.Zero(t, missing)

	assert.Equal(t, []string{"player"}, vals.Keys())
	vals.Delete("player")
	assert.Empty(t, vals.Keys())
}

func TestHooks_Order(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	note := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	}
	hooks := domain.LifecycleHooks{
		OnTraversalStart: func(_ context.Context, e *domain.TraversalEvent) { note("start " + e.StartNodeID) },
		OnNodeEnter:      func(_ context.Context, e *domain.NodeEvent) { note("enter " + e.Command) },
		OnNodeLeave:      func(_ context.Context, e *domain.NodeEvent) { note("leave " + e.Command) },
		OnNodeError:      func(_ context.Context, e *domain.NodeEvent) { note("error " + e.Command) },
		OnTraversalEnd:   func(_ context.Context, e *domain.TraversalEvent) { note("end") },
	}
	fx := newFixture(t, graph.WithLifecycleHooks(hooks))
	start := fx.add(t, "Start")
	rec := fx.add(t, "Record")
	fx.chain(t, start, rec)

	require.NoError(t, fx.g.Run(t.Context(), start.ID()))
	assert.Equal(t, []string{
		"start Start",
		"enter Start", "leave Start",
		"enter Record", "leave Record",
		"end",
	}, events)
}

func TestHooks_WaitingNodeEntersOnce(t *testing.T) {
	var enters int
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(context.Context, *domain.NodeEvent) { enters++ },
	}
	fx := newFixture(t, graph.WithLifecycleHooks(hooks))
	wait := fx.add(t, "CoroutineWaitTest")

	tr, err := fx.g.Start(t.Context(), wait.ID())
	require.NoError(t, err)
	assert.False(t, poll(t, tr))
	assert.False(t, poll(t, tr))
	fx.clock.Advance(time.Second)
	assert.True(t, poll(t, tr))
	assert.Equal(t, 1, enters)
}

func TestTraversal_ContextCancelled(t *testing.T) {
	fx := newFixture(t)
	wait := fx.add(t, "CoroutineWaitTest")
	tr, err := fx.g.Start(t.Context(), wait.ID())
	require.NoError(t, err)
	assert.False(t, poll(t, tr))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	done, err := tr.Poll(ctx)
	assert.True(t, done)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, tr.Err(), context.Canceled)
}

func TestLoopHost_ConcurrentWalksAndEdits(t *testing.T) {
	fx := newFixture(t)
	loop := runner.NewLoop(runner.WithInterval(time.Millisecond))
	t.Cleanup(loop.Stop)

	g := graph.New(fx.reg, graph.WithHost(loop))
	start, err := g.AddCommand("Start", domain.Point{})
	require.NoError(t, err)
	sink, err := g.AddCommand("Counter", domain.Point{})
	require.NoError(t, err)
	require.NoError(t, start.ConnectNext(sink))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, g.Run(t.Context(), start.ID()))
		}()
	}
	for i := 0; i < 20; i++ {
		n, err := g.AddCommand("AddTest", domain.Point{})
		require.NoError(t, err)
		g.Remove(n.ID())
	}
	wg.Wait()

	assert.Len(t, fx.rec.all(), 8)
	assert.Equal(t, 2, g.Len())
}
