package graph_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/flowgraph/pkg/builtin"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/graph"
	"github.com/aretw0/flowgraph/pkg/registry"
	"github.com/aretw0/flowgraph/pkg/runner"
	"github.com/aretw0/flowgraph/pkg/schema"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	items []any
}

func (r *recorder) add(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.items...)
}

type fixture struct {
	g       *graph.Graph
	reg     *registry.Registry
	clock   clockwork.FakeClock
	host    *runner.Manual
	rec     *recorder
	ticks   int
	future  *registry.Future
	resolve registry.Resolver
}

func newFixture(t *testing.T, opts ...graph.Option) *fixture {
	t.Helper()
	fx := &fixture{
		clock: clockwork.NewFakeClock(),
		host:  runner.NewManual(100),
		rec:   &recorder{},
	}
	fx.future, fx.resolve = registry.NewFuture()

	fx.reg = registry.NewRegistry()
	require.NoError(t, fx.reg.Register(builtin.Groups()...))
	require.NoError(t, fx.reg.Register(fx.testGroup()))

	base := []graph.Option{graph.WithClock(fx.clock), graph.WithHost(fx.host)}
	fx.g = graph.New(fx.reg, append(base, opts...)...)
	return fx
}

func (fx *fixture) testGroup() registry.Group {
	arg := registry.Arg
	return registry.Group{
		Name: "Test",
		Definitions: []registry.Definition{
			registry.Func("LogErrorTest", func(value string) { fx.rec.add(value) }, arg("value").Default("test1")),
			registry.Func("CoroutineWaitTest", func(t float32) registry.Delay {
				return registry.Seconds(float64(t))
			}, arg("time").Default(1)),
			registry.Func("Counter", func() { fx.rec.add("tick") }),
			registry.Func("AddTest", func(a, b int) int { return a + b }, arg("a"), arg("b")),
			registry.Func("Half", func(v float64) float64 { return v / 2 }, arg("v")),
			registry.Func("Shout", func(s string) string { return s + "!" }, arg("s")),
			registry.Func("OutTest", func(a int, out *int) int {
				*out = a * 2
				return a + 1
			}, arg("a"), arg("out").Out()),
			registry.Func("Record", func(v any) { fx.rec.add(v) }, arg("v")),
			registry.Func("GetTime", func(t *int) {
				fx.ticks++
				*t = fx.ticks
			}, arg("t").AutoRun()),
			registry.Func("Echo", func(in int, out *int) { *out = in }, arg("in"), arg("out").AutoRun()),
			registry.Func("Sum", func(values []int) int {
				total := 0
				for _, v := range values {
					total += v
				}
				return total
			}, arg("values").List()),
			registry.Func("Gate", func(trigger registry.Flow) { fx.rec.add("gate") }, arg("Trigger")),
			registry.Func("Fetch", func() *registry.Future { return fx.future }).WithResult(schema.Int()),
		},
	}
}

func (fx *fixture) add(t *testing.T, command string) *graph.Node {
	t.Helper()
	n, err := fx.g.AddCommand(command, domain.Point{})
	require.NoError(t, err)
	return n
}

func (fx *fixture) link(t *testing.T, from *graph.Node, fromPort string, to *graph.Node, toPort string) {
	t.Helper()
	require.NoError(t, fx.g.Connect(ref(from, fromPort, 0), ref(to, toPort, 0)))
}

func (fx *fixture) chain(t *testing.T, nodes ...*graph.Node) {
	t.Helper()
	for i := 1; i < len(nodes); i++ {
		require.NoError(t, nodes[i-1].ConnectNext(nodes[i]))
	}
}

func (fx *fixture) set(t *testing.T, n *graph.Node, port string, v any) {
	t.Helper()
	require.NoError(t, n.SetValue(port, v))
}

func ref(n *graph.Node, port string, index int) domain.PortRef {
	return domain.PortRef{Node: n.ID(), Port: port, Index: index}
}

func value(t *testing.T, n *graph.Node, port string) any {
	t.Helper()
	v, err := n.Value(context.Background(), port)
	require.NoError(t, err)
	return v
}

func portNames(n *graph.Node) []string {
	var names []string
	for _, p := range n.Ports() {
		names = append(names, p.Name())
	}
	return names
}
