package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/internal/config"
	"github.com/aretw0/flowgraph/pkg/adapters/file"
	"github.com/aretw0/flowgraph/pkg/adapters/memory"
	"github.com/aretw0/flowgraph/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetGraph = `nodes:
  - id: Start
    command: Start
    ports:
      - name: Next
        connections:
          - to: {node: set, port: From}
  - id: set
    command: SetValue
    ports:
      - {name: key, literal: greeting}
      - {name: value, literal: hello}
  - id: lonely
    command: Log
`

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Store.Backend = backend
	cfg.Store.Dir = t.TempDir()
	return cfg
}

func writeGraph(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "greet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(greetGraph), 0o644))
	return path
}

func TestSetup_Backends(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		rt, err := Setup(testConfig(t, config.StoreMemory))
		require.NoError(t, err)
		defer rt.Close()
		assert.IsType(t, &memory.Store{}, rt.Engine.Library().Store())
		assert.NotNil(t, rt.Metrics)
	})

	t.Run("file", func(t *testing.T) {
		rt, err := Setup(testConfig(t, config.StoreFile))
		require.NoError(t, err)
		defer rt.Close()
		assert.IsType(t, &file.Store{}, rt.Engine.Library().Store())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t, config.StoreRedis)
		cfg.Store.Redis.Addr = mr.Addr()
		cfg.Store.Redis.Lock = true
		cfg.Metrics.Enabled = false

		rt, err := Setup(cfg)
		require.NoError(t, err)
		defer rt.Close()
		assert.IsType(t, &redis.Store{}, rt.Engine.Library().Store())
		assert.Nil(t, rt.Metrics)

		ctx := context.Background()
		g, err := rt.Engine.Library().OpenOrCreate(ctx, "shared")
		require.NoError(t, err)
		assert.Equal(t, 1, g.Len())
		assert.True(t, mr.Exists(redis.DefaultPrefix+"shared"))
	})

	t.Run("bad level", func(t *testing.T) {
		cfg := testConfig(t, config.StoreMemory)
		cfg.Log.Level = "loud"
		_, err := Setup(cfg)
		assert.Error(t, err)
	})

	t.Run("bad backend", func(t *testing.T) {
		_, err := Setup(testConfig(t, "tape"))
		assert.ErrorContains(t, err, "unknown store backend")
	})
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	rt, err := Setup(testConfig(t, config.StoreFile))
	require.NoError(t, err)
	defer rt.Close()
	path := writeGraph(t)

	var out bytes.Buffer
	err = Execute(ctx, rt, RunOptions{Target: path, Start: "Start", Values: `{"player":"ana"}`, Save: true}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), ">>> Finished 'greet' from 'Start'.")
	assert.Contains(t, out.String(), "    greeting = hello\n")
	assert.Contains(t, out.String(), "    player = ana\n")

	// Saved under the file name, values included.
	doc, err := rt.Engine.Library().Store().Load(ctx, "greet")
	require.NoError(t, err)
	assert.Equal(t, "hello", doc.Values["greeting"])

	out.Reset()
	require.NoError(t, Execute(ctx, rt, RunOptions{Target: "greet", Start: "set", Quiet: true}, &out))
	assert.Empty(t, out.String())

	err = Execute(ctx, rt, RunOptions{Target: path, Start: "Start", Values: "{"}, &out)
	assert.ErrorContains(t, err, "--values")

	err = Execute(ctx, rt, RunOptions{Target: "missing", Start: "Start"}, &out)
	assert.Error(t, err)
}

func TestExecute_Interrupted(t *testing.T) {
	rt, err := Setup(testConfig(t, config.StoreMemory))
	require.NoError(t, err)
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	require.NoError(t, Execute(ctx, rt, RunOptions{Target: writeGraph(t), Start: "Start"}, &out))
	assert.Contains(t, out.String(), "Interrupted in 'greet'.")
}

func TestValidate(t *testing.T) {
	rt, err := Setup(testConfig(t, config.StoreMemory))
	require.NoError(t, err)
	defer rt.Close()

	report, err := Validate(context.Background(), rt, writeGraph(t))
	require.NoError(t, err)
	assert.NoError(t, report.Err())
	require.Len(t, report.Warnings(), 1)
	assert.Equal(t, "lonely", report.Warnings()[0].Node)

	_, err = Validate(context.Background(), rt, "nowhere")
	assert.Error(t, err)
}

func TestDiagramAndInspect(t *testing.T) {
	tracer := NewTracer()
	rt, err := Setup(testConfig(t, config.StoreMemory), flowgraph.WithLifecycleHooks(tracer.Hooks()))
	require.NoError(t, err)
	defer rt.Close()
	path := writeGraph(t)

	chart, err := Diagram(context.Background(), rt, path, "", nil)
	require.NoError(t, err)
	assert.Contains(t, chart, "graph TD")
	assert.NotContains(t, chart, "classDef visited")

	chart, err = Diagram(context.Background(), rt, path, "Start", tracer)
	require.NoError(t, err)
	assert.Contains(t, chart, "classDef visited")
	assert.Equal(t, []string{"Start", "set"}, tracer.Overlay().VisitedNodes)
	assert.Equal(t, "set", tracer.Overlay().CurrentNode)

	md, err := Inspect(context.Background(), rt, path)
	require.NoError(t, err)
	assert.Contains(t, md, "# greet")
	assert.Contains(t, md, "lonely")
}

func TestHandler(t *testing.T) {
	rt, err := Setup(testConfig(t, config.StoreMemory))
	require.NoError(t, err)
	defer rt.Close()
	h := Handler(rt)

	for _, path := range []string{"/healthz", "/metrics", "/graphs"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	rt, err := Setup(testConfig(t, config.StoreMemory))
	require.NoError(t, err)
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, rt, "127.0.0.1:0", io.Discard) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestSetup_ProtectedStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.StoreFile)
	cfg.Store.Mask = []string{"(?i)token"}
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32))
	rt, err := Setup(cfg)
	require.NoError(t, err)
	defer rt.Close()

	g, err := rt.Engine.Parse([]byte(greetGraph))
	require.NoError(t, err)
	require.NoError(t, g.Values().Set("apiToken", "abc"))
	require.NoError(t, rt.Engine.Library().Save(ctx, "greet", g))

	raw, err := file.New(cfg.Store.Dir).Load(ctx, "greet")
	require.NoError(t, err)
	assert.Empty(t, raw.Nodes)

	loaded, err := rt.Engine.Library().Open(ctx, "greet")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
	v, _ := loaded.Values().Get("apiToken")
	assert.Equal(t, "***", v)
}
