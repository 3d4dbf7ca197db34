package library_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/flowgraph/pkg/adapters/memory"
	"github.com/aretw0/flowgraph/pkg/adapters/redis"
	"github.com/aretw0/flowgraph/pkg/builtin"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/graph"
	"github.com/aretw0/flowgraph/pkg/library"
	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/aretw0/flowgraph/pkg/registry"
	"github.com/aretw0/flowgraph/pkg/runner"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register(builtin.Groups()...))
	return reg
}

func TestLibrary_OpenOrCreate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	lib := library.New(store, newRegistry(t))

	_, err := lib.Open(ctx, "main")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)

	g, err := lib.OpenOrCreate(ctx, "main")
	require.NoError(t, err)
	_, ok := g.Node("Start")
	assert.True(t, ok)

	names, err := lib.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, names)

	again, err := lib.OpenOrCreate(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, g.Doc(), again.Doc())
}

func TestLibrary_SaveAndOpenRuns(t *testing.T) {
	ctx := context.Background()
	host := runner.NewManual(0)
	lib := library.New(memory.NewStore(), newRegistry(t), library.WithGraphOptions(graph.WithHost(host)))

	g := graph.New(lib.Registry(), graph.WithHost(host))
	start, err := g.AddCommand("Start", domain.Point{})
	require.NoError(t, err)
	set, err := g.AddCommand("SetValue", domain.Point{})
	require.NoError(t, err)
	require.NoError(t, set.SetValue("key", "ran"))
	require.NoError(t, set.SetValue("value", true))
	require.NoError(t, start.ConnectNext(set))
	require.NoError(t, lib.Save(ctx, "main", g))

	opened, err := lib.Open(ctx, "main")
	require.NoError(t, err)
	require.NoError(t, opened.Run(ctx, "Start"))
	v, ok := opened.Values().Get("ran")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestLibrary_UpdateSerializesWriters(t *testing.T) {
	ctx := context.Background()
	lib := library.New(memory.NewStore(), newRegistry(t))
	_, err := lib.OpenOrCreate(ctx, "main")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, lib.Update(ctx, "main", func(g *graph.Graph) error {
				_, err := g.AddCommand("Log", domain.Point{})
				return err
			}))
		}()
	}
	wg.Wait()

	g, err := lib.Open(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 11, g.Len(), "no update is lost")
}

func TestLibrary_UpdateFailureSavesNothing(t *testing.T) {
	ctx := context.Background()
	lib := library.New(memory.NewStore(), newRegistry(t))
	_, err := lib.OpenOrCreate(ctx, "main")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = lib.Update(ctx, "main", func(g *graph.Graph) error {
		_, _ = g.AddCommand("Log", domain.Point{})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	g, err := lib.Open(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	args := m.Called(ctx, key, ttl)
	unlock, _ := args.Get(0).(ports.UnlockFunc)
	return unlock, args.Error(1)
}

func TestLibrary_DistributedLock(t *testing.T) {
	ctx := context.Background()
	released := false
	locker := &mockLocker{}
	locker.On("Lock", mock.Anything, "main", 5*time.Second).
		Return(ports.UnlockFunc(func(context.Context) error {
			released = true
			return nil
		}), nil).Once()

	lib := library.New(memory.NewStore(), newRegistry(t), library.WithLocker(locker), library.WithLockTTL(5*time.Second))
	require.NoError(t, lib.WithLock(ctx, "main", func(context.Context) error { return nil }))

	locker.AssertExpectations(t)
	assert.True(t, released)
}

func TestLibrary_DistributedLockFailure(t *testing.T) {
	locker := &mockLocker{}
	locker.On("Lock", mock.Anything, "main", library.DefaultLockTTL).Return(nil, context.DeadlineExceeded)

	lib := library.New(memory.NewStore(), newRegistry(t), library.WithLocker(locker))
	called := false
	err := lib.WithLock(context.Background(), "main", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestLibrary_RedisBackend(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lib := library.New(
		redis.NewFromClient(client),
		newRegistry(t),
		library.WithLocker(redis.NewLocker(client, redis.DefaultPrefix)),
	)
	_, err := lib.OpenOrCreate(ctx, "shared")
	require.NoError(t, err)
	require.NoError(t, lib.Update(ctx, "shared", func(g *graph.Graph) error {
		_, err := g.AddCommand("Delay", domain.Point{X: 50})
		return err
	}))

	g, err := lib.Open(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.False(t, mr.Exists(redis.DefaultPrefix+"lock:shared"), "lock released")
}
