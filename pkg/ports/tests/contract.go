// Package tests holds contract suites shared by port implementations.
package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Settle lets a host finish the work it has spawned. Loop hosts wait on their
// errgroup, manual hosts step their queue.
type Settle func(ctx context.Context, host ports.Host) error

// countdown is a unit of work that finishes after a fixed number of polls.
type countdown struct {
	left   atomic.Int32
	polls  atomic.Int32
	err    error
	onPoll func()
}

func newCountdown(n int32) *countdown {
	c := &countdown{}
	c.left.Store(n)
	return c
}

func (c *countdown) Poll(ctx context.Context) (bool, error) {
	c.polls.Add(1)
	if c.onPoll != nil {
		c.onPoll()
	}
	if c.err != nil {
		return true, c.err
	}
	return c.left.Add(-1) <= 0, nil
}

// Suspended is false so hosts never wait between polls.
func (c *countdown) Suspended() bool { return false }

// HostContractTest verifies that a host drives and spawns work the way graphs
// expect. newHost must return a fresh host on every call.
func HostContractTest(t *testing.T, newHost func() ports.Host, settle Settle) {
	t.Helper()
	ctx := context.Background()

	t.Run("Drive_PollsUntilDone", func(t *testing.T) {
		work := newCountdown(4)
		require.NoError(t, newHost().Drive(ctx, work))
		assert.Equal(t, int32(4), work.polls.Load())
	})

	t.Run("Drive_ReturnsWorkError", func(t *testing.T) {
		boom := errors.New("boom")
		work := newCountdown(3)
		work.err = boom

		err := newHost().Drive(ctx, work)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int32(1), work.polls.Load())
	})

	t.Run("Drive_StopsOnCancel", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		work := newCountdown(1000)
		work.onPoll = func() {
			if work.polls.Load() == 2 {
				cancel()
			}
		}

		err := newHost().Drive(cctx, work)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, work.polls.Load(), int32(1000))
	})

	t.Run("Spawn_DoesNotBlock", func(t *testing.T) {
		host := newHost()
		work := newCountdown(3)

		returned := make(chan struct{})
		go func() {
			host.Spawn(ctx, work)
			close(returned)
		}()
		select {
		case <-returned:
		case <-time.After(time.Second):
			t.Fatal("Spawn blocked")
		}

		require.NoError(t, settle(ctx, host))
		assert.Equal(t, int32(3), work.polls.Load())
	})

	t.Run("Spawn_RunsEveryUnit", func(t *testing.T) {
		host := newHost()
		want := []int32{1, 2, 5}
		units := make([]*countdown, len(want))
		for i, n := range want {
			units[i] = newCountdown(n)
			host.Spawn(ctx, units[i])
		}

		require.NoError(t, settle(ctx, host))
		for i, u := range units {
			assert.Equal(t, want[i], u.polls.Load(), "unit %d", i)
		}
	})

	t.Run("Spawn_FromWork", func(t *testing.T) {
		host := newHost()
		child := newCountdown(2)
		parent := newCountdown(1)
		parent.onPoll = func() { host.Spawn(ctx, child) }

		require.NoError(t, host.Drive(ctx, parent))
		require.NoError(t, settle(ctx, host))
		assert.Equal(t, int32(2), child.polls.Load())
	})
}
