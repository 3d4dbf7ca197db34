package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_Drive(t *testing.T) {
	m := NewManual(10)

	work := newCountdown(3)
	require.NoError(t, m.Drive(context.Background(), work))
	assert.Equal(t, int32(3), work.polls.Load())

	stuck := newCountdown(100)
	err := m.Drive(context.Background(), stuck)
	assert.ErrorIs(t, err, ErrStalled)
	assert.Equal(t, int32(10), stuck.polls.Load())
}

func TestManual_StepPollsEachQueuedUnitOnce(t *testing.T) {
	m := NewManual(0)
	a, b := newCountdown(1), newCountdown(2)
	m.Spawn(context.Background(), a)
	m.Spawn(context.Background(), b)
	assert.Equal(t, 2, m.Pending())

	m.Step(context.Background())
	assert.Equal(t, int32(1), a.polls.Load())
	assert.Equal(t, int32(1), b.polls.Load())
	assert.Equal(t, 1, m.Pending())

	assert.True(t, m.RunUntilIdle(context.Background(), 5))
	assert.Equal(t, int32(2), b.polls.Load())
}

func TestManual_CollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	m := NewManual(0)
	work := newCountdown(1)
	work.err = boom

	m.Spawn(context.Background(), work)
	m.Step(context.Background())

	require.Len(t, m.Errors(), 1)
	assert.ErrorIs(t, m.Errors()[0], boom)
	assert.Zero(t, m.Pending())
}

func TestManual_TracksRuns(t *testing.T) {
	boom := errors.New("boom")
	m := NewManual(0)
	run := NewTracker()
	ctx := WithTracker(context.Background(), run)

	work := newCountdown(2)
	failing := newCountdown(1)
	failing.err = boom
	m.Spawn(ctx, work)
	m.Spawn(ctx, failing)
	m.Spawn(context.Background(), newCountdown(5))
	assert.Equal(t, 2, run.Running())

	m.Step(context.Background())
	assert.Equal(t, 1, run.Running())
	m.Step(context.Background())
	assert.Equal(t, 0, run.Running())
	assert.Equal(t, 1, m.Pending(), "untracked work keeps running")
	assert.ErrorIs(t, run.Wait(context.Background()), boom)
}
