package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/aretw0/flowgraph/pkg/ports/tests"
	"github.com/aretw0/flowgraph/pkg/runner"
)

func TestLoop_HostContract(t *testing.T) {
	tests.HostContractTest(t,
		func() ports.Host { return runner.NewLoop() },
		func(ctx context.Context, h ports.Host) error { return h.(*runner.Loop).Wait(ctx) },
	)
}

func TestManual_HostContract(t *testing.T) {
	tests.HostContractTest(t,
		func() ports.Host { return runner.NewManual(100) },
		func(ctx context.Context, h ports.Host) error {
			m := h.(*runner.Manual)
			if !m.RunUntilIdle(ctx, 100) {
				return runner.ErrStalled
			}
			return errors.Join(m.Errors()...)
		},
	)
}
