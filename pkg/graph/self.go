package graph

import (
	"context"
	"log/slog"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/registry"
)

// self is the registry.Self handed to commands. It is only valid while the
// command call is in progress, when the graph lock is held.
type self struct {
	n   *Node
	ex  *execution
	res *resolution
}

var _ registry.Self = (*self)(nil)

func (s *self) ID() string { return s.n.id }

func (s *self) SetNextPort(name string, index int) error {
	p, err := s.n.port(name)
	if err != nil {
		return err
	}
	if p.kind != domain.KindControl || p.direction != domain.Output {
		return &domain.PortError{Ref: p.ref(index), Err: domain.ErrIncompatiblePorts}
	}
	if index < 0 || index >= p.slots() {
		return &domain.PortError{Ref: p.ref(index), Err: domain.ErrMissingPort}
	}
	ref := p.ref(index)
	s.ex.next = &ref
	return nil
}

func (s *self) Value(ctx context.Context, port string) (any, error) {
	p, err := s.n.port(port)
	if err != nil {
		return nil, err
	}
	return s.n.g.portValue(ctx, p, s.res)
}

func (s *self) SetValue(port string, value any) error {
	p, err := s.n.port(port)
	if err != nil {
		return err
	}
	return p.setValue(value)
}

func (s *self) Shared() registry.Values { return s.n.g.values }

func (s *self) Logger() *slog.Logger {
	return s.n.g.logger.With("node", s.n.id, "command", s.n.command)
}

func (s *self) RunPort(ctx context.Context, port string) error {
	return s.n.g.runPort(ctx, s.n, port)
}
