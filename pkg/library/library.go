package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/graph"
	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/aretw0/flowgraph/pkg/registry"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Library loads, instantiates and saves named graphs.
type Library struct {
	store    ports.GraphStore
	registry *registry.Registry

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker    ports.DistributedLocker
	lockTTL   time.Duration
	graphOpts []graph.Option
	logger    *slog.Logger
}

// Option configures the Library.
type Option func(*Library)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(l *Library) {
		l.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(l *Library) {
		l.lockTTL = ttl
	}
}

// WithGraphOptions sets the options every opened graph is created with.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(l *Library) {
		l.graphOpts = append(l.graphOpts, opts...)
	}
}

// WithLogger configures a logger for the Library.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// New creates a Library over store. Opened graphs resolve commands through reg.
func New(store ports.GraphStore, reg *registry.Registry, opts ...Option) *Library {
	l := &Library{
		store:    store,
		registry: reg,
		locks:    make(map[string]*lockEntry),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Registry returns the registry opened graphs resolve commands through.
func (l *Library) Registry() *registry.Registry {
	return l.registry
}

// Store returns the underlying graph store.
func (l *Library) Store() ports.GraphStore {
	return l.store
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release after unlocking it.
func (l *Library) acquire(name string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[name]
	if !ok {
		entry = &lockEntry{}
		l.locks[name] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and drops the entry at zero.
func (l *Library) release(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[name]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, name)
	}
}

// WithLock runs fn while holding the lock for name.
func (l *Library) WithLock(ctx context.Context, name string, fn func(context.Context) error) error {
	entry := l.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		l.release(name)
	}()

	if l.locker != nil {
		unlock, err := l.locker.Lock(ctx, name, l.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				l.logger.Warn("failed to release distributed lock, it will expire",
					"graph", name,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Open loads the named document and builds a live graph from it.
func (l *Library) Open(ctx context.Context, name string) (*graph.Graph, error) {
	var g *graph.Graph
	err := l.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		g, err = l.open(ctx, name)
		return err
	})
	return g, err
}

// OpenOrCreate opens the named graph, or stores and returns a new one holding
// a single Start node when it does not exist yet.
func (l *Library) OpenOrCreate(ctx context.Context, name string) (*graph.Graph, error) {
	var g *graph.Graph
	err := l.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		g, err = l.open(ctx, name)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrGraphNotFound) {
			return fmt.Errorf("failed to check graph existence: %w", err)
		}

		g = graph.New(l.registry, l.graphOpts...)
		if _, err := g.AddCommand("Start", domain.Point{}); err != nil {
			return fmt.Errorf("failed to seed graph %q: %w", name, err)
		}
		if err := l.store.Save(ctx, name, g.Doc()); err != nil {
			return fmt.Errorf("failed to initialize graph %q: %w", name, err)
		}
		l.logger.Info("graph created", "graph", name)
		return nil
	})
	return g, err
}

func (l *Library) open(ctx context.Context, name string) (*graph.Graph, error) {
	doc, err := l.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	g := graph.New(l.registry, l.graphOpts...)
	if err := g.Load(doc); err != nil {
		return nil, fmt.Errorf("failed to load graph %q: %w", name, err)
	}
	return g, nil
}

// Save stores the current content of g under name.
func (l *Library) Save(ctx context.Context, name string, g *graph.Graph) error {
	return l.WithLock(ctx, name, func(ctx context.Context) error {
		return l.store.Save(ctx, name, g.Doc())
	})
}

// Update opens the named graph, applies fn and saves the result, all under
// the lock for name. Nothing is saved when fn fails.
func (l *Library) Update(ctx context.Context, name string, fn func(*graph.Graph) error) error {
	return l.WithLock(ctx, name, func(ctx context.Context) error {
		g, err := l.open(ctx, name)
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			return err
		}
		return l.store.Save(ctx, name, g.Doc())
	})
}

// Delete removes the named graph from the store.
func (l *Library) Delete(ctx context.Context, name string) error {
	return l.WithLock(ctx, name, func(ctx context.Context) error {
		return l.store.Delete(ctx, name)
	})
}

// List delegates to the store.
func (l *Library) List(ctx context.Context) ([]string, error) {
	return l.store.List(ctx)
}
