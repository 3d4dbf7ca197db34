package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/internal/config"
	"github.com/aretw0/flowgraph/internal/logging"
	fghttp "github.com/aretw0/flowgraph/pkg/adapters/http"
	"github.com/aretw0/flowgraph/pkg/adapters/file"
	"github.com/aretw0/flowgraph/pkg/adapters/memory"
	"github.com/aretw0/flowgraph/pkg/adapters/redis"
	"github.com/aretw0/flowgraph/pkg/observability"
	"github.com/aretw0/flowgraph/pkg/persistence/middleware"
	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Runtime bundles the engine with the pieces the commands share.
type Runtime struct {
	Engine  *flowgraph.Engine
	Config  config.Config
	Logger  *slog.Logger
	Streams *fghttp.StreamManager
	// Metrics is nil when metrics are disabled.
	Metrics *prometheus.Registry
}

// Setup builds the engine described by cfg. extra options are applied last.
func Setup(cfg config.Config, extra ...flowgraph.Option) (*Runtime, error) {
	logger, err := createLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Streams: fghttp.NewStreamManager(),
	}

	store, locker, err := createStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	opts := []flowgraph.Option{
		flowgraph.WithLogger(logger),
		flowgraph.WithStore(store),
		flowgraph.WithPollInterval(cfg.Runner.Interval),
	}
	if locker != nil {
		opts = append(opts, flowgraph.WithLocker(locker))
	}
	if cfg.Metrics.Enabled {
		rt.Metrics = prometheus.NewRegistry()
		rt.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := observability.NewMetrics(rt.Metrics)
		if err != nil {
			return nil, err
		}
		opts = append(opts, flowgraph.WithMetrics(m))
	}
	opts = append(opts, flowgraph.WithLifecycleHooks(rt.Streams.Hooks()))
	opts = append(opts, extra...)

	rt.Engine, err = flowgraph.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return rt, nil
}

// Close releases the engine and its store.
func (rt *Runtime) Close() error {
	return rt.Engine.Close()
}

func createStore(cfg config.StoreConfig, logger *slog.Logger) (ports.GraphStore, ports.DistributedLocker, error) {
	store, locker, err := createBackend(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var mws []middleware.Middleware
	if len(cfg.Mask) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.Mask)
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	key, err := cfg.Key()
	if err != nil {
		return nil, nil, err
	}
	if key != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	return withCloser(middleware.Chain(store, mws...), store), locker, nil
}

// closingStore keeps the backend closable behind middlewares.
type closingStore struct {
	ports.GraphStore
	io.Closer
}

func withCloser(wrapped, backend ports.GraphStore) ports.GraphStore {
	c, ok := backend.(io.Closer)
	if !ok || wrapped == backend {
		return wrapped
	}
	return closingStore{GraphStore: wrapped, Closer: c}
}

func createBackend(cfg config.StoreConfig, logger *slog.Logger) (ports.GraphStore, ports.DistributedLocker, error) {
	switch cfg.Backend {
	case config.StoreMemory:
		return memory.NewStore(), nil, nil
	case config.StoreFile:
		return file.New(cfg.Dir), nil, nil
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		logger.Debug("using redis store", "addr", cfg.Redis.Addr, "lock", cfg.Redis.Lock)
		if !cfg.Redis.Lock {
			return store, nil, nil
		}
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		return store, redis.NewLocker(store.Client(), prefix), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func createLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(level, cfg.Format), nil
}
