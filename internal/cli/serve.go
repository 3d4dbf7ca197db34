package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aretw0/flowgraph"
	fghttp "github.com/aretw0/flowgraph/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds how long outstanding requests may run after ctx ends.
const ShutdownTimeout = 5 * time.Second

// Handler builds the HTTP handler of serve.
func Handler(rt *Runtime) http.Handler {
	opts := []fghttp.Option{
		fghttp.WithLogger(rt.Logger),
		fghttp.WithStreams(rt.Streams),
		fghttp.WithVersion(flowgraph.Version),
	}
	if rt.Metrics != nil {
		opts = append(opts, fghttp.WithMetricsHandler(promhttp.HandlerFor(rt.Metrics, promhttp.HandlerOpts{})))
	}
	return fghttp.NewHandler(rt.Engine, opts...)
}

// Serve listens on addr until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, rt *Runtime, addr string, out io.Writer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(rt),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		printSystemMessage(out, "Serving graphs on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() == nil {
			// The listener failed; nothing to drain.
			return nil
		}
		printSystemMessage(out, "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.Logger.Error("graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			return srv.Close()
		}
		printSystemMessage(out, "Server stopped gracefully")
		return nil
	})
	return g.Wait()
}
