package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/internal/debugapi"
	"github.com/vango-dev/routekit/internal/telemetry"
	"github.com/vango-dev/routekit/pkg/loadercache"
	"github.com/vango-dev/routekit/pkg/router"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the debug HTTP API",
		Long: `Start a router over the route tree and expose it over HTTP.

Endpoints:
  GET  /match?href=...[&explain=1]
  GET  /state
  POST /navigate   {"href": "/posts/1", "replace": false}
  POST /preload    {"href": "/posts/2"}
  POST /back
  POST /invalidate[?route=/posts]
  GET  /dehydrate
  GET  /metrics

Examples:
  routekit serve
  routekit serve --port=8080 --tree=routes.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				p.cfg.Serve.Port = port
			}
			if host != "" {
				p.cfg.Serve.Host = host
			}
			return runServe(cmd.Context(), p)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from routekit.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from routekit.json)")

	return cmd
}

func runServe(ctx context.Context, p *project) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := p.cfg.Logger(os.Stderr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs := telemetry.New(telemetry.WithMetrics(telemetry.NewMetrics(telemetry.WithRegistry(reg))))

	r, err := p.newRouter([]loadercache.Option{loadercache.WithHooks(obs.CacheHooks())}, router.WithObserver(obs))
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Load(ctx); err != nil {
		logger.Warn("initial load failed", "error", err)
	}

	api := debugapi.New(r,
		debugapi.WithGatherer(reg),
		debugapi.WithFormat(p.cfg.Format()),
		debugapi.WithLogger(logger.With("component", "debugapi")),
	)
	srv := &http.Server{
		Addr:              p.cfg.ServeAddress(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	success("Serving %s on http://%s", p.cfg.TreePath(), srv.Addr)
	info("metrics at http://%s/metrics", srv.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
