package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"askview/internal/app/askview"
	httpserver "askview/internal/delivery/server/http"
	"askview/internal/observability"
	"askview/internal/shared/logging"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ask decode HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.runServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func (c *cli) runServe(ctx context.Context) error {
	lifecycle := logging.NewComponentLogger("Serve")
	obsCfg := c.cfg.Observability
	logger := c.structuredLogger(os.Stderr)

	tracer, err := observability.NewTracerProvider(obsCfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	metrics, err := observability.NewMetricsCollector(obsCfg.Metrics, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	svc, err := c.newService(
		askview.WithLogger(logger),
		askview.WithTracer(tracer),
		askview.WithMetrics(observability.NewDecodeMetrics()),
	)
	if err != nil {
		return err
	}

	deps := httpserver.Deps{
		Decoder: svc,
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
		Version: version,
	}
	if obsCfg.Metrics.Enabled {
		deps.Gatherer = prometheus.DefaultGatherer
		deps.MetricsPath = obsCfg.Metrics.Path
	}
	server, err := httpserver.NewServer(c.cfg.Server, deps)
	if err != nil {
		return err
	}

	if file := c.meta.ConfigFile(); file != "" {
		lifecycle.Info("Loaded config from %s", file)
	}
	lifecycle.Info("Serving on %s (cors=%t, metrics=%t, tracing=%t)",
		c.cfg.Server.Addr, c.cfg.Server.EnableCORS, obsCfg.Metrics.Enabled, obsCfg.Tracing.Enabled)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(server.Start)
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
		}
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		lifecycle.Info("Server stopped")
		return errors.Join(errs...)
	})
	return group.Wait()
}
