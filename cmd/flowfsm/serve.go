package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/flowfsm"
	"github.com/aretw0/flowfsm/internal/config"
	"github.com/aretw0/flowfsm/internal/presentation/tui"
	httpAdapter "github.com/aretw0/flowfsm/pkg/adapters/http"
	"github.com/aretw0/flowfsm/pkg/adapters/memory"
	"github.com/aretw0/flowfsm/pkg/executor"
	"github.com/aretw0/flowfsm/pkg/observability"
	"github.com/aretw0/flowfsm/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Start the HTTP server",
		Long: `Serves one flow over a JSON API. Contexts live in memory and are driven by a worker pool.
Settings come from FLOWFSM_* environment variables (or a .env file); flags override them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr, _ = cmd.Flags().GetString("addr")
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers, _ = cmd.Flags().GetInt("workers")
			}
			if cmd.Flags().Changed("trace") {
				cfg.Trace, _ = cmd.Flags().GetBool("trace")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cmd, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics, err := observability.NewMetrics(reg, "flowfsm")
			if err != nil {
				return err
			}
			streams := httpAdapter.NewStreamManager(logger)
			hooks := observability.Combine(metrics.Hooks(), streams.Hooks())
			if cfg.Trace {
				hooks = observability.Combine(hooks, observability.LogHooks(logger))
			}

			pool := executor.NewPool(cfg.Workers, executor.WithLogger(logger))
			opts := []flowfsm.Option{
				flowfsm.WithExecutor(pool),
				flowfsm.WithLogger(logger),
				flowfsm.WithCASRetries(cfg.CASRetries),
				flowfsm.WithLifecycleHooks(hooks),
			}
			if cfg.Trace {
				opts = append(opts, flowfsm.WithTrace())
			}
			doc, f, err := loadFlow(cmd, args[0], opts...)
			if err != nil {
				return err
			}

			sessions := session.NewManager(f, memory.NewStore(), session.WithLogger(logger))

			r := chi.NewRouter()
			r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			r.Mount("/", httpAdapter.NewHandler(f, sessions,
				httpAdapter.WithLogger(logger),
				httpAdapter.WithStreams(streams),
			))

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if interval, _ := cmd.Flags().GetDuration("prune-interval"); interval > 0 {
				go prune(ctx, sessions, interval)
			}

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				tui.PrintBanner(cmd.OutOrStdout(), flowfsm.Version)
				logger.Info("server started", "addr", srv.Addr, "flow", doc.Name, "workers", cfg.Workers)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				pool.Close()
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case <-ctx.Done():
				logger.Info("shutting down")

				// Give outstanding requests a deadline for completion.
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
					if err := srv.Close(); err != nil {
						logger.Error("failed to close server", "err", err)
					}
				}
				if err := pool.Shutdown(shutdownCtx); err != nil {
					logger.Warn("executor did not drain", "pending", pool.Pending(), "err", err)
				}
				logger.Info("server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().String("addr", "", "Listen address; overrides FLOWFSM_ADDR")
	cmd.Flags().Int("workers", 0, "Executor workers; overrides FLOWFSM_WORKERS")
	cmd.Flags().Bool("trace", false, "Log every lifecycle step; overrides FLOWFSM_TRACE")
	cmd.Flags().Duration("prune-interval", time.Minute, "Forget terminated contexts this often (0 disables)")
	return cmd
}

func prune(ctx context.Context, sessions *session.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = sessions.Prune(ctx)
		}
	}
}
