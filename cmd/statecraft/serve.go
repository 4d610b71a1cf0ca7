package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/presentation/tui"
	httpadapter "github.com/aretw0/statecraft/pkg/adapters/http"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serves transitions, history and workflow introspection as a JSON API,
with a server-sent event stream of transitions on /events and Prometheus metrics on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := a.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := []httpadapter.Option{
				httpadapter.WithLogger(a.logger),
				httpadapter.WithVersion(strings.TrimSpace(statecraft.Version)),
			}
			if a.cfg.Server.Metrics {
				opts = append(opts, httpadapter.WithMetrics(rt.Registry))
			}
			api := httpadapter.NewServer(rt.Engine, opts...)
			rt.Engine.AddListener(api.Listener())

			srv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
			}

			tui.PrintBanner(cmd.ErrOrStderr())

			serverErrors := make(chan error, 1)
			go func() {
				a.logger.Info("Starting Statecraft Server", "addr", srv.Addr, "workflows", rt.Engine.Workflows())
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				a.logger.Info("Shutdown signal received")
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.Warn("Graceful shutdown did not complete", "timeout", a.cfg.Server.ShutdownTimeout, "error", err)
					_ = srv.Close()
				}
				a.logger.Info("Statecraft Server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	return cmd
}
