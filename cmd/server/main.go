// Package main provides the entry point for the CyberGuard server.
// It serves the threat-intel API and runs scheduled OSINT ingestion.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lvonguyen/cyberguard/internal/api"
	"github.com/lvonguyen/cyberguard/internal/scoring"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "cyberguard",
		Short:         "CyberGuard threat intelligence service",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newFetchCmd(&configPath))
	root.AddCommand(newCheckCmd())

	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the OSINT scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			return a.serve(ctx)
		},
	}
}

func newFetchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Run one OSINT ingestion cycle and print its summary as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			result := a.scheduler.RunCycle(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <domain>",
		Short: "Print the heuristic assessment of a domain name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := scoring.Normalize(args[0])
			if name == "" {
				return fmt.Errorf("domain is required")
			}
			return writeJSON(cmd.OutOrStdout(), scoring.Assess(name))
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) serve(ctx context.Context) error {
	a.telemetry.StartSystemMetricsCollector(ctx)

	if a.cfg.OSINT.EnabledOnStart {
		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start OSINT scheduler: %w", err)
		}
		defer a.scheduler.Stop()
	}

	router := api.NewRouter(api.Deps{
		Domains:        a.domains,
		Alerts:         a.alerts,
		Scheduler:      a.scheduler,
		Store:          a.store,
		Metrics:        a.telemetry.Metrics(),
		MetricsHandler: a.telemetry.MetricsHandler(),
		Limiter:        a.limiter,
		Logger:         a.logger,
		Version:        Version,
		RequestTimeout: a.cfg.Server.WriteTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  2 * a.cfg.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Server listening",
			zap.String("addr", server.Addr),
			zap.String("environment", a.cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutdown signal received, shutting down")
	a.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Shutdown error", zap.Error(err))
	}
	if err := a.scheduler.Wait(shutdownCtx); err != nil {
		a.logger.Warn("OSINT cycle still running at shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped")
	return nil
}
