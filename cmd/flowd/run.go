package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/flowd/pkg/api"
	"github.com/cuemby/flowd/pkg/config"
	"github.com/cuemby/flowd/pkg/log"
	"github.com/cuemby/flowd/pkg/metrics"
	"github.com/cuemby/flowd/pkg/topology"
	"github.com/spf13/cobra"
)

var (
	runConfigPath  string
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dataplane (default command)",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "flowd.yaml", "Path to the config file")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-address", "127.0.0.1:9090", "Address for the always-on health/metrics HTTP server")
	rootCmd.RunE = runRun
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("flowd")

	cfg, err := config.Load(runConfigPath, "")
	if err != nil {
		return &configError{err}
	}

	reg := builtinRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := topology.Build(ctx, cfg, reg)
	if err != nil {
		return &configError{fmt.Errorf("build topology: %w", err)}
	}

	metrics.RegisterComponent("topology", true, "built")
	// "api" is a critical component for readiness even when disabled by
	// config: a deployment that never enables it shouldn't sit
	// permanently "not ready" waiting on a server it never asked for.
	metrics.RegisterComponent("api", true, "disabled")

	errCh := make(chan error, 1)
	go func() {
		errCh <- rt.Run(ctx)
	}()

	// The coarse health/metrics surface is always on, mirroring a
	// loopback-only metrics port a scrape target can always reach even
	// when the introspection API is disabled.
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/health", metrics.HealthHandler())
	metricsMux.HandleFunc("/ready", metrics.ReadyHandler())
	metricsMux.HandleFunc("/live", metrics.LivenessHandler())
	metricsMux.Handle("/metrics", metricsHandler())
	metricsSrv := &http.Server{Addr: runMetricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn().Err(err).Msg("metrics server stopped")
		}
	}()
	defer metricsSrv.Close()

	// The topology-aware introspection surface (gRPC + its own /health,
	// /ready, /metrics) only stands up when api.enabled is set.
	var apiServer *api.Server
	var healthServer *api.HealthServer
	if cfg.API.Enabled {
		apiServer = api.NewServer(rt)
		healthServer = api.NewHealthServer(rt)
		go func() {
			if err := apiServer.Start(cfg.API.Address); err != nil {
				logger.Warn().Err(err).Msg("api server stopped")
			}
		}()
		go func() {
			if err := healthServer.Start(httpAddrFor(cfg.API.Address)); err != nil && err != http.ErrServerClosed {
				logger.Warn().Err(err).Msg("api health server stopped")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info().Msg("reload signal received")
				newCfg, err := config.Load(runConfigPath, "")
				if err != nil {
					logger.Error().Err(err).Msg("reload: config load failed, keeping previous generation")
					continue
				}
				if err := rt.Reload(ctx, newCfg); err != nil {
					logger.Error().Err(err).Msg("reload failed, keeping previous generation")
				} else {
					cfg = newCfg
					logger.Info().Msg("reload complete")
				}
				continue
			}

			logger.Info().Msg("shutdown signal received")
			return shutdown(rt, cfg, apiServer)

		case err := <-errCh:
			if err != nil {
				logger.Error().Err(err).Msg("topology run failed")
				_ = shutdown(rt, cfg, apiServer)
				return err
			}
			return shutdown(rt, cfg, apiServer)
		}
	}
}

func shutdown(rt *topology.Runtime, cfg topology.Config, apiServer *api.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.GraceDuration())
	defer cancel()

	if apiServer != nil {
		apiServer.Stop()
	}

	if err := rt.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Println("shutdown complete")
	return nil
}

// httpAddrFor derives the plain-HTTP health port from the gRPC address,
// one port above it, so a single api.address config key stands up both
// without a second config key.
func httpAddrFor(grpcAddr string) string {
	host, port, err := splitHostPort(grpcAddr)
	if err != nil {
		return grpcAddr
	}
	var p int
	fmt.Sscanf(port, "%d", &p)
	return fmt.Sprintf("%s:%d", host, p+1)
}

func splitHostPort(addr string) (string, string, error) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("no port in address %q", addr)
}

func metricsHandler() http.Handler {
	return metrics.Handler()
}
