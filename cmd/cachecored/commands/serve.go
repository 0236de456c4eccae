package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/cachecore/cmd/cachecored/server"
	"github.com/marmos91/cachecore/internal/demo"
	"github.com/marmos91/cachecore/internal/logger"
	"github.com/marmos91/cachecore/internal/telemetry"
	"github.com/marmos91/cachecore/pkg/config"
	"github.com/marmos91/cachecore/pkg/metrics"
	"github.com/marmos91/cachecore/pkg/ode"
	"github.com/spf13/cobra"

	// Import Prometheus metrics to register init() functions.
	_ "github.com/marmos91/cachecore/pkg/metrics/prometheus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cachecored HTTP server",
	Long: `Start cachecored, which exposes PUT/GET endpoints driving the object
cache core's Write/Read VC state machines against in-memory collaborators.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/cachecore/config.yaml.

Examples:
  # Start with defaults
  cachecored serve

  # Start with a custom config file
  cachecored serve --config /etc/cachecore/config.yaml

  # Override a setting via environment variable
  CACHECORE_LOGGING_LEVEL=DEBUG cachecored serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "cachecored",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "cachecored",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("profiling disabled")
	}

	var coreMetrics metrics.CoreMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		coreMetrics = metrics.NewCoreMetrics()
		logger.Info("metrics enabled")
	} else {
		logger.Info("metrics disabled")
	}

	registry := ode.NewRegistry(cfg.Core.ShardCount, cfg.Core.MaxWritersPerODE)
	registry.Metrics = coreMetrics

	deps := &server.Deps{
		Registry:      registry,
		Dirs:          demo.NewDirectories(),
		Volume:        demo.NewVolume(),
		Scheduler:     demo.NewScheduler(),
		Objects:       demo.NewObjects(),
		Metrics:       coreMetrics,
		FixedFragSize: int64(cfg.Core.FragmentSize),
	}
	handler := server.NewHandler(deps)
	httpServer := server.NewServer(cfg.Server, handler)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- httpServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("cachecored is running, press Ctrl+C to stop", "port", cfg.Server.Port)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			return err
		}
		logger.Info("server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("server stopped")
	}

	return nil
}
