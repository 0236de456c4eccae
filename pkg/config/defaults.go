package config

import (
	"strings"
	"time"

	"github.com/marmos91/cachecore/internal/bytesize"
)

const (
	defaultFragmentSize     = 1 << 20 // 1 MiB fixed fragment size
	defaultMaxWritersPerODE = 4
	defaultRetryPeriod      = 50 * time.Millisecond
	defaultShardCount       = 16
	defaultSideBufferWindow = 64 << 10 // 64 KiB
	defaultShutdownTimeout  = 30 * time.Second
	defaultMetricsPort      = 9090
	defaultServerPort       = 8080
	defaultServerReadTO     = 10 * time.Second
	defaultServerWriteTO    = 10 * time.Second
	defaultServerIdleTO     = 60 * time.Second
)

// ApplyDefaults fills in zero-valued fields with sensible defaults. It never
// overwrites a field that already has a non-zero value, so explicit config
// file or environment values always win.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyCoreDefaults(&cfg.Core)
	applyServerDefaults(&cfg.Server)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	} else {
		cfg.Level = strings.ToUpper(cfg.Level)
	}

	if cfg.Format == "" {
		cfg.Format = "text"
	}

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultMetricsPort
	}
}

func applyCoreDefaults(cfg *CoreConfig) {
	if cfg.FragmentSize == 0 {
		cfg.FragmentSize = bytesize.ByteSize(defaultFragmentSize)
	}

	if cfg.MaxWritersPerODE == 0 {
		cfg.MaxWritersPerODE = defaultMaxWritersPerODE
	}

	if cfg.RetryPeriod == 0 {
		cfg.RetryPeriod = defaultRetryPeriod
	}

	if cfg.ShardCount == 0 {
		cfg.ShardCount = defaultShardCount
	}

	if cfg.SideBufferWindow == 0 {
		cfg.SideBufferWindow = bytesize.ByteSize(defaultSideBufferWindow)
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultServerPort
	}

	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultServerReadTO
	}

	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultServerWriteTO
	}

	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultServerIdleTO
	}
}

// GetDefaultConfig returns a fully-populated default configuration, suitable
// for running cachecored with no configuration file at all.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
