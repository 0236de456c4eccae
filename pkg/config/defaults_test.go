package config

import "testing"

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default format text, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("expected default output stdout, got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != defaultShutdownTimeout {
		t.Errorf("expected default shutdown timeout %v, got %v", defaultShutdownTimeout, cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Core(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Core.FragmentSize != defaultFragmentSize {
		t.Errorf("expected default fragment size %d, got %d", defaultFragmentSize, cfg.Core.FragmentSize)
	}
	if cfg.Core.MaxWritersPerODE != defaultMaxWritersPerODE {
		t.Errorf("expected default max writers %d, got %d", defaultMaxWritersPerODE, cfg.Core.MaxWritersPerODE)
	}
	if cfg.Core.RetryPeriod != defaultRetryPeriod {
		t.Errorf("expected default retry period %v, got %v", defaultRetryPeriod, cfg.Core.RetryPeriod)
	}
	if cfg.Core.ShardCount != defaultShardCount {
		t.Errorf("expected default shard count %d, got %d", defaultShardCount, cfg.Core.ShardCount)
	}
	if cfg.Core.SideBufferWindow != defaultSideBufferWindow {
		t.Errorf("expected default side buffer window %d, got %d", defaultSideBufferWindow, cfg.Core.SideBufferWindow)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Metrics.Port != defaultMetricsPort {
		t.Errorf("expected default metrics port %d, got %d", defaultMetricsPort, cfg.Metrics.Port)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Core: CoreConfig{
			ShardCount: 64,
		},
	}
	ApplyDefaults(cfg)

	if cfg.Core.ShardCount != 64 {
		t.Errorf("expected explicit shard count 64 to be preserved, got %d", cfg.Core.ShardCount)
	}
	// Untouched fields still get defaults applied.
	if cfg.Core.MaxWritersPerODE != defaultMaxWritersPerODE {
		t.Errorf("expected default max writers to still apply, got %d", cfg.Core.MaxWritersPerODE)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level == "" {
		t.Error("expected non-empty logging level")
	}
	if cfg.Metrics.Port == 0 {
		t.Error("expected non-zero metrics port")
	}
	if cfg.Core.FragmentSize == 0 {
		t.Error("expected non-zero fragment size")
	}
	if cfg.Core.ShardCount == 0 {
		t.Error("expected non-zero shard count")
	}
}
