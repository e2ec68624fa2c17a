package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default run config
	if cfg.Run.HardCap != 12 {
		t.Errorf("Run.HardCap = %d, want 12", cfg.Run.HardCap)
	}
	if cfg.Run.MinTurns != 2 {
		t.Errorf("Run.MinTurns = %d, want 2", cfg.Run.MinTurns)
	}
	if cfg.Run.ConfidenceThreshold != 0.55 {
		t.Errorf("Run.ConfidenceThreshold = %f, want 0.55", cfg.Run.ConfidenceThreshold)
	}
	if cfg.Run.StallRepeatThreshold != 2 {
		t.Errorf("Run.StallRepeatThreshold = %d, want 2", cfg.Run.StallRepeatThreshold)
	}
	if cfg.Run.ConsecutiveErrorCap != 3 {
		t.Errorf("Run.ConsecutiveErrorCap = %d, want 3", cfg.Run.ConsecutiveErrorCap)
	}

	// Verify default retry config
	if cfg.Retry.MaxRetries != 2 {
		t.Errorf("Retry.MaxRetries = %d, want 2", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelayMs != 2000 {
		t.Errorf("Retry.BaseDelayMs = %d, want 2000", cfg.Retry.BaseDelayMs)
	}

	// Verify default engine config
	if cfg.Engine.MaxCapabilityRounds != 5 {
		t.Errorf("Engine.MaxCapabilityRounds = %d, want 5", cfg.Engine.MaxCapabilityRounds)
	}

	// Verify default capabilities config
	if len(cfg.Capabilities.DefaultEnabled) != 1 || cfg.Capabilities.DefaultEnabled[0] != "*" {
		t.Errorf("Capabilities.DefaultEnabled = %v, want [*]", cfg.Capabilities.DefaultEnabled)
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestRetryConfig_BaseDelay(t *testing.T) {
	tests := []struct {
		ms       int
		expected time.Duration
	}{
		{2000, 2 * time.Second},
		{500, 500 * time.Millisecond},
		{0, 0},
	}

	for _, tt := range tests {
		cfg := RetryConfig{BaseDelayMs: tt.ms}
		result := cfg.BaseDelay()
		if result != tt.expected {
			t.Errorf("BaseDelay() with %dms = %v, want %v", tt.ms, result, tt.expected)
		}
	}
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with only defaults: %v", err)
	}
	if cfg.Run.HardCap != 12 {
		t.Errorf("Run.HardCap = %d, want 12", cfg.Run.HardCap)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("run.hard_cap", 20)
	viper.Set("logging.level", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if cfg.Run.HardCap != 20 {
		t.Errorf("Run.HardCap = %d, want 20", cfg.Run.HardCap)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_InvalidConfigFails(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("run.hard_cap", 0)

	if _, err := Load(); err == nil {
		t.Error("Load() with run.hard_cap=0 should fail validation")
	}
}

func TestPathsConfig_ResolveDataDir(t *testing.T) {
	t.Run("explicit absolute path", func(t *testing.T) {
		p := PathsConfig{DataDir: "/var/lib/parley"}
		if got := p.ResolveDataDir(); got != "/var/lib/parley" {
			t.Errorf("ResolveDataDir() = %q, want /var/lib/parley", got)
		}
	})

	t.Run("tilde expansion", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		p := PathsConfig{DataDir: "~/parley-data"}
		want := filepath.Join(home, "parley-data")
		if got := p.ResolveDataDir(); got != want {
			t.Errorf("ResolveDataDir() = %q, want %q", got, want)
		}
	})

	t.Run("xdg data home", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
		p := PathsConfig{}
		want := filepath.Join("/tmp/xdg-data", "parley", "sessions")
		if got := p.ResolveDataDir(); got != want {
			t.Errorf("ResolveDataDir() = %q, want %q", got, want)
		}
	})
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	want := filepath.Join("/tmp/xdg-config", "parley")
	if got := ConfigDir(); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}
