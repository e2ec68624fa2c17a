package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Parley configuration
type Config struct {
	Run          RunConfig          `mapstructure:"run"`
	Retry        RetryConfig        `mapstructure:"retry"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Capabilities CapabilitiesConfig `mapstructure:"capabilities"`
	TUI          TUIConfig          `mapstructure:"tui"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Paths        PathsConfig        `mapstructure:"paths"`
}

// RunConfig controls the turn orchestration loop
type RunConfig struct {
	// HardCap is the maximum number of turns in one run (default: 12)
	HardCap int `mapstructure:"hard_cap"`
	// MinTurns is the minimum-turns guard: early stop signals arriving
	// before this many turns are deferred so every agent gets a look (default: 2)
	MinTurns int `mapstructure:"min_turns"`
	// ConfidenceThreshold pauses the run for human input when an agent
	// reports confidence below it alongside open questions (default: 0.55)
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	// StallRepeatThreshold is how many prior consecutive occurrences of a
	// state signature declare a stall (default: 2)
	StallRepeatThreshold int `mapstructure:"stall_repeat_threshold"`
	// ConsecutiveErrorCap stops the run after this many agent-call failures
	// in a row (default: 3)
	ConsecutiveErrorCap int `mapstructure:"consecutive_error_cap"`
	// WindowSize is how many recent transcript messages agents see (default: 20)
	WindowSize int `mapstructure:"window_size"`
}

// RetryConfig controls backoff for rate-limited reasoning-engine calls
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first
	// failure (default: 2)
	MaxRetries int `mapstructure:"max_retries"`
	// BaseDelayMs is the backoff base in milliseconds; attempt n waits
	// base * 2^n (default: 2000)
	BaseDelayMs int `mapstructure:"base_delay_ms"`
}

// BaseDelay returns the backoff base as a time.Duration
func (c *RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

// EngineConfig controls the reasoning-engine adapter
type EngineConfig struct {
	// MaxCapabilityRounds bounds engine round-trips within one turn (default: 5)
	MaxCapabilityRounds int `mapstructure:"max_capability_rounds"`
}

// CapabilitiesConfig controls which information-retrieval capabilities are
// offered to agents when the session meta does not name any
type CapabilitiesConfig struct {
	// DefaultEnabled is a list of glob patterns matched against capability
	// names, e.g. ["*"] or ["calendar_*", "web_search"] (default: ["*"])
	DefaultEnabled []string `mapstructure:"default_enabled"`
}

// TUIConfig controls the terminal UI behavior
type TUIConfig struct {
	// MaxFeedLines limits how many event lines the feed viewport keeps (default: 500)
	MaxFeedLines int `mapstructure:"max_feed_lines"`
	// ShowStatePanel shows the live canonical-state panel beside the feed (default: true)
	ShowStatePanel bool `mapstructure:"show_state_panel"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// PathsConfig controls where Parley stores session data
type PathsConfig struct {
	// DataDir is the directory holding per-session state and transcripts.
	// If empty, defaults to the XDG data directory. Supports ~ expansion.
	DataDir string `mapstructure:"data_dir"`
}

// ResolveDataDir returns the resolved session data directory.
// If DataDir is empty, the XDG data home (or ~/.local/share) is used.
func (p *PathsConfig) ResolveDataDir() string {
	path := p.DataDir
	if path == "" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "parley", "sessions")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".parley", "sessions")
		}
		return filepath.Join(home, ".local", "share", "parley", "sessions")
	}

	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	if len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Run: RunConfig{
			HardCap:              12,
			MinTurns:             2,
			ConfidenceThreshold:  0.55,
			StallRepeatThreshold: 2,
			ConsecutiveErrorCap:  3,
			WindowSize:           20,
		},
		Retry: RetryConfig{
			MaxRetries:  2,
			BaseDelayMs: 2000,
		},
		Engine: EngineConfig{
			MaxCapabilityRounds: 5,
		},
		Capabilities: CapabilitiesConfig{
			DefaultEnabled: []string{"*"},
		},
		TUI: TUIConfig{
			MaxFeedLines:   500,
			ShowStatePanel: true,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Paths: PathsConfig{
			DataDir: "", // Empty means use the XDG data directory
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Run defaults
	viper.SetDefault("run.hard_cap", defaults.Run.HardCap)
	viper.SetDefault("run.min_turns", defaults.Run.MinTurns)
	viper.SetDefault("run.confidence_threshold", defaults.Run.ConfidenceThreshold)
	viper.SetDefault("run.stall_repeat_threshold", defaults.Run.StallRepeatThreshold)
	viper.SetDefault("run.consecutive_error_cap", defaults.Run.ConsecutiveErrorCap)
	viper.SetDefault("run.window_size", defaults.Run.WindowSize)

	// Retry defaults
	viper.SetDefault("retry.max_retries", defaults.Retry.MaxRetries)
	viper.SetDefault("retry.base_delay_ms", defaults.Retry.BaseDelayMs)

	// Engine defaults
	viper.SetDefault("engine.max_capability_rounds", defaults.Engine.MaxCapabilityRounds)

	// Capabilities defaults
	viper.SetDefault("capabilities.default_enabled", defaults.Capabilities.DefaultEnabled)

	// TUI defaults
	viper.SetDefault("tui.max_feed_lines", defaults.TUI.MaxFeedLines)
	viper.SetDefault("tui.show_state_panel", defaults.TUI.ShowStatePanel)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// Paths defaults
	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "parley")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".parley"
	}
	return filepath.Join(home, ".config", "parley")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
