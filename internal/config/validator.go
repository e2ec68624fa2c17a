package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "run.hard_cap")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateRun()...)
	errors = append(errors, c.validateRetry()...)
	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateRun validates the RunConfig
func (c *Config) validateRun() []ValidationError {
	var errors []ValidationError

	if c.Run.HardCap < 1 {
		errors = append(errors, ValidationError{
			Field:   "run.hard_cap",
			Value:   c.Run.HardCap,
			Message: "must be at least 1",
		})
	}

	// Upper bound keeps a misconfigured session from burning engine calls
	const maxHardCap = 200
	if c.Run.HardCap > maxHardCap {
		errors = append(errors, ValidationError{
			Field:   "run.hard_cap",
			Value:   c.Run.HardCap,
			Message: fmt.Sprintf("exceeds maximum of %d", maxHardCap),
		})
	}

	if c.Run.MinTurns < 0 {
		errors = append(errors, ValidationError{
			Field:   "run.min_turns",
			Value:   c.Run.MinTurns,
			Message: "must be non-negative",
		})
	}

	if c.Run.MinTurns > c.Run.HardCap {
		errors = append(errors, ValidationError{
			Field:   "run.min_turns",
			Value:   c.Run.MinTurns,
			Message: fmt.Sprintf("must not exceed run.hard_cap (%d)", c.Run.HardCap),
		})
	}

	if c.Run.ConfidenceThreshold < 0 || c.Run.ConfidenceThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "run.confidence_threshold",
			Value:   c.Run.ConfidenceThreshold,
			Message: "must be between 0 and 1",
		})
	}

	if c.Run.StallRepeatThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "run.stall_repeat_threshold",
			Value:   c.Run.StallRepeatThreshold,
			Message: "must be at least 1",
		})
	}

	if c.Run.ConsecutiveErrorCap < 1 {
		errors = append(errors, ValidationError{
			Field:   "run.consecutive_error_cap",
			Value:   c.Run.ConsecutiveErrorCap,
			Message: "must be at least 1",
		})
	}

	if c.Run.WindowSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "run.window_size",
			Value:   c.Run.WindowSize,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateRetry validates the RetryConfig
func (c *Config) validateRetry() []ValidationError {
	var errors []ValidationError

	if c.Retry.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "retry.max_retries",
			Value:   c.Retry.MaxRetries,
			Message: "must be non-negative",
		})
	}

	const maxRetriesLimit = 10
	if c.Retry.MaxRetries > maxRetriesLimit {
		errors = append(errors, ValidationError{
			Field:   "retry.max_retries",
			Value:   c.Retry.MaxRetries,
			Message: fmt.Sprintf("exceeds maximum of %d", maxRetriesLimit),
		})
	}

	if c.Retry.BaseDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "retry.base_delay_ms",
			Value:   c.Retry.BaseDelayMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateEngine validates the EngineConfig
func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	if c.Engine.MaxCapabilityRounds < 1 {
		errors = append(errors, ValidationError{
			Field:   "engine.max_capability_rounds",
			Value:   c.Engine.MaxCapabilityRounds,
			Message: "must be at least 1",
		})
	}

	const maxRoundsLimit = 20
	if c.Engine.MaxCapabilityRounds > maxRoundsLimit {
		errors = append(errors, ValidationError{
			Field:   "engine.max_capability_rounds",
			Value:   c.Engine.MaxCapabilityRounds,
			Message: fmt.Sprintf("exceeds maximum of %d", maxRoundsLimit),
		})
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.MaxFeedLines < 0 {
		errors = append(errors, ValidationError{
			Field:   "tui.max_feed_lines",
			Value:   c.TUI.MaxFeedLines,
			Message: "must be non-negative",
		})
	}

	const maxFeedLinesLimit = 100000
	if c.TUI.MaxFeedLines > maxFeedLinesLimit {
		errors = append(errors, ValidationError{
			Field:   "tui.max_feed_lines",
			Value:   c.TUI.MaxFeedLines,
			Message: fmt.Sprintf("exceeds maximum of %d", maxFeedLinesLimit),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
