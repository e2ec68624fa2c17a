// Package errors provides centralized error definitions and error handling
// utilities for the Parley codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - SessionError: errors related to session persistence and lookup
//   - AgentCallError: errors related to reasoning-engine calls
//   - OrchestratorError: errors related to run-loop orchestration
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewAgentCallError("engine call failed", errors.ErrRateLimited)
//
//	// With context wrapping
//	err := errors.NewOrchestratorError("run aborted", baseErr).WithRunID("run-1")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrRunCancelled) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
//	if errors.IsUserFacing(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session-related sentinel errors
var (
	// ErrSessionNotFound indicates that a session could not be found.
	ErrSessionNotFound = New("session not found")
	// ErrStateCorrupted indicates that persisted canonical state is corrupted.
	ErrStateCorrupted = New("canonical state corrupted")
)

// Agent-call sentinel errors
var (
	// ErrRateLimited indicates that the reasoning engine rejected a call due
	// to rate limiting. Calls failing with this error are safe to retry.
	ErrRateLimited = New("rate limited")
	// ErrEngineNeverFinalized indicates that the reasoning engine exhausted
	// its capability round budget without invoking finalize_turn.
	ErrEngineNeverFinalized = New("engine never finalized turn")
	// ErrUnknownCapability indicates a request for a capability that is not
	// registered.
	ErrUnknownCapability = New("unknown capability")
)

// Orchestrator sentinel errors
var (
	// ErrNoAgents indicates that a run was started for a session with no
	// agent participants registered.
	ErrNoAgents = New("no agents registered for session")
	// ErrRunCancelled indicates that a run was superseded by a newer run for
	// the same session.
	ErrRunCancelled = New("run cancelled")
	// ErrRunFinished indicates an operation on a run that already stopped.
	ErrRunFinished = New("run already finished")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ParleyError is the base interface for all Parley errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type ParleyError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SessionError represents errors related to session persistence and lookup.
//
// Example:
//
//	err := errors.NewSessionError("failed to load state", errors.ErrSessionNotFound)
//	err = err.WithSessionID("dinner-plan")
type SessionError struct {
	baseError
	SessionID string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// WithSeverity sets the error severity.
func (e *SessionError) WithSeverity(s Severity) *SessionError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	prefix := "session error"
	if e.SessionID != "" {
		prefix = fmt.Sprintf("session error [session=%s]", e.SessionID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AgentCallError represents errors from a reasoning-engine call made on
// behalf of a participant's agent.
//
// Example:
//
//	err := errors.NewAgentCallError("completion failed", cause).
//		WithParticipantID("p1").WithRound(3)
type AgentCallError struct {
	baseError
	ParticipantID string
	Round         int
}

// NewAgentCallError creates a new AgentCallError.
func NewAgentCallError(message string, cause error) *AgentCallError {
	return &AgentCallError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  errors.Is(cause, ErrRateLimited),
			userFacing: false,
		},
		Round: -1, // -1 indicates not set
	}
}

// WithParticipantID adds the speaking participant's ID to the error context.
func (e *AgentCallError) WithParticipantID(id string) *AgentCallError {
	e.ParticipantID = id
	return e
}

// WithRound adds the capability round index to the error context.
func (e *AgentCallError) WithRound(round int) *AgentCallError {
	e.Round = round
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *AgentCallError) WithRetryable(r bool) *AgentCallError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *AgentCallError) Error() string {
	var parts []string
	if e.ParticipantID != "" {
		parts = append(parts, fmt.Sprintf("participant=%s", e.ParticipantID))
	}
	if e.Round >= 0 {
		parts = append(parts, fmt.Sprintf("round=%d", e.Round))
	}

	prefix := "agent call error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("agent call error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *AgentCallError) Is(target error) bool {
	if _, ok := target.(*AgentCallError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// OrchestratorError represents errors related to run-loop orchestration.
//
// Example:
//
//	err := errors.NewOrchestratorError("run aborted", errors.ErrNoAgents).
//		WithRunID("run-1").WithTurn(4)
type OrchestratorError struct {
	baseError
	RunID string
	Turn  int
}

// NewOrchestratorError creates a new OrchestratorError.
func NewOrchestratorError(message string, cause error) *OrchestratorError {
	return &OrchestratorError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Turn: -1, // -1 indicates not set
	}
}

// WithRunID adds a run ID to the error context.
func (e *OrchestratorError) WithRunID(id string) *OrchestratorError {
	e.RunID = id
	return e
}

// WithTurn adds a turn count to the error context.
func (e *OrchestratorError) WithTurn(turn int) *OrchestratorError {
	e.Turn = turn
	return e
}

// WithSeverity sets the error severity.
func (e *OrchestratorError) WithSeverity(s Severity) *OrchestratorError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *OrchestratorError) Error() string {
	var parts []string
	if e.RunID != "" {
		parts = append(parts, fmt.Sprintf("run=%s", e.RunID))
	}
	if e.Turn >= 0 {
		parts = append(parts, fmt.Sprintf("turn=%d", e.Turn))
	}

	prefix := "orchestrator error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("orchestrator error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *OrchestratorError) Is(target error) bool {
	if _, ok := target.(*OrchestratorError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("session", "dinner-plan")
//	fmt.Println(err) // "session 'dinner-plan' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("session ID cannot be empty")
//	err = err.WithField("sessionID")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing ParleyError with IsRetryable() returning true
//   - Errors wrapping ErrRateLimited
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements ParleyError
	var perr ParleyError
	if As(err, &perr) {
		return perr.IsRetryable()
	}

	// Check for known retryable sentinel errors
	if Is(err, ErrRateLimited) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var perr ParleyError
	if As(err, &perr) {
		return perr.IsUserFacing()
	}

	// Semantic errors are always user-facing
	var notFound *NotFoundError
	var validation *ValidationError
	if As(err, &notFound) || As(err, &validation) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ParleyError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var perr ParleyError
	if As(err, &perr) {
		return perr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to apply patch")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to load session %s", sessionID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
