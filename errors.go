package umlsm

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the state machine
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Vertex or region was not found in the machine
	ErrCodeStateNotFound
	// Compound transition could not be completed
	ErrCodeTransitionNotAllowed
	// Guard condition panicked
	ErrCodeGuardFailed
	// Executor has not been started
	ErrCodeMachineNotStarted
	// Executor is paused
	ErrCodeMachinePaused
	// Executor is unusable after a behavior failure
	ErrCodeExecutorFailed
	// Snapshot belongs to another machine or is malformed
	ErrCodeSnapshotMismatch
	// Behavior execution failed
	ErrCodeActionFailed
	// Machine definition is invalid
	ErrCodeInvalidConfiguration
	// Configuration reached an inconsistent condition
	ErrCodeInvalidState
	// Event passed to Take is nil
	ErrCodeInvalidEvent
)

var (
	// ErrNotStarted is returned by Take before Go
	ErrNotStarted = NewMachineError(ErrCodeMachineNotStarted, "take", "executor is not started")
	// ErrPaused is returned while the executor is paused
	ErrPaused = NewMachineError(ErrCodeMachinePaused, "take", "executor is paused")
	// ErrExecutorFailed is returned after a behavior failure until Resume
	ErrExecutorFailed = NewMachineError(ErrCodeExecutorFailed, "take", "executor failed, resume from a snapshot")
	// ErrSnapshotMismatch is returned when resuming a foreign or malformed snapshot
	ErrSnapshotMismatch = NewMachineError(ErrCodeSnapshotMismatch, "resume", "snapshot does not match the machine")
)

// StateError represents vertex-related errors
type StateError struct {
	Code    ErrorCode
	StateID string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error [%s]: %s", e.StateID, e.Message)
}

// NewStateNotFoundError creates a new state not found error
func NewStateNotFoundError(stateID string) *StateError {
	return &StateError{
		Code:    ErrCodeStateNotFound,
		StateID: stateID,
		Message: fmt.Sprintf("state '%s' not found", stateID),
	}
}

// NewInvalidStateError creates a new invalid state error
func NewInvalidStateError(stateID string, reason string) *StateError {
	return &StateError{
		Code:    ErrCodeInvalidState,
		StateID: stateID,
		Message: reason,
	}
}

// TransitionError reports a compound transition that cannot proceed, such as
// a choice without an enabled branch.
type TransitionError struct {
	Code   ErrorCode
	From   string
	To     string
	Event  string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition error [%s->%s on %s]: %s", e.From, e.To, e.Event, e.Reason)
}

// NewTransitionError creates a new transition error
func NewTransitionError(from, to, event, reason string) *TransitionError {
	return &TransitionError{
		Code:   ErrCodeTransitionNotAllowed,
		From:   from,
		To:     to,
		Event:  event,
		Reason: reason,
	}
}

// GuardError wraps a guard panic. Guards that fail count as false; the error
// is only reported to observers and the log.
type GuardError struct {
	Transition string
	Event      string
	Cause      error
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("guard of transition '%s' failed on %s: %v", e.Transition, e.Event, e.Cause)
}

func (e *GuardError) Unwrap() error {
	return e.Cause
}

// NewGuardError creates a new guard error
func NewGuardError(transition, event string, cause error) *GuardError {
	return &GuardError{
		Transition: transition,
		Event:      event,
		Cause:      cause,
	}
}

// ConfigurationError represents a malformed machine definition
type ConfigurationError struct {
	Component string
	Issue     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(component, issue string) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Issue:     issue,
	}
}

// MachineError represents a lifecycle error of an executor
type MachineError struct {
	Code      ErrorCode
	Operation string
	Message   string
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("machine error during %s: %s", e.Operation, e.Message)
}

// Is matches machine errors by code, so errors.Is(err, ErrPaused) holds for
// any paused error whatever the operation.
func (e *MachineError) Is(target error) bool {
	var other *MachineError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewMachineError creates a new machine error
func NewMachineError(code ErrorCode, operation string, message string) *MachineError {
	return &MachineError{
		Code:      code,
		Operation: operation,
		Message:   message,
	}
}

// lifecycle returns a copy of a sentinel bound to operation
func lifecycle(sentinel *MachineError, operation string) *MachineError {
	return NewMachineError(sentinel.Code, operation, sentinel.Message)
}

// ActionError represents a failed entry, exit or effect behavior
type ActionError struct {
	Action      string
	State       string
	OriginalErr error
}

func (e *ActionError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("action '%s' failed in state '%s': %v", e.Action, e.State, e.OriginalErr)
	}
	return fmt.Sprintf("action '%s' failed in state '%s'", e.Action, e.State)
}

func (e *ActionError) Unwrap() error {
	return e.OriginalErr
}

// NewActionError creates a new action execution error
func NewActionError(action, state string, err error) *ActionError {
	return &ActionError{
		Action:      action,
		State:       state,
		OriginalErr: err,
	}
}

// IsStateError checks if an error is a StateError
func IsStateError(err error) bool {
	var target *StateError
	return errors.As(err, &target)
}

// IsTransitionError checks if an error is a TransitionError
func IsTransitionError(err error) bool {
	var target *TransitionError
	return errors.As(err, &target)
}

// IsGuardError checks if an error is a GuardError
func IsGuardError(err error) bool {
	var target *GuardError
	return errors.As(err, &target)
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsMachineError checks if an error is a MachineError
func IsMachineError(err error) bool {
	var target *MachineError
	return errors.As(err, &target)
}

// IsActionError checks if an error is an ActionError
func IsActionError(err error) bool {
	var target *ActionError
	return errors.As(err, &target)
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	var (
		stateErr      *StateError
		transitionErr *TransitionError
		machineErr    *MachineError
		guardErr      *GuardError
		configErr     *ConfigurationError
		actionErr     *ActionError
	)
	switch {
	case errors.As(err, &actionErr):
		return ErrCodeActionFailed
	case errors.As(err, &machineErr):
		return machineErr.Code
	case errors.As(err, &transitionErr):
		return transitionErr.Code
	case errors.As(err, &stateErr):
		return stateErr.Code
	case errors.As(err, &guardErr):
		return ErrCodeGuardFailed
	case errors.As(err, &configErr):
		return ErrCodeInvalidConfiguration
	default:
		return ErrCodeNone
	}
}
