package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrStackNotFound is returned when no dialog stack is stored for an identity.
var ErrStackNotFound = errors.New("dialog stack not found")

// ErrConflict is returned by StateStore.Save when the stored version moved.
var ErrConflict = errors.New("dialog stack version conflict")

// ErrInvalidIdentity is returned when an identity is incomplete or malformed.
var ErrInvalidIdentity = errors.New("invalid identity")

// ErrDialogNotFound is returned when a dialog id is not registered.
var ErrDialogNotFound = errors.New("dialog not found")

// ErrValidationRejected signals a recognized-but-invalid or unrecognized input.
// It drives the retry prompt and never reaches callers of the engine.
var ErrValidationRejected = errors.New("input rejected")

// ErrStepBudgetExceeded is returned when one turn runs more steps than allowed.
var ErrStepBudgetExceeded = errors.New("step budget exceeded")

var (
	ErrStaleState       = errors.New("stale dialog state")
	ErrStoreUnavailable = errors.New("state store unavailable")
	ErrTurnTimeout      = errors.New("turn timed out")
)

// StaleStateError reports a stored frame that no longer matches the registry.
type StaleStateError struct {
	DialogID  string
	StepIndex int
	PromptID  string
	Reason    string
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("stale dialog state (dialog=%q step=%d prompt=%q): %s", e.DialogID, e.StepIndex, e.PromptID, e.Reason)
}

func (e *StaleStateError) Is(target error) bool {
	return target == ErrStaleState
}

// StoreUnavailableError wraps a load, save or delete failure of the StateStore.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("state store unavailable (%s): %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

func (e *StoreUnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// TurnTimeoutError reports a turn that exceeded its deadline. Nothing was persisted.
type TurnTimeoutError struct {
	Identity Identity
	Timeout  time.Duration
}

func (e *TurnTimeoutError) Error() string {
	return fmt.Sprintf("turn for %s timed out after %s", e.Identity, e.Timeout)
}

func (e *TurnTimeoutError) Is(target error) bool {
	return target == ErrTurnTimeout
}

// StepError wraps a failure raised while executing a step.
type StepError struct {
	DialogID string
	Step     string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("dialog %q step %q: %v", e.DialogID, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
