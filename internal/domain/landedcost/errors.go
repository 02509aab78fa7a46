package landedcost

import (
	"fmt"

	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Error codes surfaced to callers
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeCurrencyMismatch = "CURRENCY_MISMATCH"
	CodeInvalidState     = "INVALID_STATE"
	CodeConcurrency      = "CONCURRENCY_CONFLICT"
)

// ValidationError reports input the engine refuses to process.
// It is never retryable: the same input fails the same way.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Code returns the error code
func (e *ValidationError) Code() string { return CodeValidation }

// Unwrap lets errors.Is match shared.ErrInvalidInput
func (e *ValidationError) Unwrap() error { return shared.ErrInvalidInput }

// CurrencyMismatchError is returned when a charge is not in the operation's functional currency
type CurrencyMismatchError struct {
	Expected valueobject.Currency
	Actual   valueobject.Currency
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("charge currency %s does not match operation currency %s", e.Actual, e.Expected)
}

// Code returns the error code
func (e *CurrencyMismatchError) Code() string { return CodeCurrencyMismatch }

// Unwrap lets errors.Is match shared.ErrCurrencyMismatch
func (e *CurrencyMismatchError) Unwrap() error { return shared.ErrCurrencyMismatch }

// StateError is returned when a mutation is not allowed in the current state.
// Current holds the state the caller ran into, e.g. "CLOSED".
type StateError struct {
	Entity  string
	Current string
	Action  string
	Reason  string
}

// NewStateError creates a StateError
func NewStateError(entity, current, action, reason string) *StateError {
	return &StateError{Entity: entity, Current: current, Action: action, Reason: reason}
}

func (e *StateError) Error() string {
	msg := fmt.Sprintf("cannot %s %s in state %s", e.Action, e.Entity, e.Current)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Code returns the error code
func (e *StateError) Code() string { return CodeInvalidState }

// Unwrap lets errors.Is match shared.ErrInvalidState
func (e *StateError) Unwrap() error { return shared.ErrInvalidState }

// ConcurrencyError is returned when the per-operation lock cannot be obtained
// in time or a concurrent writer won the race. Callers may retry with backoff.
type ConcurrencyError struct {
	OperationID uuid.UUID
	Reason      string
	Err         error
}

// NewConcurrencyError creates a ConcurrencyError wrapping the underlying cause
func NewConcurrencyError(operationID uuid.UUID, reason string, err error) *ConcurrencyError {
	return &ConcurrencyError{OperationID: operationID, Reason: reason, Err: err}
}

func (e *ConcurrencyError) Error() string {
	msg := fmt.Sprintf("trade operation %s is busy: %s", e.OperationID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Code returns the error code
func (e *ConcurrencyError) Code() string { return CodeConcurrency }

// Retryable is always true
func (e *ConcurrencyError) Retryable() bool { return true }

// Unwrap exposes both shared.ErrConcurrencyConflict and the cause
func (e *ConcurrencyError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrConcurrencyConflict}
	}
	return []error{shared.ErrConcurrencyConflict, e.Err}
}

// NotFound builds a not-found domain error for an entity
func NotFound(entity string, id any) error {
	return shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("%s %v not found", entity, id))
}
