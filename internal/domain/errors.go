package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by the analysis core. Every failure is a
// precondition violation; callers match them with errors.Is.
var (
	// ErrInvalidArgument indicates a non-positive item count, an
	// unrecognized selection rule, or an empty diff vector.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidDataValue indicates a response cell outside {0, 1, missing}.
	ErrInvalidDataValue = errors.New("invalid data value")

	// ErrDimensionMismatch indicates a matrix whose shape does not match
	// the item count of the response matrix.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrLimitExceeded indicates that an analysis input exceeds a
	// configured size limit.
	ErrLimitExceeded = errors.New("limit exceeded")
)

// Errors raised by State plumbing and configuration handling.
var (
	// ErrInvalidState indicates that a State operation received invalid input.
	ErrInvalidState = errors.New("invalid state")

	// ErrKeyNotFound indicates that a requested state key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// DataValueError reports the position and value of an invalid response cell.
type DataValueError struct {
	// Subject is the zero-based row of the offending cell.
	Subject int

	// Item is the zero-based column of the offending cell.
	Item int

	// Value is the rejected raw value.
	Value float64
}

// Error implements the error interface for DataValueError.
func (e *DataValueError) Error() string {
	return fmt.Sprintf("%v: subject=%d, item=%d, value=%g", ErrInvalidDataValue, e.Subject, e.Item, e.Value)
}

// Unwrap returns ErrInvalidDataValue so errors.Is matches the sentinel.
func (e *DataValueError) Unwrap() error { return ErrInvalidDataValue }

// DimensionError reports a shape mismatch between a matrix and the
// expected item count.
type DimensionError struct {
	// Entity names what was being checked, e.g. "candidate" or "row".
	Entity string

	// Index is the zero-based position of the entity, or -1 when not applicable.
	Index int

	// Got describes the observed size.
	Got int

	// Want is the expected size.
	Want int
}

// Error implements the error interface for DimensionError.
func (e *DimensionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: %s has size %d, want %d", ErrDimensionMismatch, e.Entity, e.Got, e.Want)
	}
	return fmt.Sprintf("%v: %s %d has size %d, want %d", ErrDimensionMismatch, e.Entity, e.Index, e.Got, e.Want)
}

// Unwrap returns ErrDimensionMismatch so errors.Is matches the sentinel.
func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionError creates a DimensionError for the given entity.
func NewDimensionError(entity string, index, got, want int) *DimensionError {
	return &DimensionError{
		Entity: entity,
		Index:  index,
		Got:    got,
		Want:   want,
	}
}

// LimitExceededError reports which size limit an analysis input violated.
type LimitExceededError struct {
	// Limit names the violated dimension: "subjects", "items" or "candidates".
	Limit string

	// Max is the configured ceiling.
	Max int

	// Actual is the observed size.
	Actual int

	// Unit is the name of the unit guarded by the limit.
	Unit string
}

// Error implements the error interface for LimitExceededError.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%v: %s %d exceeds maximum %d in unit %s", ErrLimitExceeded, e.Limit, e.Actual, e.Max, e.Unit)
}

// Unwrap returns ErrLimitExceeded so errors.Is matches the sentinel.
func (e *LimitExceededError) Unwrap() error { return ErrLimitExceeded }

// NewLimitExceededError creates a LimitExceededError with the given details.
func NewLimitExceededError(limit string, maxValue, actual int, unit string) *LimitExceededError {
	return &LimitExceededError{
		Limit:  limit,
		Max:    maxValue,
		Actual: actual,
		Unit:   unit,
	}
}

// StateError represents an error that occurred during State operations.
// It provides context about which key and operation caused the error.
type StateError struct {
	// Key is the name of the state key involved in the failed operation.
	Key string

	// Operation describes what operation was being performed when the error occurred.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for StateError.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError creates a new StateError with the given details.
func NewStateError(key, operation string, err error) *StateError {
	return &StateError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns ErrInvalidConfiguration so validation failures can be
// matched without inspecting messages.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
