package cmd

import (
	"errors"
	"fmt"

	"github.com/ahrav/go-iita/internal/domain"
)

// Exit codes returned by the iita binary.
const (
	ExitSuccess = 0
	ExitGeneral = 1
	ExitConfig  = 2
	ExitInput   = 3
	ExitLimit   = 4
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// InputError creates an ExitError with ExitInput code.
func InputError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitInput, Message: msg, Err: err}
}

// ExitCode maps an error returned by Execute to a process exit code.
// Errors without an explicit code are classified by their domain sentinel.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, domain.ErrInvalidConfiguration):
		return ExitConfig
	case errors.Is(err, domain.ErrLimitExceeded):
		return ExitLimit
	case errors.Is(err, domain.ErrInvalidDataValue),
		errors.Is(err, domain.ErrDimensionMismatch),
		errors.Is(err, domain.ErrInvalidArgument):
		return ExitInput
	default:
		return ExitGeneral
	}
}
