// Package units provides the analysis stages of the item tree analysis
// engine as ports.Unit implementations, together with the pure functions
// they wrap: candidate generation, fit evaluation and selection.
package units

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Common errors returned by analysis units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrMissingInput is returned when a unit's required input is absent from state.
	ErrMissingInput = errors.New("required input missing from state")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()
