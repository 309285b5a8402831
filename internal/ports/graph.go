package ports

import (
	"context"

	"github.com/ahrav/go-iita/internal/domain"
)

// Executable defines the contract for components that can run inside a
// pipeline: units wrapped by an adapter, or nested pipelines.
type Executable interface {
	// Execute processes the given state and returns the updated state.
	// The input state is immutable and MUST NOT be modified; use
	// domain.With or state.WithMultiple to derive a new one.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// ID returns the unique string identifier for this executable.
	ID() string
}

// Pipeline defines a sequential execution container that runs multiple
// executables in strict order, where each executable's output becomes
// the input for the next executable in the sequence.
type Pipeline interface {
	Executable

	// Add appends an executable to the end of this pipeline's execution
	// sequence. Add returns an error on nil executables or duplicate IDs.
	Add(exec Executable) error

	// Executables returns the ordered list of executables in this pipeline.
	// The returned slice should not be modified by callers.
	Executables() []Executable
}
