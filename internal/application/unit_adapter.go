package application

import (
	"context"

	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

var _ ports.Executable = (*UnitAdapter)(nil)

// UnitAdapter wraps a ports.Unit to implement the ports.Executable
// interface, so analysis stages can be added to a Pipeline.
type UnitAdapter struct {
	// unit is the underlying analysis unit that performs the actual
	// work when Execute is called.
	unit ports.Unit
	// id is the unique identifier for this adapter within the pipeline.
	id string
}

// NewUnitAdapter creates a new adapter for unit. An empty id falls back
// to the unit's name.
func NewUnitAdapter(unit ports.Unit, id string) *UnitAdapter {
	if id == "" {
		id = unit.Name()
	}
	return &UnitAdapter{
		unit: unit,
		id:   id,
	}
}

// Execute delegates to the underlying unit's Execute method.
func (ua *UnitAdapter) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	return ua.unit.Execute(ctx, state)
}

// ID returns the unique string identifier for this adapter.
func (ua *UnitAdapter) ID() string { return ua.id }

// Unit returns the wrapped unit.
func (ua *UnitAdapter) Unit() ports.Unit { return ua.unit }
