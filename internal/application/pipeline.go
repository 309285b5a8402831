package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

var _ ports.Pipeline = (*Pipeline)(nil)

// Pipeline runs its stages in insertion order, feeding each stage the
// state returned by the previous one. An analysis is the pipeline
// catalog → fit → selection.
type Pipeline struct {
	id string

	mu     sync.RWMutex
	stages []ports.Executable
	ids    map[string]struct{}
}

// NewPipeline returns an empty pipeline named id.
func NewPipeline(id string) *Pipeline {
	return &Pipeline{id: id, ids: make(map[string]struct{})}
}

// ID returns the pipeline name.
func (p *Pipeline) ID() string { return p.id }

// Execute runs every stage in order. It stops at the first failing stage,
// returning the last good state and an error naming that stage, and checks
// ctx between stages.
func (p *Pipeline) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	for _, stage := range p.Executables() {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		next, err := stage.Execute(ctx, state)
		if err != nil {
			return state, fmt.Errorf("pipeline %s: execution failed at %s: %w", p.id, stage.ID(), err)
		}
		state = next
	}
	return state, nil
}

// Add appends a stage. Stage IDs must be unique within the pipeline.
func (p *Pipeline) Add(stage ports.Executable) error {
	if stage == nil {
		return fmt.Errorf("pipeline %s: cannot add nil executable", p.id)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := stage.ID()
	if _, dup := p.ids[id]; dup {
		return fmt.Errorf("pipeline %s: stage %q already exists", p.id, id)
	}
	p.ids[id] = struct{}{}
	p.stages = append(p.stages, stage)
	return nil
}

// Executables returns a snapshot of the stages in execution order.
func (p *Pipeline) Executables() []ports.Executable {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ports.Executable(nil), p.stages...)
}
