package units

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

var _ ports.Unit = (*FitUnit)(nil)

const (
	// DefaultFitMaxConcurrency bounds the number of candidates scored at once.
	DefaultFitMaxConcurrency = 8

	// parallelThreshold is the candidate count below which scoring runs on
	// the calling goroutine.
	parallelThreshold = 32
)

// FitUnit scores every candidate in state against the response matrix and
// writes one FitScore per candidate, index-aligned, under KeyFitScores.
type FitUnit struct {
	// name is the unique identifier for this unit instance.
	name string
	// config contains the validated configuration parameters.
	config FitConfig
	// evaluator computes the fit of a single candidate.
	evaluator ports.FitEvaluator
}

// FitConfig defines the configuration parameters for the FitUnit.
type FitConfig struct {
	// MaxConcurrency limits the number of concurrent evaluations.
	// Zero selects DefaultFitMaxConcurrency.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=0,max=256"`
}

// DefaultFitConfig returns a FitConfig with the default concurrency limit.
func DefaultFitConfig() FitConfig {
	return FitConfig{MaxConcurrency: DefaultFitMaxConcurrency}
}

// NewFitUnit creates a new FitUnit with the specified configuration.
func NewFitUnit(name string, config FitConfig) (*FitUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &FitUnit{
		name:      name,
		config:    config,
		evaluator: Evaluator{},
	}, nil
}

// WithEvaluator replaces the fit evaluator.
func (fu *FitUnit) WithEvaluator(e ports.FitEvaluator) *FitUnit {
	fu.evaluator = e
	return fu
}

// Name returns the unique identifier for this unit instance.
func (fu *FitUnit) Name() string { return fu.name }

// Execute evaluates all candidates. Each candidate is scored
// independently, so the result does not depend on scheduling.
func (fu *FitUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	responses, ok := domain.Get(state, domain.KeyResponses)
	if !ok || responses == nil {
		return state, fmt.Errorf("unit %s: %w: %s", fu.name, ErrMissingInput, domain.KeyResponses.Name())
	}

	candidates, ok := domain.Get(state, domain.KeyCandidates)
	if !ok {
		return state, fmt.Errorf("unit %s: %w: %s", fu.name, ErrMissingInput, domain.KeyCandidates.Name())
	}
	if len(candidates) == 0 {
		return state, fmt.Errorf("unit %s: %w: candidate set is empty", fu.name, domain.ErrInvalidArgument)
	}

	scores, err := fu.scoreAll(ctx, responses, candidates)
	if err != nil {
		return state, err
	}

	return domain.With(state, domain.KeyFitScores, scores), nil
}

func (fu *FitUnit) scoreAll(
	ctx context.Context,
	responses *domain.ResponseMatrix,
	candidates []domain.QuasiOrder,
) ([]domain.FitScore, error) {
	scores := make([]domain.FitScore, len(candidates))

	if len(candidates) < parallelThreshold {
		for i, c := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			score, err := fu.evaluator.Evaluate(responses, c)
			if err != nil {
				return nil, fmt.Errorf("unit %s: candidate %d: %w", fu.name, i+1, err)
			}
			scores[i] = score
		}
		return scores, nil
	}

	maxConcurrency := fu.config.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultFitMaxConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := fu.evaluator.Evaluate(responses, c)
			if err != nil {
				return fmt.Errorf("unit %s: candidate %d: %w", fu.name, i+1, err)
			}
			scores[i] = score
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (fu *FitUnit) Validate() error {
	if fu.evaluator == nil {
		return fmt.Errorf("unit %s: fit evaluator is required", fu.name)
	}
	if err := validate.Struct(fu.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters into the
// unit's configuration struct. Fields absent from params keep their
// current values.
func (fu *FitUnit) UnmarshalParameters(params yaml.Node) error {
	config := fu.config
	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	fu.config = config
	return nil
}

// CreateFitUnit is a factory function that creates a FitUnit from a
// configuration map, following the UnitFactory pattern.
func CreateFitUnit(id string, config map[string]any) (*FitUnit, error) {
	fitConfig := DefaultFitConfig()

	switch v := config["max_concurrency"].(type) {
	case int:
		fitConfig.MaxConcurrency = v
	case float64:
		fitConfig.MaxConcurrency = int(v)
	}

	return NewFitUnit(id, fitConfig)
}
