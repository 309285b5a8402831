package units

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

var _ ports.Unit = (*SelectionUnit)(nil)

// SelectionUnit reads the fit scores from state, applies the selection
// rule and writes the outcome under KeySelection. A rule stored under
// KeyRule takes precedence over the configured default.
type SelectionUnit struct {
	// name is the unique identifier for this unit instance.
	name string
	// config contains the validated configuration parameters.
	config SelectionConfig
	// selector applies the rule to the diff vector.
	selector ports.Selector
}

// SelectionConfig defines the configuration parameters for the SelectionUnit.
type SelectionConfig struct {
	// Rule is used when the state does not carry one.
	Rule string `yaml:"rule" json:"rule" validate:"required,oneof=minimal corrected"`
}

// DefaultSelectionConfig returns a SelectionConfig using the minimal rule.
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{Rule: string(domain.RuleMinimal)}
}

// NewSelectionUnit creates a new SelectionUnit with the specified configuration.
func NewSelectionUnit(name string, config SelectionConfig) (*SelectionUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &SelectionUnit{
		name:     name,
		config:   config,
		selector: Engine{},
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (su *SelectionUnit) Name() string { return su.name }

// Execute selects the winning candidates.
func (su *SelectionUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return state, err
	}

	scores, ok := domain.Get(state, domain.KeyFitScores)
	if !ok {
		return state, fmt.Errorf("unit %s: %w: %s", su.name, ErrMissingInput, domain.KeyFitScores.Name())
	}

	rule, ok := domain.Get(state, domain.KeyRule)
	if !ok {
		rule = domain.SelectionRule(su.config.Rule)
	}

	diffs := make([]float64, len(scores))
	for i, s := range scores {
		diffs[i] = s.Diff
	}

	selection, err := su.selector.Select(diffs, rule)
	if err != nil {
		return state, fmt.Errorf("unit %s: %w", su.name, err)
	}

	return domain.With(state, domain.KeySelection, &selection), nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (su *SelectionUnit) Validate() error {
	if su.selector == nil {
		return fmt.Errorf("unit %s: selector is required", su.name)
	}
	if err := validate.Struct(su.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters into the
// unit's configuration struct. Fields absent from params keep their
// current values.
func (su *SelectionUnit) UnmarshalParameters(params yaml.Node) error {
	config := su.config
	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	su.config = config
	return nil
}

// CreateSelectionUnit is a factory function that creates a SelectionUnit
// from a configuration map, following the UnitFactory pattern.
func CreateSelectionUnit(id string, config map[string]any) (*SelectionUnit, error) {
	selectionConfig := DefaultSelectionConfig()

	if rule, ok := config["rule"].(string); ok {
		selectionConfig.Rule = rule
	}

	return NewSelectionUnit(id, selectionConfig)
}
