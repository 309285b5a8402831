package units

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

var _ ports.Unit = (*CatalogUnit)(nil)

// CatalogUnit resolves the candidate set of an analysis. When the state
// already carries caller-supplied candidates they are validated and kept;
// otherwise the candidates are generated from the item count of the
// response matrix. Both paths share ValidateCandidates.
type CatalogUnit struct {
	// name is the unique identifier for this unit instance.
	name string
	// config contains the validated configuration parameters.
	config CatalogConfig
	// generator produces candidates when none are supplied.
	generator ports.CandidateGenerator
}

// CatalogConfig defines the configuration parameters for the CatalogUnit.
type CatalogConfig struct {
	// CacheCandidates reuses generated candidate sets across analyses
	// with the same item count.
	CacheCandidates bool `yaml:"cache_candidates" json:"cache_candidates"`
}

// DefaultCatalogConfig returns a CatalogConfig with caching enabled.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{CacheCandidates: true}
}

// NewCatalogUnit creates a new CatalogUnit with the specified configuration.
func NewCatalogUnit(name string, config CatalogConfig) (*CatalogUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &CatalogUnit{
		name:      name,
		config:    config,
		generator: generatorFor(config),
	}, nil
}

func generatorFor(config CatalogConfig) ports.CandidateGenerator {
	if config.CacheCandidates {
		return sharedCatalog
	}
	return GeneratorFunc(GenerateQuasiOrders)
}

// WithGenerator replaces the candidate generator, e.g. with a dedicated
// Catalog instance.
func (cu *CatalogUnit) WithGenerator(g ports.CandidateGenerator) *CatalogUnit {
	cu.generator = g
	return cu
}

// Name returns the unique identifier for this unit instance.
func (cu *CatalogUnit) Name() string { return cu.name }

// Execute places a validated candidate set into state under KeyCandidates
// and records its origin under KeyCandidateSource.
func (cu *CatalogUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return state, err
	}

	responses, ok := domain.Get(state, domain.KeyResponses)
	if !ok || responses == nil {
		return state, fmt.Errorf("unit %s: %w: %s", cu.name, ErrMissingInput, domain.KeyResponses.Name())
	}

	source := domain.SourceSupplied
	candidates, supplied := domain.Get(state, domain.KeyCandidates)
	if !supplied {
		source = domain.SourceCatalog
		generated, err := cu.generator.Generate(responses.Items)
		if err != nil {
			return state, fmt.Errorf("unit %s: candidate generation failed: %w", cu.name, err)
		}
		candidates = generated
	}

	if err := ValidateCandidates(candidates, responses.Items); err != nil {
		return state, fmt.Errorf("unit %s: %w", cu.name, err)
	}

	return state.WithMultiple(map[string]any{
		domain.KeyCandidates.Name():      candidates,
		domain.KeyCandidateSource.Name(): source,
	}), nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (cu *CatalogUnit) Validate() error {
	if cu.generator == nil {
		return fmt.Errorf("unit %s: candidate generator is required", cu.name)
	}
	if err := validate.Struct(cu.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters deserializes YAML configuration parameters into the
// unit's configuration struct. Fields absent from params keep their
// current values.
func (cu *CatalogUnit) UnmarshalParameters(params yaml.Node) error {
	config := cu.config
	if err := params.Decode(&config); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}

	cu.config = config
	cu.generator = generatorFor(config)
	return nil
}

// CreateCatalogUnit is a factory function that creates a CatalogUnit
// from a configuration map, following the UnitFactory pattern.
func CreateCatalogUnit(id string, config map[string]any) (*CatalogUnit, error) {
	catalogConfig := DefaultCatalogConfig()

	if cache, ok := config["cache_candidates"].(bool); ok {
		catalogConfig.CacheCandidates = cache
	}

	return NewCatalogUnit(id, catalogConfig)
}
