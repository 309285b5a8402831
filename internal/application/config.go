// Package application provides the orchestration layer of the item tree
// analysis engine: configuration, the unit registry, the stage pipeline
// and the Analyzer.
package application

import (
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-iita/infrastructure/middleware"
	"github.com/ahrav/go-iita/infrastructure/units"
	"github.com/ahrav/go-iita/internal/domain"
)

// Stage types understood by the default unit registry.
const (
	StageCatalog   = "quasi_order_catalog"
	StageFit       = "fit_evaluator"
	StageSelection = "selection"
)

// AnalysisConfig defines the complete configuration of an analyzer and
// serves as the primary configuration entry point for the system.
type AnalysisConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the analysis.
	Metadata Metadata `yaml:"metadata"`
	// Analysis holds the settings shared by all stages.
	Analysis AnalysisSettings `yaml:"analysis"`
	// Limits bounds the size of accepted analyses.
	Limits LimitsConfig `yaml:"limits"`
	// Stages optionally overrides the per-stage parameters. When empty,
	// the catalog, fit and selection stages are built from Analysis.
	Stages []StageConfig `yaml:"stages" validate:"omitempty,len=3,dive"`
}

// Metadata provides descriptive information about an analysis
// configuration to support organization and discovery.
type Metadata struct {
	// Name is the human-readable identifier for this analysis and is used
	// to label logs and execution contexts.
	Name string `yaml:"name" validate:"max=255"`
	// Description provides a detailed explanation of the analysis purpose.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels that enable filtering and grouping.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs for integration with external systems.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// AnalysisSettings controls how candidates are generated, scored and selected.
type AnalysisSettings struct {
	// Rule is the default selection rule, used when a request names none.
	Rule string `yaml:"rule" validate:"required,selectionrule"`
	// MaxConcurrency limits concurrent candidate evaluations; zero selects
	// the fit unit's default.
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=0,max=256"`
	// CacheCatalog reuses generated candidate sets across analyses.
	CacheCatalog bool `yaml:"cache_catalog"`
}

// LimitsConfig establishes size limits for accepted analyses.
// Zero disables the corresponding limit.
type LimitsConfig struct {
	// MaxSubjects limits the number of response rows.
	MaxSubjects int `yaml:"max_subjects" validate:"min=0"`
	// MaxItems limits the number of items.
	MaxItems int `yaml:"max_items" validate:"min=0"`
	// MaxCandidates limits the number of candidate quasi-orders.
	MaxCandidates int `yaml:"max_candidates" validate:"min=0"`
}

// Limits converts the configuration into middleware limits.
func (c LimitsConfig) Limits() middleware.Limits {
	return middleware.Limits{
		MaxSubjects:   c.MaxSubjects,
		MaxItems:      c.MaxItems,
		MaxCandidates: c.MaxCandidates,
	}
}

// StageConfig defines a single analysis stage and its parameters.
type StageConfig struct {
	// ID is the unique identifier for this stage, used as the unit name.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Type selects the unit implementation.
	Type string `yaml:"type" validate:"required,oneof=quasi_order_catalog fit_evaluator selection"`
	// Parameters contains type-specific configuration as flexible YAML
	// that is validated according to the stage type.
	Parameters yaml.Node `yaml:"parameters"`
}

// DefaultAnalysisConfig returns the configuration used when none is given:
// the minimal rule, the default fit concurrency, a cached catalog and no
// size limits.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Version: "1.0.0",
		Metadata: Metadata{
			Name: "iita",
		},
		Analysis: AnalysisSettings{
			Rule:           string(domain.RuleMinimal),
			MaxConcurrency: units.DefaultFitMaxConcurrency,
			CacheCatalog:   true,
		},
	}
}

// stages returns the configured stages, or the default three.
func (c *AnalysisConfig) stages() []StageConfig {
	if len(c.Stages) > 0 {
		return c.Stages
	}
	return []StageConfig{
		{ID: "catalog", Type: StageCatalog},
		{ID: "fit", Type: StageFit},
		{ID: "selection", Type: StageSelection},
	}
}
