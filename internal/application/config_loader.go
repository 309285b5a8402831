package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-iita/internal/domain"
)

// LoadConfig reads, parses and validates an analysis configuration file.
// LoadConfig returns an error wrapping domain.ErrInvalidConfiguration if
// the file content does not describe a valid configuration.
func LoadConfig(path string) (*AnalysisConfig, error) {
	// Clean the path to prevent directory traversal attacks.
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return parseConfig(data)
}

// ParseConfig reads, parses and validates an analysis configuration from r.
func ParseConfig(r io.Reader) (*AnalysisConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(data)
}

func parseConfig(data []byte) (*AnalysisConfig, error) {
	config, err := parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// parseYAML uses strict decoding to detect unknown fields, preventing
// configuration typos from being silently ignored. Settings absent from
// the document keep the values of DefaultAnalysisConfig.
func parseYAML(data []byte) (*AnalysisConfig, error) {
	config := DefaultAnalysisConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.

	if err := decoder.Decode(config); err != nil {
		if errors.Is(err, io.EOF) {
			return config, nil
		}
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return config, nil
}

// ValidateConfig performs struct validation and semantic validation on
// a configuration. Every failure is reported as a *domain.ValidationError.
func ValidateConfig(config *AnalysisConfig) error {
	verr := domain.NewValidationError("analysis config")

	if err := configValidator.Struct(config); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.AddError(fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
		} else {
			verr.AddError(err.Error())
		}
	}

	if err := validateSemantics(config); err != nil {
		verr.AddError(err.Error())
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// validateSemantics performs rules that cannot be expressed through
// struct tags: stage IDs must be unique, stages must appear in pipeline
// order, and stage parameters must suit their type.
func validateSemantics(config *AnalysisConfig) error {
	if len(config.Stages) == 0 {
		return nil
	}

	order := []string{StageCatalog, StageFit, StageSelection}
	seen := make(map[string]struct{}, len(config.Stages))

	for i, stage := range config.Stages {
		if _, exists := seen[stage.ID]; exists {
			return fmt.Errorf("duplicate stage ID %q", stage.ID)
		}
		seen[stage.ID] = struct{}{}

		if i < len(order) && stage.Type != order[i] {
			return fmt.Errorf("stage %d (%s) must be of type %s, got %s", i+1, stage.ID, order[i], stage.Type)
		}

		if err := ValidateStageParameters(stage.Type, stage.Parameters); err != nil {
			return fmt.Errorf("stage %s: %w", stage.ID, err)
		}
	}

	return nil
}
