package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-iita/internal/domain"
)

// configValidator validates AnalysisConfig values. It carries the custom
// tags registered by registerCustomValidators.
var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		panic(fmt.Sprintf("application: %v", err))
	}
	return v
}

// ValidateStageParameters validates the parameters for a specific stage
// type, ensuring values meet domain constraints. An empty parameter node
// is always valid.
// ValidateStageParameters returns an error if parameter decoding fails
// or if any validation rule is violated.
func ValidateStageParameters(stageType string, params yaml.Node) error {
	if params.Kind == 0 {
		return nil
	}

	var paramMap map[string]any
	if err := params.Decode(&paramMap); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}

	switch stageType {
	case StageCatalog:
		return validateCatalogParams(paramMap)
	case StageFit:
		return validateFitParams(paramMap)
	case StageSelection:
		return validateSelectionParams(paramMap)
	default:
		return fmt.Errorf("unknown stage type: %s", stageType)
	}
}

// validateCatalogParams validates parameters for catalog stages.
func validateCatalogParams(params map[string]any) error {
	for key, value := range params {
		switch key {
		case "cache_candidates":
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("cache_candidates must be a boolean")
			}
		default:
			return fmt.Errorf("unknown catalog parameter: %s", key)
		}
	}
	return nil
}

// validateFitParams validates parameters for fit stages,
// ensuring max_concurrency is an integer between 0 and 256.
func validateFitParams(params map[string]any) error {
	for key, value := range params {
		switch key {
		case "max_concurrency":
			n, ok := value.(int)
			if !ok {
				return fmt.Errorf("max_concurrency must be an integer")
			}
			if n < 0 || n > 256 {
				return fmt.Errorf("max_concurrency must be between 0 and 256")
			}
		default:
			return fmt.Errorf("unknown fit parameter: %s", key)
		}
	}
	return nil
}

// validateSelectionParams validates parameters for selection stages.
func validateSelectionParams(params map[string]any) error {
	for key, value := range params {
		switch key {
		case "rule":
			rule, ok := value.(string)
			if !ok {
				return fmt.Errorf("rule must be a string")
			}
			if !domain.SelectionRule(rule).Valid() {
				return fmt.Errorf("invalid selection rule: %s", rule)
			}
		default:
			return fmt.Errorf("unknown selection parameter: %s", key)
		}
	}
	return nil
}

// registerCustomValidators registers domain-specific validation functions
// with the validator instance.
// registerCustomValidators returns an error if any validator registration fails.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}

	if err := v.RegisterValidation("selectionrule", validateSelectionRule); err != nil {
		return fmt.Errorf("failed to register selectionrule validator: %w", err)
	}

	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3 && major >= 0 && minor >= 0 && patch >= 0
}

// validateSelectionRule accepts the names understood by
// domain.ParseSelectionRule.
func validateSelectionRule(fl validator.FieldLevel) bool {
	_, err := domain.ParseSelectionRule(fl.Field().String())
	return err == nil
}
