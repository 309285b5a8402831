package testutils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-iita/internal/domain"
)

var validate = validator.New()

// GeneratorConfig controls synthetic response generation.
type GeneratorConfig struct {
	// Subjects is the number of response rows to generate.
	Subjects int `validate:"min=1"`

	// Items is the number of items, ordered from easiest to hardest.
	Items int `validate:"min=1,max=64"`

	// CarelessRate is the probability that a mastered item is answered 0.
	CarelessRate float64 `validate:"min=0,max=1"`

	// LuckyRate is the probability that an unmastered item is answered 1.
	LuckyRate float64 `validate:"min=0,max=1"`

	// MissingRate is the probability that a response is dropped.
	MissingRate float64 `validate:"min=0,max=1"`
}

// DefaultGeneratorConfig returns a small, lightly noisy configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Subjects:     200,
		Items:        5,
		CarelessRate: 0.05,
		LuckyRate:    0.05,
	}
}

// ChainHierarchy returns the linear prerequisite order over items in
// which item i is a prerequisite for every item j > i.
func ChainHierarchy(items int) domain.QuasiOrder {
	q := domain.NewQuasiOrder(items)
	for i := 0; i < items; i++ {
		for j := i + 1; j < items; j++ {
			q.Add(i, j)
		}
	}
	return q
}

// GenerateResponseDataset creates a synthetic response matrix that follows
// ChainHierarchy(cfg.Items). Each subject masters a uniformly drawn prefix
// of the items; careless errors, lucky guesses and missing responses are
// then applied independently per cell.
// The seed parameter controls randomization - use time.Now().UnixNano() for
// non-deterministic generation or a fixed value for reproducible tests.
func GenerateResponseDataset(cfg GeneratorConfig, seed int64) (*ResponseDataset, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // Seeded for reproducible datasets

	dataset := &ResponseDataset{
		Metadata: DatasetMetadata{
			Name:         fmt.Sprintf("chain-%d-items", cfg.Items),
			Seed:         seed,
			Subjects:     cfg.Subjects,
			Items:        cfg.Items,
			CarelessRate: cfg.CarelessRate,
			LuckyRate:    cfg.LuckyRate,
			MissingRate:  cfg.MissingRate,
		},
		Hierarchy: ChainHierarchy(cfg.Items),
		Responses: make([][]float64, 0, cfg.Subjects),
	}

	for range cfg.Subjects {
		dataset.Responses = append(dataset.Responses, generateRow(rng, cfg))
	}

	return dataset, nil
}

// GenerateResponseDatasetDefault creates a dataset with a time-based seed.
func GenerateResponseDatasetDefault(cfg GeneratorConfig) (*ResponseDataset, error) {
	return GenerateResponseDataset(cfg, time.Now().UnixNano())
}

func generateRow(rng *rand.Rand, cfg GeneratorConfig) []float64 {
	mastered := rng.Intn(cfg.Items + 1)
	row := make([]float64, cfg.Items)

	for i := range row {
		var v float64
		if i < mastered {
			v = 1
			if rng.Float64() < cfg.CarelessRate {
				v = 0
			}
		} else if rng.Float64() < cfg.LuckyRate {
			v = 1
		}

		if rng.Float64() < cfg.MissingRate {
			v = domain.Missing()
		}
		row[i] = v
	}

	return row
}
