// Package testutils provides utilities for testing, including synthetic
// response data generators. These components are intended for internal use
// within the project's test suites and tools and are not part of the public API.
package testutils

import (
	"fmt"
	"math"

	"github.com/ahrav/go-iita/internal/domain"
)

// ResponseDataset is a synthetic response matrix together with the
// hierarchy it was drawn from.
type ResponseDataset struct {
	// Metadata records how the dataset was generated.
	Metadata DatasetMetadata `yaml:"metadata"`

	// Hierarchy is the prerequisite relation the responses follow, before
	// noise is applied.
	Hierarchy domain.QuasiOrder `yaml:"hierarchy"`

	// Responses holds one row per subject; NaN marks a missing response.
	Responses [][]float64 `yaml:"-"`
}

// DatasetMetadata contains information about how a dataset was generated.
type DatasetMetadata struct {
	// Name identifies the dataset.
	Name string `yaml:"name"`

	// Seed is the random seed used for generation.
	Seed int64 `yaml:"seed"`

	// Subjects is the number of response rows.
	Subjects int `yaml:"subjects"`

	// Items is the number of items.
	Items int `yaml:"items"`

	// CarelessRate is the probability that a mastered item is answered 0.
	CarelessRate float64 `yaml:"careless_rate"`

	// LuckyRate is the probability that an unmastered item is answered 1.
	LuckyRate float64 `yaml:"lucky_rate"`

	// MissingRate is the probability that a response is dropped.
	MissingRate float64 `yaml:"missing_rate"`
}

// ValidateResponseDataset checks that the responses match the metadata and
// contain only 0, 1 or NaN.
func ValidateResponseDataset(dataset *ResponseDataset) error {
	if dataset == nil {
		return fmt.Errorf("dataset is nil")
	}

	if len(dataset.Responses) != dataset.Metadata.Subjects {
		return fmt.Errorf("metadata subjects (%d) doesn't match actual row count (%d)",
			dataset.Metadata.Subjects, len(dataset.Responses))
	}
	if dataset.Hierarchy.Items != dataset.Metadata.Items {
		return fmt.Errorf("hierarchy covers %d items, metadata says %d",
			dataset.Hierarchy.Items, dataset.Metadata.Items)
	}

	if _, err := domain.NewResponseMatrix(dataset.Responses); err != nil {
		return fmt.Errorf("responses: %w", err)
	}
	return nil
}

// DatasetStatistics provides summary statistics about a response dataset.
type DatasetStatistics struct {
	// Subjects is the number of response rows.
	Subjects int

	// Items is the number of items.
	Items int

	// Missing is the number of missing responses.
	Missing int

	// SolveRates holds, per item, the share of observed responses that are 1.
	SolveRates []float64

	// Violations counts observed responses that contradict the hierarchy.
	Violations int
}

// ComputeDatasetStatistics summarizes a dataset.
func ComputeDatasetStatistics(dataset *ResponseDataset) *DatasetStatistics {
	items := dataset.Metadata.Items
	stats := &DatasetStatistics{
		Subjects:   len(dataset.Responses),
		Items:      items,
		SolveRates: make([]float64, items),
	}

	observed := make([]int, items)
	solved := make([]int, items)
	for _, row := range dataset.Responses {
		for i, v := range row {
			if math.IsNaN(v) {
				stats.Missing++
				continue
			}
			observed[i]++
			if v == 1 {
				solved[i]++
			}
		}

		for _, p := range dataset.Hierarchy.Pairs() {
			pre, dep := row[p[0]], row[p[1]]
			if pre == 0 && dep == 1 {
				stats.Violations++
			}
		}
	}

	for i := range items {
		if observed[i] > 0 {
			stats.SolveRates[i] = float64(solved[i]) / float64(observed[i])
		}
	}

	return stats
}
