package ports

import "github.com/ahrav/go-iita/internal/domain"

// CandidateGenerator produces the ordered candidate set for an item count.
// Implementations must be deterministic: equal item counts yield equal
// sequences in the same order.
type CandidateGenerator interface {
	Generate(items int) ([]domain.QuasiOrder, error)
}

// FitEvaluator scores one candidate against a response matrix.
type FitEvaluator interface {
	Evaluate(data *domain.ResponseMatrix, order domain.QuasiOrder) (domain.FitScore, error)
}

// Selector picks winning candidates from a diff vector.
type Selector interface {
	Select(diffs []float64, rule domain.SelectionRule) (domain.Selection, error)
}
