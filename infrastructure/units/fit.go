package units

import (
	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

var _ ports.FitEvaluator = Evaluator{}

// EvaluateFit computes the diff statistic of order against data.
//
// For every pair (i, j) with i ≠ j and i a prerequisite for j, every
// subject whose responses to both items are observed contributes one
// comparison; it is a violation when the subject solved j but failed i.
// Missing responses are deleted pairwise, per relation, not per subject.
// diff is violations/comparisons, or 0 when nothing was comparable.
// Both counts are integers, so equal counts always give equal diffs.
func EvaluateFit(data *domain.ResponseMatrix, order domain.QuasiOrder) (domain.FitScore, error) {
	if err := data.Validate(); err != nil {
		return domain.FitScore{}, err
	}
	if order.Items != data.Items {
		return domain.FitScore{}, domain.NewDimensionError("quasi-order", -1, order.Items, data.Items)
	}
	if len(order.Relation) != data.Items*data.Items {
		return domain.FitScore{}, domain.NewDimensionError("quasi-order relation", -1,
			len(order.Relation), data.Items*data.Items)
	}

	var violations, comparisons int
	for i := 0; i < order.Items; i++ {
		for j := 0; j < order.Items; j++ {
			if i == j || !order.Has(i, j) {
				continue
			}
			for s := 0; s < data.Subjects; s++ {
				pre, dep := data.At(s, i), data.At(s, j)
				if pre == domain.CellMissing || dep == domain.CellMissing {
					continue
				}
				comparisons++
				if dep == domain.CellOne && pre == domain.CellZero {
					violations++
				}
			}
		}
	}

	var diff float64
	if comparisons > 0 {
		diff = float64(violations) / float64(comparisons)
	}

	return domain.FitScore{
		Diff:        diff,
		ErrorRate:   diff,
		Violations:  violations,
		Comparisons: comparisons,
	}, nil
}

// Evaluator implements ports.FitEvaluator with EvaluateFit.
type Evaluator struct{}

// Evaluate calls EvaluateFit.
func (Evaluator) Evaluate(data *domain.ResponseMatrix, order domain.QuasiOrder) (domain.FitScore, error) {
	return EvaluateFit(data, order)
}
