package units

import (
	"fmt"
	"math"

	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

var _ ports.Selector = Engine{}

// SelectCandidates applies rule to a diff vector and returns the 1-based
// indices of the accepted candidates in ascending order.
//
// The minimal rule accepts diffs equal to the minimum, compared exactly.
// The corrected rule accepts diffs at most min + sqrt(min); with a zero
// minimum both rules select the same set.
func SelectCandidates(diffs []float64, rule domain.SelectionRule) (domain.Selection, error) {
	if !rule.Valid() {
		return domain.Selection{}, fmt.Errorf("%w: unknown selection rule %q", domain.ErrInvalidArgument, string(rule))
	}
	if len(diffs) == 0 {
		return domain.Selection{}, fmt.Errorf("%w: diff vector is empty", domain.ErrInvalidArgument)
	}

	minDiff := math.Inf(1)
	for i, d := range diffs {
		if math.IsNaN(d) || d < 0 || d > 1 {
			return domain.Selection{}, fmt.Errorf("%w: diff %d is %g, want a value in [0, 1]",
				domain.ErrInvalidArgument, i+1, d)
		}
		minDiff = min(minDiff, d)
	}

	threshold := minDiff
	if rule == domain.RuleCorrected {
		threshold = minDiff + math.Sqrt(minDiff)
	}

	indices := make([]int, 0, 1)
	for i, d := range diffs {
		if d <= threshold {
			indices = append(indices, i+1)
		}
	}

	return domain.Selection{
		Rule:      rule,
		Indices:   indices,
		MinDiff:   minDiff,
		Threshold: threshold,
	}, nil
}

// Engine implements ports.Selector with SelectCandidates.
type Engine struct{}

// Select calls SelectCandidates.
func (Engine) Select(diffs []float64, rule domain.SelectionRule) (domain.Selection, error) {
	return SelectCandidates(diffs, rule)
}
