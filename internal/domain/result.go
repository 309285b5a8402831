package domain

import (
	"fmt"
	"strings"
)

// SelectionRule names the acceptance rule used to pick winning candidates.
type SelectionRule string

// Supported selection rules.
const (
	// RuleMinimal keeps every candidate whose diff equals the minimum exactly.
	RuleMinimal SelectionRule = "minimal"

	// RuleCorrected keeps every candidate whose diff is at most
	// min + sqrt(min).
	RuleCorrected SelectionRule = "corrected"
)

// String returns the string representation of the selection rule.
func (r SelectionRule) String() string { return string(r) }

// Valid reports whether r is a recognized rule.
func (r SelectionRule) Valid() bool { return r == RuleMinimal || r == RuleCorrected }

// ParseSelectionRule converts a rule name into a SelectionRule.
// Matching ignores case and surrounding whitespace; the name itself must
// be exactly minimal or corrected.
func ParseSelectionRule(name string) (SelectionRule, error) {
	rule := SelectionRule(strings.ToLower(strings.TrimSpace(name)))
	if !rule.Valid() {
		return "", fmt.Errorf("%w: unknown selection rule %q", ErrInvalidArgument, name)
	}
	return rule, nil
}

// FitScore is the fit statistic of one candidate against the data.
// For IITA the error rate always equals the diff value.
type FitScore struct {
	// Diff is the violation rate in [0, 1].
	Diff float64 `json:"diff" yaml:"diff"`

	// ErrorRate mirrors Diff.
	ErrorRate float64 `json:"error_rate" yaml:"error_rate"`

	// Violations is the number of observed counterexamples.
	Violations int `json:"violations" yaml:"violations"`

	// Comparisons is the number of (subject, pair) observations that had
	// both responses present.
	Comparisons int `json:"comparisons" yaml:"comparisons"`
}

// Selection is the outcome of applying a selection rule to a diff vector.
type Selection struct {
	// Rule is the rule that produced the selection.
	Rule SelectionRule `json:"rule" yaml:"rule"`

	// Indices are the 1-based positions of the selected candidates, ascending.
	Indices []int `json:"indices" yaml:"indices"`

	// MinDiff is the smallest diff in the vector.
	MinDiff float64 `json:"min_diff" yaml:"min_diff"`

	// Threshold is the acceptance bound: diffs at or below it are selected.
	// It is min for the minimal rule and min + sqrt(min) for corrected.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// AnalysisResult is the complete output of one analysis. It carries no
// presentation logic; reporting belongs to the caller.
type AnalysisResult struct {
	// Items is the number of items (ni).
	Items int `json:"ni" yaml:"ni"`

	// Subjects is the number of response rows analyzed.
	Subjects int `json:"subjects" yaml:"subjects"`

	// CandidateCount is the number of competing quasi-orders.
	CandidateCount int `json:"candidate_count" yaml:"candidate_count"`

	// Candidates is the candidate set in evaluation order.
	Candidates []QuasiOrder `json:"candidates" yaml:"candidates"`

	// Diffs holds one diff value per candidate, index-aligned.
	Diffs []float64 `json:"diff" yaml:"diff"`

	// ErrorRates holds one error rate per candidate, index-aligned.
	ErrorRates []float64 `json:"error_rate" yaml:"error_rate"`

	// Selection holds the rule, selected indices and threshold.
	Selection Selection `json:"selection" yaml:"selection"`

	// Implications are the selected candidates in index order.
	Implications []QuasiOrder `json:"implications" yaml:"implications"`
}

// Rule returns the selection rule that was applied.
func (r *AnalysisResult) Rule() SelectionRule { return r.Selection.Rule }

// Selected returns the 1-based indices of the selected candidates.
func (r *AnalysisResult) Selected() []int { return r.Selection.Indices }

// MinDiff returns the smallest diff across all candidates.
func (r *AnalysisResult) MinDiff() float64 { return r.Selection.MinDiff }
