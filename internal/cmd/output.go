package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-iita/internal/domain"
)

// report is the serialized form of an analysis, carrying item names when
// the input had them.
type report struct {
	ItemNames             []string `json:"items,omitempty" yaml:"items,omitempty"`
	domain.AnalysisResult `yaml:",inline"`
}

func writeResult(w io.Writer, format string, names []string, result *domain.AnalysisResult) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report{ItemNames: names, AnalysisResult: *result})
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report{ItemNames: names, AnalysisResult: *result}); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, names, result)
	}
}

func writeText(w io.Writer, names []string, result *domain.AnalysisResult) error {
	bold := color.New(color.FgWhite, color.Bold)
	selectedColor := color.New(color.FgGreen)
	muted := color.New(color.FgHiBlack)

	fmt.Fprintf(w, "%-12s%d\n", "items", result.Items)
	fmt.Fprintf(w, "%-12s%d\n", "subjects", result.Subjects)
	fmt.Fprintf(w, "%-12s%d\n", "candidates", result.CandidateCount)
	fmt.Fprintf(w, "%-12s%s\n", "rule", result.Rule())
	muted.Fprintf(w, "%-12s%.6g\n", "min diff", result.MinDiff())
	muted.Fprintf(w, "%-12s%.6g\n", "threshold", result.Selection.Threshold)
	selectedColor.Fprintf(w, "%-12s%s\n", "selected", joinInts(result.Selected()))
	fmt.Fprintln(w)

	selected := make(map[int]bool, len(result.Selected()))
	for _, idx := range result.Selected() {
		selected[idx] = true
	}

	bold.Fprintf(w, "%4s  %-8s  %s\n", "#", "diff", "relation")
	for i, q := range result.Candidates {
		if selected[i+1] {
			selectedColor.Fprintf(w, "%4d  %.6f  %s  *\n", i+1, result.Diffs[i], q)
			continue
		}
		fmt.Fprintf(w, "%4d  %.6f  %s\n", i+1, result.Diffs[i], q)
	}

	for n, q := range result.Implications {
		fmt.Fprintln(w)
		bold.Fprintf(w, "implications of candidate %d", result.Selected()[n])
		muted.Fprintln(w, " (prerequisite -> item)")
		pairs := q.Pairs()
		if len(pairs) == 0 {
			muted.Fprintln(w, "  (none)")
		}
		for _, p := range pairs {
			fmt.Fprintf(w, "  %s -> %s\n", itemName(names, p[0]), itemName(names, p[1]))
		}
	}

	return nil
}

// itemName returns the header name of item i, or its 1-based position.
func itemName(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return strconv.Itoa(i + 1)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
