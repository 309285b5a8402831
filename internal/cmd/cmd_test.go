package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-iita/infrastructure/dataset"
	"github.com/ahrav/go-iita/internal/domain"
)

// hierarchyCSV is a perfect chain a < b < c with item names.
const hierarchyCSV = "a,b,c\n0,0,0\n1,0,0\n1,1,0\n1,1,1\n"

// runCLI executes the command tree with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// disableColor turns off ANSI escapes for the duration of the test.
func disableColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAnalyze_TextOutput(t *testing.T) {
	disableColor(t)
	input := writeFile(t, "responses.csv", hierarchyCSV)

	out, _, err := runCLI(t, "analyze", "--input", input)
	require.NoError(t, err)

	assert.Regexp(t, `items\s+3`, out)
	assert.Regexp(t, `subjects\s+4`, out)
	assert.Regexp(t, `candidates\s+8`, out)
	assert.Regexp(t, `rule\s+minimal`, out)
	assert.Regexp(t, `selected\s+1 2 4 6 8`, out)
	assert.Contains(t, out, "011/001/000")
	assert.Contains(t, out, "implications of candidate 8")
	assert.Contains(t, out, "a -> b")
	assert.Contains(t, out, "b -> c")
}

func TestAnalyze_TextLayout(t *testing.T) {
	disableColor(t)
	input := writeFile(t, "responses.csv", hierarchyCSV)

	out, _, err := runCLI(t, "analyze", "--input", input)
	require.NoError(t, err)

	want := `items       3
subjects    4
candidates  8
rule        minimal
min diff    0
threshold   0
selected    1 2 4 6 8

   #  diff      relation
   1  0.000000  000/000/000  *
   2  0.000000  010/000/000  *
   3  0.250000  000/100/000
   4  0.000000  001/000/000  *
   5  0.500000  000/000/100
   6  0.000000  000/001/000  *
   7  0.250000  000/000/010
   8  0.000000  011/001/000  *

implications of candidate 1 (prerequisite -> item)
  (none)

implications of candidate 2 (prerequisite -> item)
  a -> b

implications of candidate 4 (prerequisite -> item)
  a -> c

implications of candidate 6 (prerequisite -> item)
  b -> c

implications of candidate 8 (prerequisite -> item)
  a -> b
  a -> c
  b -> c
`
	assert.Equal(t, want, out)
}

func TestAnalyze_HeaderMode(t *testing.T) {
	input := writeFile(t, "numeric.csv", "1,0\n1,1\n0,0\n")

	tests := []struct {
		name         string
		header       string
		wantItems    []string
		wantSubjects int
	}{
		{name: "detection reads numeric names as data", header: "auto", wantSubjects: 3},
		{name: "explicit header keeps numeric names", header: "yes", wantItems: []string{"1", "0"}, wantSubjects: 2},
		{name: "header disabled", header: "no", wantSubjects: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, "analyze", "--input", input, "--header", tt.header, "-f", "json")
			require.NoError(t, err)

			var got struct {
				Items    []string `json:"items"`
				Subjects int      `json:"subjects"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.wantItems, got.Items)
			assert.Equal(t, tt.wantSubjects, got.Subjects)
		})
	}
}

func TestAnalyze_JSONOutput(t *testing.T) {
	input := writeFile(t, "responses.csv", hierarchyCSV)

	out, _, err := runCLI(t, "analyze", "--input", input, "--format", "json")
	require.NoError(t, err)

	var got struct {
		Items     []string  `json:"items"`
		NI        int       `json:"ni"`
		Subjects  int       `json:"subjects"`
		Diffs     []float64 `json:"diff"`
		Selection struct {
			Rule    string  `json:"rule"`
			Indices []int   `json:"indices"`
			MinDiff float64 `json:"min_diff"`
		} `json:"selection"`
		Implications [][][]int `json:"implications"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, []string{"a", "b", "c"}, got.Items)
	assert.Equal(t, 3, got.NI)
	assert.Equal(t, 4, got.Subjects)
	assert.Equal(t, []float64{0, 0, 0.25, 0, 0.5, 0, 0.25, 0}, got.Diffs)
	assert.Equal(t, "minimal", got.Selection.Rule)
	assert.Equal(t, []int{1, 2, 4, 6, 8}, got.Selection.Indices)
	assert.Zero(t, got.Selection.MinDiff)
	require.Len(t, got.Implications, 5)
	assert.Equal(t, [][]int{{0, 1, 1}, {0, 0, 1}, {0, 0, 0}}, got.Implications[4])
}

func TestAnalyze_YAMLOutputWithCandidates(t *testing.T) {
	input := writeFile(t, "responses.yaml", `
items: [a, b, c]
responses:
  - [0, 0, 0]
  - [1, 0, 0]
  - [1, 1, ~]
  - [1, 1, 1]
`)

	edge := func(i, j int) domain.QuasiOrder {
		q := domain.NewQuasiOrder(3)
		q.Add(i, j)
		return q
	}
	var buf bytes.Buffer
	require.NoError(t, dataset.WriteCandidates(&buf, []domain.QuasiOrder{edge(0, 1), edge(1, 0)}))
	candidates := writeFile(t, "candidates.yaml", buf.String())

	out, _, err := runCLI(t, "analyze", "-i", input, "-c", candidates, "-r", "corrected", "-f", "yaml")
	require.NoError(t, err)

	var got struct {
		Items          []string  `yaml:"items"`
		CandidateCount int       `yaml:"candidate_count"`
		Diffs          []float64 `yaml:"diff"`
		Selection      struct {
			Rule    string `yaml:"rule"`
			Indices []int  `yaml:"indices"`
		} `yaml:"selection"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))

	assert.Equal(t, []string{"a", "b", "c"}, got.Items)
	assert.Equal(t, 2, got.CandidateCount)
	require.Len(t, got.Diffs, 2)
	assert.Zero(t, got.Diffs[0])
	assert.Equal(t, "corrected", got.Selection.Rule)
	assert.Contains(t, got.Selection.Indices, 1)
}

func TestAnalyze_Errors(t *testing.T) {
	good := writeFile(t, "responses.csv", hierarchyCSV)
	outOfRange := writeFile(t, "range.csv", "1,0,2\n")
	malformed := writeFile(t, "malformed.csv", "1,0\n1,x\n")
	smallLimits := writeFile(t, "limits.yaml", "limits:\n  max_items: 2\n")
	badConfig := writeFile(t, "config.yaml", "analysis:\n  rule: maximal\n")

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{
			name:     "input flag is required",
			args:     []string{"analyze"},
			wantCode: ExitGeneral,
			wantErr:  `required flag(s) "input" not set`,
		},
		{
			name:     "missing input file",
			args:     []string{"analyze", "--input", filepath.Join(t.TempDir(), "absent.csv")},
			wantCode: ExitInput,
			wantErr:  "reading responses",
		},
		{
			name:     "non-numeric cell",
			args:     []string{"analyze", "--input", malformed},
			wantCode: ExitInput,
			wantErr:  "reading responses",
		},
		{
			name:     "response value out of range",
			args:     []string{"analyze", "--input", outOfRange},
			wantCode: ExitInput,
			wantErr:  "invalid data value",
		},
		{
			name:     "unknown rule",
			args:     []string{"analyze", "--input", good, "--rule", "maximal"},
			wantCode: ExitInput,
			wantErr:  "unknown selection rule",
		},
		{
			name:     "unknown format",
			args:     []string{"analyze", "--input", good, "--format", "xml"},
			wantCode: ExitInput,
			wantErr:  "invalid --format",
		},
		{
			name:     "bad delimiter",
			args:     []string{"analyze", "--input", good, "--delimiter", ";;"},
			wantCode: ExitInput,
			wantErr:  "single character",
		},
		{
			name:     "bad header mode",
			args:     []string{"analyze", "--input", good, "--header", "maybe"},
			wantCode: ExitInput,
			wantErr:  "invalid --header",
		},
		{
			name:     "invalid configuration",
			args:     []string{"analyze", "--input", good, "--config", badConfig},
			wantCode: ExitConfig,
			wantErr:  "loading configuration",
		},
		{
			name:     "item limit exceeded",
			args:     []string{"analyze", "--input", good, "--config", smallLimits},
			wantCode: ExitLimit,
			wantErr:  "items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantCode, ExitCode(err))
		})
	}
}

func TestAnalyze_MetricsFile(t *testing.T) {
	input := writeFile(t, "responses.csv", hierarchyCSV)
	metrics := filepath.Join(t.TempDir(), "iita.prom")

	_, _, err := runCLI(t, "analyze", "--input", input, "--metrics-file", metrics)
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "iita_analyses_total")
	assert.Contains(t, string(data), "iita_candidates_evaluated_total")
}

func TestAnalyze_TraceAndVerboseWriteToStderr(t *testing.T) {
	input := writeFile(t, "responses.csv", hierarchyCSV)

	out, errOut, err := runCLI(t, "analyze", "--input", input, "--trace", "-vv")
	require.NoError(t, err)

	assert.Contains(t, out, "selected")
	assert.Contains(t, errOut, `"Name": "iita.Analyze"`)
	assert.Contains(t, errOut, "analysis completed")
}

func TestCatalog(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out, _, err := runCLI(t, "catalog", "--items", "3")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 8)
		assert.Equal(t, "1  000/000/000", strings.TrimSpace(lines[0]))
		assert.Equal(t, "8  011/001/000", strings.TrimSpace(lines[7]))
	})

	t.Run("count", func(t *testing.T) {
		out, _, err := runCLI(t, "catalog", "-n", "5", "--count")
		require.NoError(t, err)
		assert.Equal(t, "24\n", out)
	})

	t.Run("yaml round trips through the candidate reader", func(t *testing.T) {
		out, _, err := runCLI(t, "catalog", "-n", "3", "-f", "yaml")
		require.NoError(t, err)

		candidates, err := dataset.ReadCandidates(strings.NewReader(out))
		require.NoError(t, err)
		require.Len(t, candidates, 8)
		assert.Equal(t, "011/001/000", candidates[7].String())
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := runCLI(t, "catalog", "-n", "2", "-f", "json")
		require.NoError(t, err)

		var got map[string][][][]int
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Len(t, got["candidates"], 3)
	})

	t.Run("rejects non-positive item count", func(t *testing.T) {
		_, _, err := runCLI(t, "catalog", "--items", "0")
		require.Error(t, err)
		assert.Equal(t, ExitInput, ExitCode(err))
	})
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "iita "))
	assert.Contains(t, out, "commit:")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "plain error", err: errors.New("boom"), want: ExitGeneral},
		{name: "explicit code wins", err: ConfigError("x", domain.ErrInvalidDataValue), want: ExitConfig},
		{name: "configuration", err: fmt.Errorf("wrap: %w", domain.ErrInvalidConfiguration), want: ExitConfig},
		{name: "limit", err: domain.NewLimitExceededError("items", 2, 3, "fit"), want: ExitLimit},
		{name: "data value", err: domain.ErrInvalidDataValue, want: ExitInput},
		{name: "dimension", err: domain.ErrDimensionMismatch, want: ExitInput},
		{name: "argument", err: domain.ErrInvalidArgument, want: ExitInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitError(t *testing.T) {
	err := InputError("reading responses", os.ErrNotExist)
	assert.Equal(t, "reading responses: file does not exist", err.Error())
	assert.ErrorIs(t, err, os.ErrNotExist)

	bare := &ExitError{Code: ExitGeneral, Message: "failed"}
	assert.Equal(t, "failed", bare.Error())
}
