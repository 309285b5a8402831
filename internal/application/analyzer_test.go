package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ahrav/go-iita/infrastructure/middleware"
	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

// perfectHierarchy is a Guttman scale over three items: item 0 is solved
// first, then item 1, then item 2.
var perfectHierarchy = [][]float64{
	{0, 0, 0},
	{1, 0, 0},
	{1, 1, 0},
	{1, 1, 1},
}

// quasiOrder builds a relation over items with the given (i, j) pairs.
func quasiOrder(items int, pairs ...[2]int) domain.QuasiOrder {
	q := domain.NewQuasiOrder(items)
	for _, p := range pairs {
		q.Add(p[0], p[1])
	}
	return q
}

func newTestAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(opts...)
	require.NoError(t, err)
	return a
}

func TestAnalyzer_PerfectHierarchy(t *testing.T) {
	a := newTestAnalyzer(t)

	result, err := a.Analyze(context.Background(), Request{Responses: perfectHierarchy})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Items)
	assert.Equal(t, 4, result.Subjects)
	assert.Equal(t, 8, result.CandidateCount)
	assert.Len(t, result.Candidates, 8)
	assert.Equal(t, []float64{0, 0, 0.25, 0, 0.5, 0, 0.25, 0}, result.Diffs)
	assert.Equal(t, result.Diffs, result.ErrorRates)

	assert.Equal(t, domain.RuleMinimal, result.Rule())
	assert.Equal(t, []int{1, 2, 4, 6, 8}, result.Selected())
	assert.Equal(t, 0.0, result.MinDiff())

	require.Len(t, result.Implications, 5)
	for k, idx := range result.Selected() {
		assert.True(t, result.Implications[k].Equal(result.Candidates[idx-1]))
	}
	assert.Equal(t, "011/001/000", result.Implications[4].String())
}

func TestAnalyzer_RepeatedRunsAreIdentical(t *testing.T) {
	a := newTestAnalyzer(t)
	req := Request{
		Responses: [][]float64{
			{1, 0, 1, 0},
			{1, 1, 0, 0},
			{1, 1, 1, 0},
			{0, 1, domain.Missing(), 1},
			{1, 1, 1, 1},
			{0, 0, 0, domain.Missing()},
		},
		Rule: "corrected",
	}

	first, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Diffs, second.Diffs)
	assert.Equal(t, first.Selection, second.Selection)
	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Equal(t, 1+4*3+2, first.CandidateCount)
}

func TestAnalyzer_SelectionRules(t *testing.T) {
	candidates := []domain.QuasiOrder{
		quasiOrder(3, [2]int{2, 0}),
		quasiOrder(3, [2]int{1, 0}),
		quasiOrder(3, [2]int{2, 1}),
	}

	tests := []struct {
		name          string
		rule          string
		wantIndices   []int
		wantThreshold float64
	}{
		{name: "minimal keeps exact minimum", rule: "minimal", wantIndices: []int{2, 3}, wantThreshold: 0.25},
		{name: "corrected widens threshold", rule: "corrected", wantIndices: []int{1, 2, 3}, wantThreshold: 0.75},
		{name: "rule names ignore case", rule: " Corrected ", wantIndices: []int{1, 2, 3}, wantThreshold: 0.75},
		{name: "empty rule uses default", rule: "", wantIndices: []int{2, 3}, wantThreshold: 0.25},
	}

	a := newTestAnalyzer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Analyze(context.Background(), Request{
				Responses:  perfectHierarchy,
				Candidates: candidates,
				Rule:       tt.rule,
			})
			require.NoError(t, err)

			assert.Equal(t, []float64{0.5, 0.25, 0.25}, result.Diffs)
			assert.Equal(t, tt.wantIndices, result.Selected())
			assert.Equal(t, 0.25, result.MinDiff())
			assert.Equal(t, tt.wantThreshold, result.Selection.Threshold)
		})
	}
}

func TestAnalyzer_SuppliedCandidates(t *testing.T) {
	a := newTestAnalyzer(t)
	chain := quasiOrder(3, [2]int{0, 1}, [2]int{0, 2}, [2]int{1, 2})

	result, err := a.Analyze(context.Background(), Request{
		Responses:  perfectHierarchy,
		Candidates: []domain.QuasiOrder{domain.NewQuasiOrder(3), chain},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.CandidateCount)
	assert.Equal(t, []float64{0, 0}, result.Diffs)
	assert.Equal(t, []int{1, 2}, result.Selected())
	assert.True(t, result.Implications[1].Equal(chain))
}

func TestAnalyzer_InputErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{
			name:    "value two is rejected",
			req:     Request{Responses: [][]float64{{0, 2}, {1, 1}}},
			wantErr: domain.ErrInvalidDataValue,
		},
		{
			name:    "unknown rule is rejected",
			req:     Request{Responses: perfectHierarchy, Rule: "invalid"},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:    "rule is checked before data",
			req:     Request{Responses: [][]float64{{2}}, Rule: "invalid"},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:    "ragged rows are rejected",
			req:     Request{Responses: [][]float64{{0, 1}, {1}}},
			wantErr: domain.ErrDimensionMismatch,
		},
		{
			name:    "no rows are rejected",
			req:     Request{},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:    "zero items are rejected",
			req:     Request{Responses: [][]float64{{}, {}}},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name: "candidate of wrong size is rejected",
			req: Request{
				Responses:  perfectHierarchy,
				Candidates: []domain.QuasiOrder{domain.NewQuasiOrder(2)},
			},
			wantErr: domain.ErrDimensionMismatch,
		},
		{
			name:    "empty candidate set is rejected",
			req:     Request{Responses: perfectHierarchy, Candidates: []domain.QuasiOrder{}},
			wantErr: domain.ErrInvalidArgument,
		},
	}

	a := newTestAnalyzer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Analyze(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
		})
	}
}

func TestAnalyzer_AnalyzeMatrix(t *testing.T) {
	a := newTestAnalyzer(t)

	data, err := domain.NewResponseMatrixFromCells([][]domain.Cell{
		{domain.CellOne, domain.CellZero},
		{domain.CellOne, domain.CellMissing},
		{domain.CellOne, domain.CellOne},
	})
	require.NoError(t, err)

	result, err := a.AnalyzeMatrix(context.Background(), data, nil, domain.RuleCorrected)
	require.NoError(t, err)
	assert.Equal(t, 3, result.CandidateCount)
	assert.Equal(t, domain.RuleCorrected, result.Rule())

	_, err = a.AnalyzeMatrix(context.Background(), nil, nil, domain.RuleMinimal)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	bad := &domain.ResponseMatrix{Subjects: 1, Items: 2, Cells: []domain.Cell{domain.CellOne, domain.Cell(7)}}
	_, err = a.AnalyzeMatrix(context.Background(), bad, nil, domain.RuleMinimal)
	assert.ErrorIs(t, err, domain.ErrInvalidDataValue)

	_, err = a.AnalyzeMatrix(context.Background(), data, nil, domain.SelectionRule("best"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAnalyzer_Limits(t *testing.T) {
	tests := []struct {
		name      string
		limits    LimitsConfig
		wantLimit string
	}{
		{name: "too many items", limits: LimitsConfig{MaxItems: 2}, wantLimit: "items"},
		{name: "too many subjects", limits: LimitsConfig{MaxSubjects: 3}, wantLimit: "subjects"},
		{name: "too many candidates", limits: LimitsConfig{MaxCandidates: 5}, wantLimit: "candidates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultAnalysisConfig()
			config.Limits = tt.limits
			a := newTestAnalyzer(t, WithConfig(config))

			_, err := a.Analyze(context.Background(), Request{Responses: perfectHierarchy})
			require.ErrorIs(t, err, domain.ErrLimitExceeded)

			var limitErr *domain.LimitExceededError
			require.True(t, errors.As(err, &limitErr))
			assert.Equal(t, tt.wantLimit, limitErr.Limit)
		})
	}

	t.Run("limits within bounds pass", func(t *testing.T) {
		config := DefaultAnalysisConfig()
		config.Limits = LimitsConfig{MaxSubjects: 4, MaxItems: 3, MaxCandidates: 8}
		a := newTestAnalyzer(t, WithConfig(config))

		_, err := a.Analyze(context.Background(), Request{Responses: perfectHierarchy})
		assert.NoError(t, err)
	})
}

func TestAnalyzer_Cancelled(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := a.Analyze(ctx, Request{Responses: perfectHierarchy})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestAnalyzer_Configuration(t *testing.T) {
	t.Run("configured rule becomes default", func(t *testing.T) {
		config := DefaultAnalysisConfig()
		config.Analysis.Rule = "corrected"
		a := newTestAnalyzer(t, WithConfig(config))
		assert.Equal(t, domain.RuleCorrected, a.DefaultRule())

		result, err := a.Analyze(context.Background(), Request{Responses: perfectHierarchy})
		require.NoError(t, err)
		assert.Equal(t, domain.RuleCorrected, result.Rule())
	})

	t.Run("stage parameters override settings", func(t *testing.T) {
		config, err := ParseConfig(strings.NewReader(`
version: "1.0.0"
stages:
  - id: catalog
    type: quasi_order_catalog
    parameters:
      cache_candidates: false
  - id: fit
    type: fit_evaluator
    parameters:
      max_concurrency: 2
  - id: select
    type: selection
    parameters:
      rule: corrected
`))
		require.NoError(t, err)
		a := newTestAnalyzer(t, WithConfig(config))

		ids := make([]string, 0, 3)
		for _, e := range a.pipeline.Executables() {
			ids = append(ids, e.ID())
		}
		assert.Equal(t, []string{"catalog", "fit", "select"}, ids)
		assert.Equal(t, domain.RuleCorrected, a.DefaultRule())

		result, err := a.Analyze(context.Background(), Request{Responses: perfectHierarchy, Rule: "minimal"})
		require.NoError(t, err)
		assert.Equal(t, domain.RuleMinimal, result.Rule())
	})

	t.Run("invalid configuration is rejected", func(t *testing.T) {
		config := DefaultAnalysisConfig()
		config.Analysis.MaxConcurrency = -1
		_, err := NewAnalyzer(WithConfig(config))
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})

	t.Run("unknown stage type is rejected", func(t *testing.T) {
		registry := NewDefaultUnitRegistry()
		registry.factories = map[string]ports.UnitFactory{}
		_, err := NewAnalyzer(WithRegistry(registry))
		require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		assert.Contains(t, err.Error(), "unsupported unit type")
	})
}

func TestAnalyzer_StageFailure(t *testing.T) {
	errSelect := errors.New("selection unavailable")
	registry := NewDefaultUnitRegistry()
	require.NoError(t, registry.RegisterUnitFactory(StageSelection, func(id string, _ map[string]any) (ports.Unit, error) {
		return &failingUnit{name: id, err: errSelect}, nil
	}))

	a := newTestAnalyzer(t, WithRegistry(registry))
	result, err := a.Analyze(context.Background(), Request{Responses: perfectHierarchy})
	require.ErrorIs(t, err, errSelect)
	assert.Contains(t, err.Error(), "pipeline analysis: execution failed at selection")
	assert.Nil(t, result)
}

type failingUnit struct {
	name string
	err  error
}

func (f *failingUnit) Name() string { return f.name }

func (f *failingUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	return state, f.err
}

func (f *failingUnit) Validate() error { return nil }

func TestAnalyzer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newTestAnalyzer(t, WithMetrics(middleware.NewPrometheusMetrics(reg)))

	_, err := a.Analyze(context.Background(), Request{Responses: perfectHierarchy})
	require.NoError(t, err)
	_, err = a.Analyze(context.Background(), Request{Responses: [][]float64{{2}}})
	require.Error(t, err)
	_, err = a.Analyze(context.Background(), Request{Responses: perfectHierarchy, Rule: "corrected"})
	require.NoError(t, err)

	// One series per (rule, status) seen by the pipeline; input errors
	// are rejected before the pipeline runs.
	count, err := testutil.GatherAndCount(reg, "iita_analyses_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	families, err := reg.Gather()
	require.NoError(t, err)

	var evaluated float64
	stages := map[string]bool{}
	for _, mf := range families {
		switch mf.GetName() {
		case "iita_candidates_evaluated_total":
			evaluated = mf.GetMetric()[0].GetCounter().GetValue()
		case "iita_stage_duration_seconds":
			for _, m := range mf.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() == "stage" {
						stages[l.GetValue()] = true
					}
				}
			}
		}
	}
	assert.Equal(t, 16.0, evaluated)
	for _, stage := range []string{"catalog", "fit", "selection", "analysis"} {
		assert.True(t, stages[stage], "missing stage duration for %s", stage)
	}
}

func TestAnalyzer_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	a := newTestAnalyzer(t, WithTracer(tp.Tracer("test")))
	_, err := a.Analyze(context.Background(), Request{Responses: perfectHierarchy})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 4)

	root := spans[len(spans)-1]
	assert.Equal(t, "iita.Analyze", root.Name())
	assert.Equal(t, codes.Ok, root.Status().Code)
	for _, s := range spans[:3] {
		assert.Equal(t, "LimitGuard.Execute", s.Name())
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
	}
}

func TestAnalyzer_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := newTestAnalyzer(t, WithLogger(logger))

	_, err := a.Analyze(context.Background(), Request{Responses: perfectHierarchy})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"analysis started"`)
	assert.Contains(t, out, `"msg":"analysis completed"`)
	assert.Contains(t, out, `"candidate_source":"catalog"`)
	assert.Contains(t, out, `"execution_id"`)
}

func TestAnalyzer_ConcurrentAnalyses(t *testing.T) {
	a := newTestAnalyzer(t)
	want, err := a.Analyze(context.Background(), Request{Responses: perfectHierarchy})
	require.NoError(t, err)

	const workers = 8
	results := make([]*domain.AnalysisResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			results[i], errs[i] = a.Analyze(ctx, Request{Responses: perfectHierarchy})
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, want.Diffs, results[i].Diffs)
		assert.Equal(t, want.Selection, results[i].Selection)
	}
}
