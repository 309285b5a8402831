package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-iita/infrastructure/middleware"
	"github.com/ahrav/go-iita/infrastructure/units"
	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

const analyzerTracerName = "github.com/ahrav/go-iita/application"

// Request is a single analysis request in boundary form. Responses use
// 0, 1 and NaN for missing. A nil Candidates slice asks the catalog for
// the candidate set; an empty Rule selects the configured default.
type Request struct {
	Responses  [][]float64
	Candidates []domain.QuasiOrder
	Rule       string
}

// parameterUnmarshaler is implemented by units that accept stage
// parameters from configuration.
type parameterUnmarshaler interface {
	UnmarshalParameters(params yaml.Node) error
}

// Analyzer runs inductive item tree analyses. It builds the catalog, fit
// and selection stages once and reuses them for every call; each call
// carries its own State, so an Analyzer is safe for concurrent use.
type Analyzer struct {
	config   *AnalysisConfig
	registry ports.UnitRegistry
	logger   *slog.Logger
	metrics  ports.MetricsCollector
	tracer   trace.Tracer

	defaultRule domain.SelectionRule
	pipeline    *Pipeline
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConfig sets the analysis configuration. The configuration is
// validated by NewAnalyzer.
func WithConfig(config *AnalysisConfig) Option {
	return func(a *Analyzer) { a.config = config }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithMetrics sets the metrics collector used by the analyzer and its
// stage guards.
func WithMetrics(metrics ports.MetricsCollector) Option {
	return func(a *Analyzer) { a.metrics = metrics }
}

// WithRegistry replaces the registry used to build stages.
func WithRegistry(registry ports.UnitRegistry) Option {
	return func(a *Analyzer) { a.registry = registry }
}

// WithTracer replaces the tracer obtained from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Analyzer) { a.tracer = tracer }
}

// NewAnalyzer validates the configuration and builds the analysis pipeline.
// Without options it uses DefaultAnalysisConfig, the default unit
// registry, a discarding logger and no metrics.
func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{}
	for _, opt := range opts {
		opt(a)
	}

	if a.config == nil {
		a.config = DefaultAnalysisConfig()
	}
	if a.registry == nil {
		a.registry = NewDefaultUnitRegistry()
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(analyzerTracerName)
	}

	if err := ValidateConfig(a.config); err != nil {
		return nil, err
	}

	rule, err := domain.ParseSelectionRule(a.config.Analysis.Rule)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	a.defaultRule = rule

	pipeline, err := a.buildPipeline()
	if err != nil {
		return nil, err
	}
	a.pipeline = pipeline

	return a, nil
}

// buildPipeline creates every configured stage, applies its parameters,
// wraps it in a limit guard and appends it to the pipeline.
func (a *Analyzer) buildPipeline() (*Pipeline, error) {
	pipeline := NewPipeline("analysis")
	limits := a.config.Limits.Limits()

	for _, stage := range a.config.stages() {
		unit, err := a.registry.CreateUnit(stage.Type, stage.ID, a.stageDefaults(stage.Type))
		if err != nil {
			return nil, fmt.Errorf("%w: stage %s: %w", domain.ErrInvalidConfiguration, stage.ID, err)
		}

		if stage.Parameters.Kind != 0 {
			pu, ok := unit.(parameterUnmarshaler)
			if !ok {
				return nil, fmt.Errorf("%w: stage %s does not accept parameters", domain.ErrInvalidConfiguration, stage.ID)
			}
			if err := pu.UnmarshalParameters(stage.Parameters); err != nil {
				return nil, fmt.Errorf("%w: stage %s: %w", domain.ErrInvalidConfiguration, stage.ID, err)
			}
			if stage.Type == StageSelection {
				if err := a.overrideDefaultRule(stage.Parameters); err != nil {
					return nil, fmt.Errorf("%w: stage %s: %w", domain.ErrInvalidConfiguration, stage.ID, err)
				}
			}
		}

		observer := middleware.NewOTelLimitObserver(a.metrics, stage.ID).WithTracer(a.tracer)
		guard := middleware.NewLimitGuard(limits, unit, observer)
		if err := guard.Validate(); err != nil {
			return nil, fmt.Errorf("%w: stage %s: %w", domain.ErrInvalidConfiguration, stage.ID, err)
		}

		if err := pipeline.Add(NewUnitAdapter(guard, stage.ID)); err != nil {
			return nil, err
		}
	}

	return pipeline, nil
}

// overrideDefaultRule makes a rule set on the selection stage the
// analyzer's default, since every request carries a resolved rule.
func (a *Analyzer) overrideDefaultRule(params yaml.Node) error {
	var selection struct {
		Rule string `yaml:"rule"`
	}
	if err := params.Decode(&selection); err != nil {
		return err
	}
	if selection.Rule == "" {
		return nil
	}
	rule, err := domain.ParseSelectionRule(selection.Rule)
	if err != nil {
		return err
	}
	a.defaultRule = rule
	return nil
}

// stageDefaults maps the shared analysis settings onto the factory
// configuration of one stage type.
func (a *Analyzer) stageDefaults(stageType string) map[string]any {
	settings := a.config.Analysis
	switch stageType {
	case StageCatalog:
		return map[string]any{"cache_candidates": settings.CacheCatalog}
	case StageFit:
		return map[string]any{"max_concurrency": settings.MaxConcurrency}
	case StageSelection:
		return map[string]any{"rule": string(a.defaultRule)}
	default:
		return map[string]any{}
	}
}

// Config returns the configuration the analyzer was built from.
func (a *Analyzer) Config() *AnalysisConfig { return a.config }

// DefaultRule returns the rule applied when a request names none.
func (a *Analyzer) DefaultRule() domain.SelectionRule { return a.defaultRule }

// Analyze runs one analysis on boundary-form input. The rule is checked
// first, then the responses, then any supplied candidates.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*domain.AnalysisResult, error) {
	rule, err := a.resolveRule(req.Rule)
	if err != nil {
		return nil, err
	}

	data, err := domain.NewResponseMatrix(req.Responses)
	if err != nil {
		return nil, err
	}

	return a.AnalyzeMatrix(ctx, data, req.Candidates, rule)
}

// AnalyzeMatrix runs one analysis on a typed response matrix. A nil
// candidates slice generates the full candidate set for the matrix's
// item count; an empty rule selects the configured default. No partial
// result is returned on error.
func (a *Analyzer) AnalyzeMatrix(
	ctx context.Context,
	data *domain.ResponseMatrix,
	candidates []domain.QuasiOrder,
	rule domain.SelectionRule,
) (*domain.AnalysisResult, error) {
	rule, err := a.resolveRule(string(rule))
	if err != nil {
		return nil, err
	}

	if data == nil {
		return nil, fmt.Errorf("%w: response matrix is nil", domain.ErrInvalidArgument)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	if candidates != nil {
		if err := units.ValidateCandidates(candidates, data.Items); err != nil {
			return nil, err
		}
	}

	executionID := uuid.NewString()
	logger := a.logger.With(
		slog.String("execution_id", executionID),
		slog.String("analysis", a.config.Metadata.Name),
	)

	ctx, span := a.tracer.Start(ctx, "iita.Analyze", trace.WithAttributes(
		attribute.String("iita.execution_id", executionID),
		attribute.String("iita.rule", string(rule)),
		attribute.Int("iita.items", data.Items),
		attribute.Int("iita.subjects", data.Subjects),
		attribute.Bool("iita.candidates_supplied", candidates != nil),
	))
	defer span.End()

	state := domain.NewState().WithExecutionContext(domain.ExecutionContext{
		AnalysisName: a.config.Metadata.Name,
		ExecutionID:  executionID,
	})
	state = domain.With(state, domain.KeyResponses, data)
	state = domain.With(state, domain.KeyRule, rule)
	if candidates != nil {
		state = domain.With(state, domain.KeyCandidates, candidates)
	}

	logger.Debug("analysis started",
		slog.Int("items", data.Items),
		slog.Int("subjects", data.Subjects),
		slog.Int("missing", data.MissingCount()),
		slog.String("rule", string(rule)))

	start := time.Now()
	out, err := a.pipeline.Execute(ctx, state)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.recordOutcome(rule, "error", elapsed)
		logger.Debug("analysis failed", slog.Any("error", err))
		return nil, err
	}

	result, err := assembleResult(out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.recordOutcome(rule, "error", elapsed)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("iita.candidates", result.CandidateCount),
		attribute.Int("iita.selected", len(result.Selection.Indices)),
		attribute.Float64("iita.min_diff", result.Selection.MinDiff),
	)
	span.SetStatus(codes.Ok, "")

	a.recordOutcome(rule, "success", elapsed)
	a.recordResult(result)

	source, _ := domain.Get(out, domain.KeyCandidateSource)
	logger.Info("analysis completed",
		slog.Int("items", result.Items),
		slog.Int("subjects", result.Subjects),
		slog.Int("candidates", result.CandidateCount),
		slog.String("candidate_source", source),
		slog.Int("selected", len(result.Selection.Indices)),
		slog.Float64("min_diff", result.Selection.MinDiff),
		slog.Duration("elapsed", elapsed))

	return result, nil
}

// resolveRule parses a rule name, falling back to the default rule when
// the name is empty.
func (a *Analyzer) resolveRule(name string) (domain.SelectionRule, error) {
	if name == "" {
		return a.defaultRule, nil
	}
	return domain.ParseSelectionRule(name)
}

// assembleResult reads the stage outputs from the final state.
func assembleResult(state domain.State) (*domain.AnalysisResult, error) {
	data, ok := domain.Get(state, domain.KeyResponses)
	if !ok || data == nil {
		return nil, domain.NewStateError(domain.KeyResponses.Name(), "assemble", domain.ErrKeyNotFound)
	}
	candidates, ok := domain.Get(state, domain.KeyCandidates)
	if !ok {
		return nil, domain.NewStateError(domain.KeyCandidates.Name(), "assemble", domain.ErrKeyNotFound)
	}
	scores, ok := domain.Get(state, domain.KeyFitScores)
	if !ok {
		return nil, domain.NewStateError(domain.KeyFitScores.Name(), "assemble", domain.ErrKeyNotFound)
	}
	selection, ok := domain.Get(state, domain.KeySelection)
	if !ok || selection == nil {
		return nil, domain.NewStateError(domain.KeySelection.Name(), "assemble", domain.ErrKeyNotFound)
	}
	if len(scores) != len(candidates) {
		return nil, domain.NewDimensionError("fit scores", -1, len(scores), len(candidates))
	}

	result := &domain.AnalysisResult{
		Items:          data.Items,
		Subjects:       data.Subjects,
		CandidateCount: len(candidates),
		Candidates:     candidates,
		Diffs:          make([]float64, len(scores)),
		ErrorRates:     make([]float64, len(scores)),
		Selection:      *selection,
		Implications:   make([]domain.QuasiOrder, 0, len(selection.Indices)),
	}

	for i, s := range scores {
		result.Diffs[i] = s.Diff
		result.ErrorRates[i] = s.ErrorRate
	}
	for _, idx := range selection.Indices {
		result.Implications = append(result.Implications, candidates[idx-1].Clone())
	}

	return result, nil
}

func (a *Analyzer) recordOutcome(rule domain.SelectionRule, status string, elapsed time.Duration) {
	if a.metrics == nil {
		return
	}
	a.metrics.RecordCounter(ports.MetricAnalyses, 1, map[string]string{
		"rule":   string(rule),
		"status": status,
	})
	a.metrics.RecordLatency("analyze", elapsed, map[string]string{"unit": "analysis"})
}

func (a *Analyzer) recordResult(result *domain.AnalysisResult) {
	if a.metrics == nil {
		return
	}
	rule := map[string]string{"rule": string(result.Selection.Rule)}
	a.metrics.RecordCounter(ports.MetricCandidatesEvaluated, float64(result.CandidateCount), nil)
	a.metrics.RecordGauge(ports.MetricSelectedCandidates, float64(len(result.Selection.Indices)), rule)
	a.metrics.RecordHistogram(ports.MetricMinDiff, result.Selection.MinDiff, rule)
}
