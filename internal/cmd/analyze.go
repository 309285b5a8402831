package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ahrav/go-iita/infrastructure/dataset"
	"github.com/ahrav/go-iita/infrastructure/middleware"
	"github.com/ahrav/go-iita/internal/application"
	"github.com/ahrav/go-iita/internal/domain"
)

type analyzeOptions struct {
	input       string
	candidates  string
	rule        string
	missing     []string
	delimiter   string
	header      string
	trace       bool
	metricsFile string
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run item tree analysis on a response file",
		Long: `Analyze reads a dichotomous response matrix and reports the diff of
every candidate quasi-order together with the selected implications.

Responses are read from CSV (one subject per row, optional header with
item names) or from YAML/JSON files with "items" and "responses" keys.
Cells hold 0, 1 or a missing token.`,
		Example: `  iita analyze --input responses.csv
  iita analyze --input responses.csv --rule corrected --format json
  iita analyze --input responses.yaml --candidates candidates.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "response file (CSV, YAML or JSON)")
	cmd.Flags().StringVarP(&opts.candidates, "candidates", "c", "", "candidate quasi-order file (YAML or JSON); generated when empty")
	cmd.Flags().StringVarP(&opts.rule, "rule", "r", "", "selection rule (minimal, corrected); configured default when empty")
	cmd.Flags().StringSliceVar(&opts.missing, "missing", dataset.DefaultMissing, "CSV tokens read as a missing response")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", ",", "CSV field delimiter")
	cmd.Flags().StringVar(&opts.header, "header", "auto", "CSV header row (auto, yes, no)")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "write OpenTelemetry spans to stderr")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions) error {
	config, err := root.loadConfig()
	if err != nil {
		return err
	}

	csvOpts, err := opts.csvOptions()
	if err != nil {
		return err
	}

	table, err := dataset.LoadResponses(opts.input, csvOpts)
	if err != nil {
		return InputError("reading responses", err)
	}

	var candidates []domain.QuasiOrder
	if opts.candidates != "" {
		candidates, err = dataset.LoadCandidates(opts.candidates)
		if err != nil {
			return InputError("reading candidates", err)
		}
	}

	analyzerOpts := []application.Option{
		application.WithConfig(config),
		application.WithLogger(root.logger(cmd.ErrOrStderr())),
	}

	registry := prometheus.NewRegistry()
	if opts.metricsFile != "" {
		analyzerOpts = append(analyzerOpts, application.WithMetrics(middleware.NewPrometheusMetrics(registry)))
	}

	if opts.trace {
		tp, err := newTracerProvider(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() {
			_ = tp.Shutdown(context.WithoutCancel(cmd.Context()))
		}()
		analyzerOpts = append(analyzerOpts, application.WithTracer(tp.Tracer("iita")))
	}

	analyzer, err := application.NewAnalyzer(analyzerOpts...)
	if err != nil {
		return err
	}

	result, err := analyzer.Analyze(cmd.Context(), application.Request{
		Responses:  table.Rows,
		Candidates: candidates,
		Rule:       opts.rule,
	})
	if err != nil {
		return err
	}

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, registry); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	return writeResult(cmd.OutOrStdout(), root.format, table.Header, result)
}

func (o *analyzeOptions) csvOptions() (dataset.CSVOptions, error) {
	runes := []rune(o.delimiter)
	if len(runes) != 1 {
		return dataset.CSVOptions{}, InputError("invalid --delimiter",
			errors.New("delimiter must be a single character"))
	}
	header, err := dataset.ParseHeaderMode(o.header)
	if err != nil {
		return dataset.CSVOptions{}, InputError("invalid --header", err)
	}
	return dataset.CSVOptions{Missing: o.missing, Comma: runes[0], Header: header}, nil
}

// newTracerProvider returns a provider that exports spans synchronously
// as indented JSON.
func newTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)), nil
}
