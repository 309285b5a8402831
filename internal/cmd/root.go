// Package cmd implements the iita command line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-iita/internal/application"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	format     string
	verbose    int
}

// NewRootCmd builds the iita command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "iita",
		Short: "Inductive item tree analysis",
		Long: `iita derives prerequisite relations between test items from
dichotomous response data.

It generates competing quasi-orders over the items, scores each one by
the share of responses that contradict it, and selects the best fitting
relations with the minimal or corrected rule.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case formatText, formatJSON, formatYAML:
				return nil
			default:
				return InputError("invalid --format", fmt.Errorf("unknown format %q, want text, json or yaml", opts.format))
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "analysis config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&opts.format, "format", "f", formatText, "Output format (text, json, yaml)")
	rootCmd.PersistentFlags().CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity (can be repeated)")

	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newCatalogCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the command tree with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig returns the configuration named by --config, or the defaults.
func (o *rootOptions) loadConfig() (*application.AnalysisConfig, error) {
	if o.configPath == "" {
		return application.DefaultAnalysisConfig(), nil
	}

	config, err := application.LoadConfig(o.configPath)
	if err != nil {
		return nil, ConfigError("loading configuration", err)
	}
	return config, nil
}

// logger writes structured logs to w. Warnings are always shown; each -v
// lowers the level by one step.
func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case o.verbose >= 2:
		level = slog.LevelDebug
	case o.verbose == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
