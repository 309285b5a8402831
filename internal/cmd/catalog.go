package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-iita/infrastructure/dataset"
	"github.com/ahrav/go-iita/infrastructure/units"
	"github.com/ahrav/go-iita/internal/domain"
)

type catalogOptions struct {
	items     int
	countOnly bool
}

func newCatalogCmd(root *rootOptions) *cobra.Command {
	opts := &catalogOptions{}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the candidate quasi-orders for a number of items",
		Long: `Catalog prints the candidate quasi-orders that analyze generates when
no candidate file is given. The YAML output can be edited and passed back
with analyze --candidates.`,
		Example: `  iita catalog --items 3
  iita catalog --items 5 --count
  iita catalog --items 4 --format yaml > candidates.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd, root, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.items, "items", "n", 0, "number of items")
	cmd.Flags().BoolVar(&opts.countOnly, "count", false, "print only the number of candidates")
	_ = cmd.MarkFlagRequired("items")

	return cmd
}

func runCatalog(cmd *cobra.Command, root *rootOptions, opts *catalogOptions) error {
	out := cmd.OutOrStdout()

	if opts.items < 1 {
		return InputError("invalid --items", fmt.Errorf("%w: items must be positive, got %d",
			domain.ErrInvalidArgument, opts.items))
	}

	if opts.countOnly {
		_, err := fmt.Fprintln(out, units.CandidateCount(opts.items))
		return err
	}

	candidates, err := units.GenerateQuasiOrders(opts.items)
	if err != nil {
		return err
	}

	switch root.format {
	case formatYAML:
		return dataset.WriteCandidates(out, candidates)
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string][]domain.QuasiOrder{"candidates": candidates})
	default:
		for i, q := range candidates {
			if _, err := fmt.Fprintf(out, "%4d  %s\n", i+1, q); err != nil {
				return err
			}
		}
		return nil
	}
}
