package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahrav/go-iita/infrastructure/dataset"
	"github.com/ahrav/go-iita/internal/testutils"
)

func main() {
	defaults := testutils.DefaultGeneratorConfig()

	var (
		subjects   = flag.Int("subjects", defaults.Subjects, "Number of response rows to generate")
		items      = flag.Int("items", defaults.Items, "Number of items in the chain hierarchy")
		careless   = flag.Float64("careless", defaults.CarelessRate, "Probability of a careless error on a mastered item")
		lucky      = flag.Float64("lucky", defaults.LuckyRate, "Probability of a lucky guess on an unmastered item")
		missing    = flag.Float64("missing", defaults.MissingRate, "Probability that a response is missing")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		outputPath = flag.String("output", "testdata/responses/chain.csv", "Output file path (.csv or .yaml)")
	)
	flag.Parse()

	cfg := testutils.GeneratorConfig{
		Subjects:     *subjects,
		Items:        *items,
		CarelessRate: *careless,
		LuckyRate:    *lucky,
		MissingRate:  *missing,
	}

	ds, err := testutils.GenerateResponseDataset(cfg, *seed)
	if err != nil {
		log.Fatalf("Failed to generate dataset: %v", err)
	}

	if err := save(ds, *outputPath); err != nil {
		log.Fatalf("Failed to save dataset: %v", err)
	}

	stats := testutils.ComputeDatasetStatistics(ds)

	fmt.Printf("Generated response dataset:\n")
	fmt.Printf("- Path: %s\n", *outputPath)
	fmt.Printf("- Seed: %d\n", ds.Metadata.Seed)
	fmt.Printf("- Subjects: %d\n", stats.Subjects)
	fmt.Printf("- Items: %d\n", stats.Items)
	fmt.Printf("- Missing responses: %d\n", stats.Missing)
	fmt.Printf("- Hierarchy violations: %d\n", stats.Violations)
	fmt.Printf("- Solve rates:")
	for _, rate := range stats.SolveRates {
		fmt.Printf(" %.3f", rate)
	}
	fmt.Printf("\n- Hierarchy: %s\n", ds.Hierarchy)
}

func save(ds *testutils.ResponseDataset, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()

	table := &dataset.Table{Header: itemNames(ds.Metadata.Items), Rows: ds.Responses}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = dataset.WriteYAML(f, table)
	default:
		err = dataset.WriteCSV(f, table, dataset.CSVOptions{Missing: []string{"NA"}})
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func itemNames(items int) []string {
	names := make([]string, items)
	for i := range names {
		names[i] = fmt.Sprintf("item%d", i+1)
	}
	return names
}
