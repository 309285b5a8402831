// Package dataset reads and writes response matrices and candidate
// quasi-orders in the file formats accepted by the command line tools.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-iita/internal/domain"
)

// DefaultMissing lists the cell tokens read as a missing response.
var DefaultMissing = []string{"", "NA", "NaN", "."}

// Table is a response matrix in boundary form, with optional item names.
type Table struct {
	// Header holds item names when the input had a header row.
	Header []string `yaml:"items,omitempty"`

	// Rows holds one row per subject; NaN marks a missing response.
	Rows [][]float64 `yaml:"-"`
}

// HeaderMode selects how ReadCSV treats the first record.
type HeaderMode int

const (
	// HeaderAuto takes the first record as a header when it holds a field
	// that is neither a number nor a missing token.
	HeaderAuto HeaderMode = iota
	// HeaderPresent always takes the first record as a header.
	HeaderPresent
	// HeaderAbsent reads every record as data.
	HeaderAbsent
)

// ParseHeaderMode converts auto, yes or no into a HeaderMode.
func ParseHeaderMode(name string) (HeaderMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return HeaderAuto, nil
	case "yes", "true":
		return HeaderPresent, nil
	case "no", "false":
		return HeaderAbsent, nil
	default:
		return HeaderAuto, fmt.Errorf("%w: unknown header mode %q, want auto, yes or no",
			domain.ErrInvalidArgument, name)
	}
}

// CSVOptions controls CSV parsing and writing.
type CSVOptions struct {
	// Header selects header handling on read. The zero value detects it.
	Header HeaderMode

	// Missing lists the tokens read as missing. Empty selects DefaultMissing.
	// When writing, the first token is used.
	Missing []string

	// Comma is the field delimiter. Zero selects ','.
	Comma rune
}

func (o CSVOptions) missing() []string {
	if len(o.Missing) == 0 {
		return DefaultMissing
	}
	return o.Missing
}

func (o CSVOptions) isMissing(field string) bool {
	field = strings.TrimSpace(field)
	for _, m := range o.missing() {
		if strings.EqualFold(field, m) {
			return true
		}
	}
	return false
}

// ReadCSV parses a response matrix. With HeaderAuto, a first record that
// contains a field which is neither a number nor a missing token is taken
// as a header; a header of numeric item names needs HeaderPresent.
// Ragged rows are passed through so that domain.NewResponseMatrix can
// report them with their position.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	table := &Table{}
	if len(records) > 0 && hasHeader(records[0], opts) {
		table.Header = records[0]
		records = records[1:]
	}

	table.Rows = make([][]float64, 0, len(records))
	for s, record := range records {
		row := make([]float64, len(record))
		for i, field := range record {
			v, err := parseField(field, opts)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d, column %d: %q", domain.ErrInvalidDataValue, s+1, i+1, field)
			}
			row[i] = v
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func hasHeader(record []string, opts CSVOptions) bool {
	switch opts.Header {
	case HeaderPresent:
		return true
	case HeaderAbsent:
		return false
	}
	for _, field := range record {
		if _, err := parseField(field, opts); err != nil {
			return true
		}
	}
	return false
}

func parseField(field string, opts CSVOptions) (float64, error) {
	if opts.isMissing(field) {
		return domain.Missing(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(field), 64)
}

// WriteCSV writes rows as CSV, preceded by header when it is non-empty.
// NaN cells are written as the first missing token.
func WriteCSV(w io.Writer, table *Table, opts CSVOptions) error {
	writer := csv.NewWriter(w)
	if opts.Comma != 0 {
		writer.Comma = opts.Comma
	}

	if len(table.Header) > 0 {
		if err := writer.Write(table.Header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	missing := opts.missing()[0]
	record := make([]string, 0)
	for _, row := range table.Rows {
		record = record[:0]
		for _, v := range row {
			if math.IsNaN(v) {
				record = append(record, missing)
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// yamlTable is the YAML form of a Table. A null cell is a missing response.
type yamlTable struct {
	Items     []string     `yaml:"items,omitempty"`
	Responses [][]*float64 `yaml:"responses"`
}

// ReadYAML parses a response matrix of the form
//
//	items: [a, b, c]        # optional
//	responses:
//	  - [1, 0, ~]
//	  - [1, 1, 0]
func ReadYAML(r io.Reader) (*Table, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var doc yamlTable
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{}, nil
		}
		return nil, fmt.Errorf("failed to decode YAML responses: %w", err)
	}

	table := &Table{Header: doc.Items, Rows: make([][]float64, len(doc.Responses))}
	for s, cells := range doc.Responses {
		row := make([]float64, len(cells))
		for i, c := range cells {
			if c == nil {
				row[i] = domain.Missing()
				continue
			}
			row[i] = *c
		}
		table.Rows[s] = row
	}
	return table, nil
}

// WriteYAML writes a Table in the form read by ReadYAML.
func WriteYAML(w io.Writer, table *Table) error {
	doc := yamlTable{Items: table.Header, Responses: make([][]*float64, len(table.Rows))}
	for s, row := range table.Rows {
		cells := make([]*float64, len(row))
		for i, v := range row {
			if math.IsNaN(v) {
				continue
			}
			cells[i] = &v
		}
		doc.Responses[s] = cells
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML responses: %w", err)
	}
	return encoder.Close()
}

// LoadResponses reads a response file, choosing the format by extension:
// .yaml, .yml and .json are read with ReadYAML, anything else as CSV.
func LoadResponses(path string, opts CSVOptions) (*Table, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read responses: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return ReadYAML(bytes.NewReader(data))
	default:
		return ReadCSV(bytes.NewReader(data), opts)
	}
}

// candidateFile is the YAML form of a candidate set.
type candidateFile struct {
	Candidates []domain.QuasiOrder `yaml:"candidates"`
}

// ReadCandidates parses a list of square 0/1 relation matrices under a
// top-level candidates key.
func ReadCandidates(r io.Reader) ([]domain.QuasiOrder, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var doc candidateFile
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: candidate file is empty", domain.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	if doc.Candidates == nil {
		return nil, fmt.Errorf("%w: candidate file has no candidates", domain.ErrInvalidArgument)
	}
	return doc.Candidates, nil
}

// WriteCandidates writes candidates in the form read by ReadCandidates.
func WriteCandidates(w io.Writer, candidates []domain.QuasiOrder) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(candidateFile{Candidates: candidates}); err != nil {
		return fmt.Errorf("failed to encode candidates: %w", err)
	}
	return encoder.Close()
}

// LoadCandidates reads a candidate file.
func LoadCandidates(path string) ([]domain.QuasiOrder, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open candidates: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadCandidates(f)
}
