package domain

import (
	"fmt"
	"math"
)

// Cell is a single observed response: solved, failed, or not observed.
type Cell uint8

// Response cell values. The zero value is CellZero so that a freshly
// allocated matrix reads as "every item failed".
const (
	// CellZero records that the subject failed the item.
	CellZero Cell = iota
	// CellOne records that the subject solved the item.
	CellOne
	// CellMissing records that no response was observed.
	CellMissing
)

// String returns "0", "1" or "NA".
func (c Cell) String() string {
	switch c {
	case CellZero:
		return "0"
	case CellOne:
		return "1"
	case CellMissing:
		return "NA"
	default:
		return fmt.Sprintf("Cell(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the three defined cell values.
func (c Cell) Valid() bool { return c <= CellMissing }

// Observed reports whether c carries a response.
func (c Cell) Observed() bool { return c == CellZero || c == CellOne }

// ParseCell converts a raw numeric value into a Cell. NaN is the missing
// marker at this boundary; any value other than 0, 1 or NaN is rejected.
func ParseCell(v float64) (Cell, error) {
	switch {
	case math.IsNaN(v):
		return CellMissing, nil
	case v == 0:
		return CellZero, nil
	case v == 1:
		return CellOne, nil
	default:
		return 0, ErrInvalidDataValue
	}
}

// Missing returns the raw missing marker accepted by NewResponseMatrix.
func Missing() float64 { return math.NaN() }

// ResponseMatrix is an immutable subjects-by-items grid of responses.
// Fields are exported so State can deep-copy the value; construct it
// with NewResponseMatrix or NewResponseMatrixFromCells.
type ResponseMatrix struct {
	// Subjects is the number of rows.
	Subjects int `json:"subjects" yaml:"subjects"`

	// Items is the number of columns (ni).
	Items int `json:"items" yaml:"items"`

	// Cells holds the responses in row-major order.
	Cells []Cell `json:"cells" yaml:"cells"`
}

// NewResponseMatrix validates raw rows and builds a ResponseMatrix.
// NaN marks a missing response. Rows must all have the same length.
func NewResponseMatrix(rows [][]float64) (*ResponseMatrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: response matrix has no rows", ErrInvalidArgument)
	}

	items := len(rows[0])
	m := &ResponseMatrix{
		Subjects: len(rows),
		Items:    items,
		Cells:    make([]Cell, 0, len(rows)*items),
	}

	for s, row := range rows {
		if len(row) != items {
			return nil, NewDimensionError("row", s, len(row), items)
		}
		for i, v := range row {
			c, err := ParseCell(v)
			if err != nil {
				return nil, &DataValueError{Subject: s, Item: i, Value: v}
			}
			m.Cells = append(m.Cells, c)
		}
	}

	return m, nil
}

// NewResponseMatrixFromCells builds a ResponseMatrix from typed rows,
// rejecting out-of-range Cell values and ragged rows.
func NewResponseMatrixFromCells(rows [][]Cell) (*ResponseMatrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: response matrix has no rows", ErrInvalidArgument)
	}

	items := len(rows[0])
	m := &ResponseMatrix{
		Subjects: len(rows),
		Items:    items,
		Cells:    make([]Cell, 0, len(rows)*items),
	}

	for s, row := range rows {
		if len(row) != items {
			return nil, NewDimensionError("row", s, len(row), items)
		}
		for i, c := range row {
			if !c.Valid() {
				return nil, &DataValueError{Subject: s, Item: i, Value: float64(c)}
			}
			m.Cells = append(m.Cells, c)
		}
	}

	return m, nil
}

// NewEmptyResponseMatrix returns a matrix with no subjects over the given
// number of items. Every candidate fits it with diff 0.
func NewEmptyResponseMatrix(items int) (*ResponseMatrix, error) {
	if items < 1 {
		return nil, fmt.Errorf("%w: item count must be positive, got %d", ErrInvalidArgument, items)
	}
	return &ResponseMatrix{Items: items, Cells: []Cell{}}, nil
}

// At returns the response of subject s to item i.
func (m *ResponseMatrix) At(s, i int) Cell { return m.Cells[s*m.Items+i] }

// Row returns the responses of subject s. The slice aliases the matrix
// and must not be modified.
func (m *ResponseMatrix) Row(s int) []Cell {
	return m.Cells[s*m.Items : (s+1)*m.Items]
}

// Validate checks the structural invariants of a matrix that may have
// been built by hand or decoded from a file.
func (m *ResponseMatrix) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: response matrix is nil", ErrInvalidArgument)
	}
	if m.Items < 1 {
		return fmt.Errorf("%w: item count must be positive, got %d", ErrInvalidArgument, m.Items)
	}
	if m.Subjects < 0 || len(m.Cells) != m.Subjects*m.Items {
		return NewDimensionError("cells", -1, len(m.Cells), m.Subjects*m.Items)
	}
	for idx, c := range m.Cells {
		if !c.Valid() {
			return &DataValueError{Subject: idx / m.Items, Item: idx % m.Items, Value: float64(c)}
		}
	}
	return nil
}

// MissingCount returns the number of unobserved cells.
func (m *ResponseMatrix) MissingCount() int {
	var n int
	for _, c := range m.Cells {
		if c == CellMissing {
			n++
		}
	}
	return n
}
