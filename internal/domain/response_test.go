package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		want    Cell
		wantErr bool
	}{
		{name: "zero", value: 0, want: CellZero},
		{name: "one", value: 1, want: CellOne},
		{name: "nan is missing", value: math.NaN(), want: CellMissing},
		{name: "two rejected", value: 2, wantErr: true},
		{name: "negative rejected", value: -1, wantErr: true},
		{name: "fraction rejected", value: 0.5, wantErr: true},
		{name: "infinity rejected", value: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCell(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDataValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCell_String(t *testing.T) {
	assert.Equal(t, "0", CellZero.String())
	assert.Equal(t, "1", CellOne.String())
	assert.Equal(t, "NA", CellMissing.String())
	assert.Equal(t, "Cell(7)", Cell(7).String())
	assert.False(t, Cell(7).Valid())
	assert.True(t, CellOne.Observed())
	assert.False(t, CellMissing.Observed())
}

func TestNewResponseMatrix(t *testing.T) {
	t.Run("valid matrix with missing", func(t *testing.T) {
		m, err := NewResponseMatrix([][]float64{
			{0, 1, Missing()},
			{1, 1, 0},
		})
		require.NoError(t, err)

		assert.Equal(t, 2, m.Subjects)
		assert.Equal(t, 3, m.Items)
		assert.Equal(t, CellMissing, m.At(0, 2))
		assert.Equal(t, CellOne, m.At(1, 0))
		assert.Equal(t, []Cell{CellOne, CellOne, CellZero}, m.Row(1))
		assert.Equal(t, 1, m.MissingCount())
		assert.NoError(t, m.Validate())
	})

	t.Run("value two rejected with position", func(t *testing.T) {
		_, err := NewResponseMatrix([][]float64{
			{0, 1},
			{1, 2},
		})
		require.ErrorIs(t, err, ErrInvalidDataValue)

		var dvErr *DataValueError
		require.True(t, errors.As(err, &dvErr))
		assert.Equal(t, 1, dvErr.Subject)
		assert.Equal(t, 1, dvErr.Item)
		assert.Equal(t, 2.0, dvErr.Value)
	})

	t.Run("ragged rows rejected", func(t *testing.T) {
		_, err := NewResponseMatrix([][]float64{{0, 1}, {1}})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("no rows rejected", func(t *testing.T) {
		_, err := NewResponseMatrix(nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestNewResponseMatrixFromCells(t *testing.T) {
	m, err := NewResponseMatrixFromCells([][]Cell{
		{CellZero, CellMissing},
		{CellOne, CellOne},
	})
	require.NoError(t, err)
	assert.Equal(t, CellMissing, m.At(0, 1))

	_, err = NewResponseMatrixFromCells([][]Cell{{CellZero, Cell(3)}})
	assert.ErrorIs(t, err, ErrInvalidDataValue)

	_, err = NewResponseMatrixFromCells([][]Cell{{CellZero}, {CellZero, CellOne}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNewEmptyResponseMatrix(t *testing.T) {
	m, err := NewEmptyResponseMatrix(4)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Subjects)
	assert.Equal(t, 4, m.Items)
	assert.NoError(t, m.Validate())

	_, err = NewEmptyResponseMatrix(0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestResponseMatrix_Validate(t *testing.T) {
	tests := []struct {
		name   string
		matrix *ResponseMatrix
		want   error
	}{
		{name: "nil matrix", matrix: nil, want: ErrInvalidArgument},
		{name: "no items", matrix: &ResponseMatrix{Subjects: 1}, want: ErrInvalidArgument},
		{
			name:   "cell count mismatch",
			matrix: &ResponseMatrix{Subjects: 2, Items: 2, Cells: []Cell{CellZero}},
			want:   ErrDimensionMismatch,
		},
		{
			name:   "invalid cell",
			matrix: &ResponseMatrix{Subjects: 1, Items: 2, Cells: []Cell{CellZero, Cell(9)}},
			want:   ErrInvalidDataValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.matrix.Validate(), tt.want)
		})
	}
}
