package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuasiOrder is a binary prerequisite relation over items. Has(i, j)
// means item i is a prerequisite for item j. Orders produced by the
// candidate catalog are transitively closed and have a zero diagonal;
// orders supplied by callers are only checked for shape.
//
// On the wire a QuasiOrder is encoded as its square 0/1 matrix.
type QuasiOrder struct {
	// Items is the side length of the relation matrix.
	Items int

	// Relation holds the adjacency matrix in row-major order.
	Relation []bool
}

// NewQuasiOrder returns the empty relation over the given number of items.
func NewQuasiOrder(items int) QuasiOrder {
	return QuasiOrder{Items: items, Relation: make([]bool, items*items)}
}

// QuasiOrderFromRows builds a QuasiOrder from a square 0/1 matrix.
func QuasiOrderFromRows(rows [][]int) (QuasiOrder, error) {
	n := len(rows)
	q := NewQuasiOrder(n)
	for i, row := range rows {
		if len(row) != n {
			return QuasiOrder{}, NewDimensionError("relation row", i, len(row), n)
		}
		for j, v := range row {
			switch v {
			case 0:
			case 1:
				q.Relation[i*n+j] = true
			default:
				return QuasiOrder{}, fmt.Errorf("%w: relation entry (%d,%d) is %d, want 0 or 1",
					ErrInvalidArgument, i, j, v)
			}
		}
	}
	return q, nil
}

// Size returns the number of items the relation ranges over.
func (q QuasiOrder) Size() int { return q.Items }

// Has reports whether item i is a prerequisite for item j.
func (q QuasiOrder) Has(i, j int) bool { return q.Relation[i*q.Items+j] }

// Add records that item i is a prerequisite for item j.
func (q *QuasiOrder) Add(i, j int) { q.Relation[i*q.Items+j] = true }

// Clone returns a copy that shares no memory with q.
func (q QuasiOrder) Clone() QuasiOrder {
	rel := make([]bool, len(q.Relation))
	copy(rel, q.Relation)
	return QuasiOrder{Items: q.Items, Relation: rel}
}

// Equal reports whether q and other describe the same relation.
func (q QuasiOrder) Equal(other QuasiOrder) bool {
	if q.Items != other.Items || len(q.Relation) != len(other.Relation) {
		return false
	}
	for idx := range q.Relation {
		if q.Relation[idx] != other.Relation[idx] {
			return false
		}
	}
	return true
}

// EdgeCount returns the number of off-diagonal pairs in the relation.
func (q QuasiOrder) EdgeCount() int {
	var n int
	for i := 0; i < q.Items; i++ {
		for j := 0; j < q.Items; j++ {
			if i != j && q.Has(i, j) {
				n++
			}
		}
	}
	return n
}

// Pairs returns the off-diagonal (prerequisite, dependent) pairs in
// row-major order.
func (q QuasiOrder) Pairs() [][2]int {
	pairs := make([][2]int, 0, q.EdgeCount())
	for i := 0; i < q.Items; i++ {
		for j := 0; j < q.Items; j++ {
			if i != j && q.Has(i, j) {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// Rows returns the relation as a square 0/1 matrix.
func (q QuasiOrder) Rows() [][]int {
	rows := make([][]int, q.Items)
	for i := range rows {
		rows[i] = make([]int, q.Items)
		for j := range rows[i] {
			if q.Has(i, j) {
				rows[i][j] = 1
			}
		}
	}
	return rows
}

// IsTransitive reports whether i→k and k→j always imply i→j for
// distinct items.
func (q QuasiOrder) IsTransitive() bool {
	n := q.Items
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if i == k || !q.Has(i, k) {
				continue
			}
			for j := 0; j < n; j++ {
				if j != i && j != k && q.Has(k, j) && !q.Has(i, j) {
					return false
				}
			}
		}
	}
	return true
}

// Close returns the transitive closure of q. See TransitiveClosure.
func (q QuasiOrder) Close() QuasiOrder { return TransitiveClosure(q) }

// TransitiveClosure returns a new relation in which every pair connected
// through intermediate items is connected directly. The loop order is
// fixed (k → i → j) so a single pass suffices; edges are only ever added.
// The diagonal is left untouched and the operation is idempotent.
func TransitiveClosure(q QuasiOrder) QuasiOrder {
	closed := q.Clone()
	n := closed.Items
	rel := closed.Relation

	for k := 0; k < n; k++ {
		baseK := k * n
		for i := 0; i < n; i++ {
			if i == k || !rel[i*n+k] {
				continue
			}
			baseI := i * n
			for j := 0; j < n; j++ {
				if j != i && rel[baseK+j] {
					rel[baseI+j] = true
				}
			}
		}
	}

	return closed
}

// String renders the relation as rows of 0/1 digits separated by '/'.
func (q QuasiOrder) String() string {
	var b strings.Builder
	for i := 0; i < q.Items; i++ {
		if i > 0 {
			b.WriteByte('/')
		}
		for j := 0; j < q.Items; j++ {
			if q.Has(i, j) {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String()
}

// MarshalJSON encodes the relation as a square 0/1 matrix.
func (q QuasiOrder) MarshalJSON() ([]byte, error) { return json.Marshal(q.Rows()) }

// UnmarshalJSON decodes a square 0/1 matrix.
func (q *QuasiOrder) UnmarshalJSON(data []byte) error {
	var rows [][]int
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	decoded, err := QuasiOrderFromRows(rows)
	if err != nil {
		return err
	}
	*q = decoded
	return nil
}

// MarshalYAML encodes the relation as a square 0/1 matrix.
func (q QuasiOrder) MarshalYAML() (any, error) { return q.Rows(), nil }

// UnmarshalYAML decodes a square 0/1 matrix.
func (q *QuasiOrder) UnmarshalYAML(unmarshal func(any) error) error {
	var rows [][]int
	if err := unmarshal(&rows); err != nil {
		return err
	}
	decoded, err := QuasiOrderFromRows(rows)
	if err != nil {
		return err
	}
	*q = decoded
	return nil
}
