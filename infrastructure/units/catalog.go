package units

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

var _ ports.CandidateGenerator = (*Catalog)(nil)

// CandidateCount returns the number of quasi-orders GenerateQuasiOrders
// produces for the given item count, without generating them: the empty
// relation, both directions of every item pair, and one maximal chain per
// start position that leaves at least three items.
func CandidateCount(items int) int {
	if items < 1 {
		return 0
	}
	return 1 + items*(items-1) + max(0, items-2)
}

// ItemCountFromFloat converts a numeric item count read from an untyped
// source into an int, rejecting non-integral and non-positive values.
func ItemCountFromFloat(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: item count must be an integer, got %g", domain.ErrInvalidArgument, v)
	}
	if v < 1 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: item count must be positive, got %g", domain.ErrInvalidArgument, v)
	}
	return int(v), nil
}

// GenerateQuasiOrders builds the candidate set for the given number of
// items. The order of the returned slice is part of the contract, since
// selections are reported as positions into it:
//
//  1. the empty relation;
//  2. for every pair i < j (i ascending, then j ascending), the single
//     edge i→j followed by j→i;
//  3. for three or more items, for every start s with at least three
//     items remaining, the chain s→s+1→…→items-1, transitively closed.
//
// This is a restricted family, not the full set of quasi-orders.
func GenerateQuasiOrders(items int) ([]domain.QuasiOrder, error) {
	if items < 1 {
		return nil, fmt.Errorf("%w: item count must be positive, got %d", domain.ErrInvalidArgument, items)
	}

	candidates := make([]domain.QuasiOrder, 0, CandidateCount(items))
	candidates = append(candidates, domain.NewQuasiOrder(items))
	if items == 1 {
		return candidates, nil
	}

	for i := 0; i < items; i++ {
		for j := i + 1; j < items; j++ {
			forward := domain.NewQuasiOrder(items)
			forward.Add(i, j)
			backward := domain.NewQuasiOrder(items)
			backward.Add(j, i)
			candidates = append(candidates, forward, backward)
		}
	}

	for start := 0; start+2 < items; start++ {
		chain := domain.NewQuasiOrder(items)
		for k := start; k+1 < items; k++ {
			chain.Add(k, k+1)
		}
		candidates = append(candidates, domain.TransitiveClosure(chain))
	}

	return candidates, nil
}

// ValidateCandidates checks that a candidate set is non-empty and that
// every relation is square with side length items. Generated and
// caller-supplied candidates both pass through here.
func ValidateCandidates(candidates []domain.QuasiOrder, items int) error {
	if len(candidates) == 0 {
		return fmt.Errorf("%w: candidate set is empty", domain.ErrInvalidArgument)
	}
	for idx, c := range candidates {
		if c.Items != items {
			return domain.NewDimensionError("candidate", idx, c.Items, items)
		}
		if len(c.Relation) != items*items {
			return domain.NewDimensionError("candidate relation", idx, len(c.Relation), items*items)
		}
	}
	return nil
}

// Catalog memoizes GenerateQuasiOrders per item count. Concurrent
// requests for the same count share one generation.
// Cached slices are never handed out directly; callers receive clones.
type Catalog struct {
	// cache stores generated candidate sets keyed by item count.
	cache map[int][]domain.QuasiOrder
	// mu provides thread-safe access to the cache map.
	mu sync.RWMutex
	// sf prevents duplicate generation when multiple goroutines request
	// the same item count simultaneously.
	sf singleflight.Group
}

// NewCatalog creates an empty candidate catalog.
func NewCatalog() *Catalog {
	return &Catalog{cache: make(map[int][]domain.QuasiOrder)}
}

// Generate returns the candidate set for items, generating it at most once.
func (c *Catalog) Generate(items int) ([]domain.QuasiOrder, error) {
	if items < 1 {
		return nil, fmt.Errorf("%w: item count must be positive, got %d", domain.ErrInvalidArgument, items)
	}

	c.mu.RLock()
	cached, ok := c.cache[items]
	c.mu.RUnlock()
	if ok {
		return cloneOrders(cached), nil
	}

	v, err, _ := c.sf.Do(strconv.Itoa(items), func() (any, error) {
		c.mu.RLock()
		cached, ok := c.cache[items]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		generated, err := GenerateQuasiOrders(items)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[items] = generated
		c.mu.Unlock()
		return generated, nil
	})
	if err != nil {
		return nil, err
	}

	return cloneOrders(v.([]domain.QuasiOrder)), nil
}

// Len returns the number of cached item counts.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func cloneOrders(orders []domain.QuasiOrder) []domain.QuasiOrder {
	out := make([]domain.QuasiOrder, len(orders))
	for i, q := range orders {
		out[i] = q.Clone()
	}
	return out
}

// GeneratorFunc adapts a plain function to ports.CandidateGenerator.
type GeneratorFunc func(items int) ([]domain.QuasiOrder, error)

// Generate calls f.
func (f GeneratorFunc) Generate(items int) ([]domain.QuasiOrder, error) { return f(items) }

// sharedCatalog backs catalog units that enable caching.
var sharedCatalog = NewCatalog()
