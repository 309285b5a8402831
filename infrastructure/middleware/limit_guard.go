// Package middleware provides cross-cutting concerns for the analysis engine.
// It implements the middleware/wrapper pattern to keep the analysis stages
// free of size enforcement and observability code.
package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-iita/infrastructure/units"
	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

// Limits bounds the size of an analysis. The cost of fitting grows with
// subjects times candidates, and the candidate count is a known function
// of the item count, so all three can be checked before any work is done.
type Limits struct {
	// MaxSubjects limits the number of response rows.
	// Zero means unlimited.
	MaxSubjects int

	// MaxItems limits the number of items.
	// Zero means unlimited.
	MaxItems int

	// MaxCandidates limits the number of candidate quasi-orders.
	// Zero means unlimited.
	MaxCandidates int
}

// Unlimited reports whether no limit is set.
func (l Limits) Unlimited() bool {
	return l.MaxSubjects == 0 && l.MaxItems == 0 && l.MaxCandidates == 0
}

// LimitObserver provides observability hooks for limit checks.
// Implementations can add tracing, metrics, and logging without
// coupling observability concerns to the guard itself.
type LimitObserver interface {
	// PreCheck is called before the wrapped unit runs. The returned
	// context is passed to the unit and to PostCheck.
	PreCheck(ctx context.Context, dims domain.Dimensions, limits Limits) context.Context

	// PostCheck is called after unit execution with the resulting sizes and timing.
	PostCheck(ctx context.Context, dims domain.Dimensions, limits Limits, elapsed time.Duration, err error)
}

// LimitGuard enforces size limits around a unit. It reads the analysis
// dimensions from request-scoped state and keeps no mutable state of its
// own, so one guard can serve concurrent analyses.
type LimitGuard struct {
	// limits holds the immutable limits for this guard.
	limits Limits

	// next holds the next middleware or unit in the execution chain.
	next ports.Unit

	// observer provides optional observability hooks for tracing and metrics.
	observer LimitObserver
}

// NewLimitGuard creates a new LimitGuard middleware instance with the
// specified limits, next unit, and optional observer.
func NewLimitGuard(limits Limits, next ports.Unit, observer LimitObserver) *LimitGuard {
	if next == nil {
		panic("limit guard: next unit is required")
	}
	return &LimitGuard{
		limits:   limits,
		next:     next,
		observer: observer,
	}
}

// Name returns the name of the wrapped unit, so guarded and unguarded
// pipelines report the same stage names.
func (lg *LimitGuard) Name() string { return lg.next.Name() }

// Execute checks the limits, runs the wrapped unit, and checks again to
// catch sizes that only became known inside the unit, such as a
// caller-supplied candidate set.
func (lg *LimitGuard) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	dims := state.GetDimensions()
	if err := lg.checkLimits(projected(state, dims)); err != nil {
		if lg.observer != nil {
			ctx = lg.observer.PreCheck(ctx, dims, lg.limits)
			lg.observer.PostCheck(ctx, dims, lg.limits, 0, err)
		}
		return state, err
	}

	if lg.observer != nil {
		ctx = lg.observer.PreCheck(ctx, dims, lg.limits)
	}

	start := time.Now()
	newState, err := lg.next.Execute(ctx, state)
	elapsed := time.Since(start)

	finalDims := newState.GetDimensions()
	if err == nil {
		err = lg.checkLimits(finalDims)
	}

	if lg.observer != nil {
		lg.observer.PostCheck(ctx, finalDims, lg.limits, elapsed, err)
	}

	if err != nil {
		return state, err
	}
	return newState, nil
}

// Validate checks if the LimitGuard is properly configured.
func (lg *LimitGuard) Validate() error {
	if lg.next == nil {
		return fmt.Errorf("limit guard: next unit is required")
	}
	if lg.limits.MaxSubjects < 0 {
		return fmt.Errorf("limit guard: max_subjects cannot be negative, got %d", lg.limits.MaxSubjects)
	}
	if lg.limits.MaxItems < 0 {
		return fmt.Errorf("limit guard: max_items cannot be negative, got %d", lg.limits.MaxItems)
	}
	if lg.limits.MaxCandidates < 0 {
		return fmt.Errorf("limit guard: max_candidates cannot be negative, got %d", lg.limits.MaxCandidates)
	}
	return lg.next.Validate()
}

// projected fills in the candidate count the catalog will generate when
// the item count is known but no candidates are in state yet.
func projected(state domain.State, dims domain.Dimensions) domain.Dimensions {
	if !domain.Has(state, domain.KeyCandidates) && dims.Items > 0 {
		dims.Candidates = units.CandidateCount(dims.Items)
	}
	return dims
}

// checkLimits returns a LimitExceededError for the first violated limit.
func (lg *LimitGuard) checkLimits(dims domain.Dimensions) error {
	if lg.limits.MaxSubjects > 0 && dims.Subjects > lg.limits.MaxSubjects {
		return domain.NewLimitExceededError("subjects", lg.limits.MaxSubjects, dims.Subjects, lg.next.Name())
	}
	if lg.limits.MaxItems > 0 && dims.Items > lg.limits.MaxItems {
		return domain.NewLimitExceededError("items", lg.limits.MaxItems, dims.Items, lg.next.Name())
	}
	if lg.limits.MaxCandidates > 0 && dims.Candidates > lg.limits.MaxCandidates {
		return domain.NewLimitExceededError("candidates", lg.limits.MaxCandidates, dims.Candidates, lg.next.Name())
	}
	return nil
}
