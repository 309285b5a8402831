// Package domain contains pure, dependency-free domain models and types
// for the item tree analysis engine.
package domain

import (
	"fmt"
	"maps"
	"reflect"
	"sort"
)

// Key represents a type-safe generic key for accessing values in State.
// The type parameter T ensures compile-time type safety when getting and
// setting values, eliminating the need for runtime type assertions.
type Key[T any] struct{ name string }

// NewKey creates a new Key with the specified name and type.
// This function is provided for creating keys outside of the domain package.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the string under which the key is stored.
func (k Key[T]) Name() string { return k.name }

// Predefined state keys used throughout an analysis.
// Each key is strongly typed to ensure type safety at compile time.
var (
	// KeyResponses stores the validated response matrix.
	KeyResponses = Key[*ResponseMatrix]{"responses"}

	// KeyCandidates stores the ordered candidate quasi-orders.
	KeyCandidates = Key[[]QuasiOrder]{"candidates"}

	// KeyCandidateSource records whether candidates were generated by the
	// catalog or supplied by the caller.
	KeyCandidateSource = Key[string]{"candidate_source"}

	// KeyFitScores stores one FitScore per candidate, index-aligned.
	KeyFitScores = Key[[]FitScore]{"fit_scores"}

	// KeyRule stores the selection rule requested for this analysis.
	KeyRule = Key[SelectionRule]{"rule"}

	// KeySelection stores the outcome of the selection stage.
	KeySelection = Key[*Selection]{"selection"}

	// Execution context keys for tracking metadata across the pipeline.

	// KeyAnalysisName stores the configured name of the analysis.
	KeyAnalysisName = Key[string]{"execution.analysis_name"}

	// KeyExecutionID stores a unique identifier for this specific execution
	// instance, useful for tracing and correlation.
	KeyExecutionID = Key[string]{"execution.execution_id"}
)

// Candidate sources recorded under KeyCandidateSource.
const (
	SourceCatalog  = "catalog"
	SourceSupplied = "supplied"
)

// deepCopyValue creates a deep copy of a value to ensure true immutability.
// It handles slices, maps, and other reference types that would otherwise
// allow external modification of State data.
func deepCopyValue(value any) any {
	if value == nil {
		return nil
	}

	// Flat cell and relation buffers dominate state size; copy them
	// without reflecting over every element.
	switch val := value.(type) {
	case []Cell:
		return append([]Cell(nil), val...)
	case []bool:
		return append([]bool(nil), val...)
	case []float64:
		return append([]float64(nil), val...)
	case []int:
		return append([]int(nil), val...)
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return value
		}
		newSlice := reflect.MakeSlice(v.Type(), v.Len(), v.Cap())
		for i := 0; i < v.Len(); i++ {
			newSlice.Index(i).Set(reflect.ValueOf(deepCopyValue(v.Index(i).Interface())))
		}
		return newSlice.Interface()

	case reflect.Map:
		newMap := reflect.MakeMap(v.Type())
		for _, key := range v.MapKeys() {
			copiedKey := deepCopyValue(key.Interface())
			copiedValue := deepCopyValue(v.MapIndex(key).Interface())
			newMap.SetMapIndex(reflect.ValueOf(copiedKey), reflect.ValueOf(copiedValue))
		}
		return newMap.Interface()

	case reflect.Ptr:
		if v.IsNil() {
			return v.Interface()
		}
		newPtr := reflect.New(v.Elem().Type())
		newPtr.Elem().Set(reflect.ValueOf(deepCopyValue(v.Elem().Interface())))
		return newPtr.Interface()

	case reflect.Struct:
		// This performs a shallow copy for unexported fields but deep copies
		// exported fields.
		newStruct := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if newStruct.Field(i).CanSet() {
				newStruct.Field(i).Set(reflect.ValueOf(deepCopyValue(v.Field(i).Interface())))
			}
		}
		return newStruct.Interface()

	default:
		// Primitive types are returned as-is since they are copied by value.
		return value
	}
}

// State represents an immutable collection of analysis data that flows
// through the pipeline. It uses copy-on-write semantics to ensure
// thread-safety and prevent unintended mutations. State is the primary
// data structure for passing information between Units.
type State struct {
	// data holds the key-value pairs that make up the state.
	// It is unexported to maintain immutability guarantees.
	data map[string]any
}

// NewState creates a new empty State.
// The returned State is ready to use and can be safely shared across
// goroutines.
func NewState() State {
	return State{
		data: make(map[string]any),
	}
}

// Get retrieves a value from the State with compile-time type safety.
// It returns the value and a boolean indicating whether the key exists
// and contains a value of the correct type. The returned value is a deep
// copy to maintain immutability.
//
// Example:
//
//	responses, ok := Get(state, KeyResponses)
//	if !ok {
//	    // handle missing value
//	}
func Get[T any](s State, key Key[T]) (T, bool) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, false
	}

	copied := deepCopyValue(value)
	val, ok := copied.(T)
	return val, ok
}

// Has reports whether the State holds a value under key.
func Has[T any](s State, key Key[T]) bool {
	_, exists := s.data[key.name]
	return exists
}

// GetRaw is a method version of Get that uses a string key.
// For type safety, use the generic Get function instead.
func (s State) GetRaw(keyName string) (any, bool) {
	value, exists := s.data[keyName]
	if !exists {
		return nil, false
	}
	return deepCopyValue(value), true
}

// With creates a new State with the specified key-value pair added or
// updated. It implements copy-on-write semantics, returning a new State
// instance while leaving the original unchanged.
//
// Example:
//
//	newState := With(state, KeyRule, RuleCorrected)
func With[T any](s State, key Key[T], value T) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[key.name] = deepCopyValue(value)
	return State{data: newData}
}

// WithMultiple creates a new State with multiple key-value pairs added
// or updated. It is more efficient than chaining multiple With calls as
// it performs a single clone operation.
func (s State) WithMultiple(updates map[string]any) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		newData[k] = deepCopyValue(v)
	}
	return State{data: newData}
}

// Keys returns all keys present in the State in sorted order.
// The returned slice is safe to modify without affecting the original State.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns a string representation of the State for debugging purposes.
func (s State) String() string {
	return fmt.Sprintf("State%v", s.Keys())
}

// ExecutionContext contains metadata about the current analysis that
// flows through the State. It provides consistent access to execution
// metadata for middleware and observability.
type ExecutionContext struct {
	// AnalysisName is the configured name of the analysis.
	AnalysisName string

	// ExecutionID is a unique identifier for this specific execution instance.
	ExecutionID string
}

// WithExecutionContext creates a new State with execution context metadata
// included. This method should be called before the pipeline runs.
func (s State) WithExecutionContext(ctx ExecutionContext) State {
	updates := map[string]any{
		KeyAnalysisName.name: ctx.AnalysisName,
		KeyExecutionID.name:  ctx.ExecutionID,
	}
	return s.WithMultiple(updates)
}

// GetExecutionContext extracts execution context metadata from the State.
// It returns false when any field is absent.
func (s State) GetExecutionContext() (ExecutionContext, bool) {
	name, ok1 := Get(s, KeyAnalysisName)
	executionID, ok2 := Get(s, KeyExecutionID)

	if !ok1 || !ok2 {
		return ExecutionContext{}, false
	}

	return ExecutionContext{
		AnalysisName: name,
		ExecutionID:  executionID,
	}, true
}

// Dimensions summarizes the size of the analysis held in a State.
// Sizes that are not yet known are zero.
type Dimensions struct {
	// Subjects is the number of response rows.
	Subjects int

	// Items is the number of items.
	Items int

	// Candidates is the number of candidate quasi-orders.
	Candidates int
}

// GetDimensions reads the current analysis size without copying the
// underlying buffers.
func (s State) GetDimensions() Dimensions {
	var d Dimensions
	if m, ok := s.data[KeyResponses.name].(*ResponseMatrix); ok && m != nil {
		d.Subjects = m.Subjects
		d.Items = m.Items
	}
	if c, ok := s.data[KeyCandidates.name].([]QuasiOrder); ok {
		d.Candidates = len(c)
	}
	return d
}
