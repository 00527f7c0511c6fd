package transfer

import "github.com/dop251/goja"

// RefStorage is a per-transfer reference map keyed by subject identity
// (spec.md §4.13). A visitor/acceptor pair that opts into reference-graph
// support probes it before visiting a container's children; an object seen
// before resolves to a ReferenceOf token instead of being walked again, so
// cyclic graphs terminate.
type RefStorage struct {
	byIdentity map[goja.Value]int
	values     []interface{}
}

// NewRefStorage constructs an empty reference map for one transfer.
func NewRefStorage() *RefStorage {
	return &RefStorage{byIdentity: make(map[goja.Value]int)}
}

// Probe reports whether subject has already been visited in this
// transfer, returning its index if so.
func (r *RefStorage) Probe(subject goja.Value) (int, bool) {
	idx, ok := r.byIdentity[subject]
	return idx, ok
}

// Reserve allocates a new index for subject before its children are
// visited, so that a cycle back to subject resolves to this index rather
// than recursing forever (spec.md §4.13 invariant (ii)).
func (r *RefStorage) Reserve(subject goja.Value) int {
	idx := len(r.values)
	r.values = append(r.values, nil)
	r.byIdentity[subject] = idx
	return idx
}

// Fill records the fully-constructed value at idx, once its children have
// finished visiting (spec.md §4.13 invariant (i): each unique object
// appears exactly once as a fully-constructed value).
func (r *RefStorage) Fill(idx int, value interface{}) {
	r.values[idx] = value
}

// At returns the value stored at idx. Valid once Fill has run for idx;
// before that it returns the placeholder nil Reserve installed.
func (r *RefStorage) At(idx int) interface{} {
	return r.values[idx]
}

// Len reports how many distinct objects this transfer has seen so far.
func (r *RefStorage) Len() int { return len(r.values) }

// ReferenceOf is a typed token resolved against a per-transfer RefStorage,
// handed to an acceptor instead of a fresh Subject when Probe finds the
// subject already visited.
type ReferenceOf[T any] struct {
	index   int
	storage *RefStorage
}

// NewReferenceOf constructs a token for idx within storage.
func NewReferenceOf[T any](storage *RefStorage, idx int) ReferenceOf[T] {
	return ReferenceOf[T]{index: idx, storage: storage}
}

// Resolve returns the referenced value and whether it has been filled yet.
// A token resolved before its target's construction completes (a genuine
// cycle) returns ok=false; callers that must tolerate this should resolve
// lazily, after the whole transfer completes, rather than at visit time.
func (r ReferenceOf[T]) Resolve() (T, bool) {
	var zero T
	v := r.storage.At(r.index)
	if v == nil {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
