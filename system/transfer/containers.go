package transfer

import (
	"github.com/r3e-network/jsagent/system/jserr"
)

// DeferredReceiver holds a freshly constructed container plus a
// continuation that populates it. Returning one from an acceptor lets the
// caller insert the container into a reference map before visiting its
// children, so cyclic graphs terminate (spec.md §4.12's deferred
// receivers, §4.13's invariant (ii)).
type DeferredReceiver[T any] struct {
	Value    T
	Populate func() error
}

// AcceptList builds a []T from TagList, running elem against each entry in
// order.
func AcceptList[T any](elem Acceptor[T]) Acceptor[[]T] {
	return func(s Subject) ([]T, error) {
		if s.Tag != TagList {
			var zero []T
			return zero, jserr.Type("expected list, got " + s.Tag.String())
		}
		out := make([]T, 0, len(s.Entries))
		for _, e := range s.Entries {
			v, err := elem(VisitValue(e.Value))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
}

// AcceptDictionary builds a map[string]T from TagDictionary, running value
// against each property value.
func AcceptDictionary[T any](value Acceptor[T]) Acceptor[map[string]T] {
	return func(s Subject) (map[string]T, error) {
		if s.Tag != TagDictionary {
			return nil, jserr.Type("expected dictionary, got " + s.Tag.String())
		}
		out := make(map[string]T, len(s.Entries))
		for _, e := range s.Entries {
			v, err := value(VisitValue(e.Value))
			if err != nil {
				return nil, err
			}
			out[e.Key] = v
		}
		return out, nil
	}
}

// StructField describes one named property a struct acceptor reads, with
// its own pre-specialized acceptor (spec.md §4.12's struct_tag<N>).
type StructField[T any] struct {
	Name   string
	Accept Acceptor[T]
}

// AcceptStructInto fills out by calling each field's acceptor against the
// matching property on a TagDictionary subject (goja objects have no
// separate "struct" representation; a struct_tag subject is just a
// dictionary whose property set happens to be known at the call site).
// set is invoked once per field in the order given.
func AcceptStructInto(s Subject, names []string, set func(name string, value Subject) error) error {
	if s.Tag != TagDictionary && s.Tag != TagStruct {
		return jserr.Type("expected object, got " + s.Tag.String())
	}
	byName := make(map[string]Entry, len(s.Entries))
	for _, e := range s.Entries {
		byName[e.Key] = e
	}
	for _, name := range names {
		entry, ok := byName[name]
		if !ok {
			if err := set(name, Subject{Tag: TagUndefined}); err != nil {
				return err
			}
			continue
		}
		if err := set(name, VisitValue(entry.Value)); err != nil {
			return err
		}
	}
	return nil
}

// AcceptVector builds a []T from TagList or TagVector without further
// per-element tag negotiation beyond elem itself (spec.md §4.12's
// vector_tag: "a trusted dense array with numeric indices" — this
// boundary has no separate typed-array representation from goja, so
// vector_tag and list_tag share one acceptor path).
func AcceptVector[T any](elem Acceptor[T]) Acceptor[[]T] {
	return func(s Subject) ([]T, error) {
		if s.Tag != TagList && s.Tag != TagVector {
			return nil, jserr.Type("expected vector, got " + s.Tag.String())
		}
		out := make([]T, 0, len(s.Entries))
		for _, e := range s.Entries {
			v, err := elem(VisitValue(e.Value))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
}

// AcceptTuple reads exactly len(accepts) positional entries, erroring if
// the subject has fewer. rest, if non-nil, receives any entries beyond
// len(accepts) (spec.md §4.12's tuple_tag<N> with optional rest spread).
func AcceptTuple(s Subject, accepts []func(Subject) error, rest func(Subject) error) error {
	if s.Tag != TagList && s.Tag != TagTuple {
		return jserr.Type("expected tuple, got " + s.Tag.String())
	}
	if len(s.Entries) < len(accepts) {
		return jserr.Type("tuple has too few elements")
	}
	for i, accept := range accepts {
		if err := accept(VisitValue(s.Entries[i].Value)); err != nil {
			return err
		}
	}
	if rest != nil {
		for _, e := range s.Entries[len(accepts):] {
			if err := rest(VisitValue(e.Value)); err != nil {
				return err
			}
		}
	} else if len(s.Entries) > len(accepts) {
		return jserr.Type("tuple has too many elements")
	}
	return nil
}
