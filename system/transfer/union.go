package transfer

import "github.com/r3e-network/jsagent/system/jserr"

// Alternative is one branch of a tag-negotiated union: Tags lists which
// tags this alternative claims, in priority order relative to other
// alternatives (primitives should be listed ahead of objects, per
// spec.md §4.12). Try attempts to build the union value from subject and
// returns ok=false if this alternative declines (wrong shape beyond tag),
// letting negotiation fall through to the next alternative.
type Alternative[T any] struct {
	Tags []Tag
	Try  func(Subject) (T, bool, error)
}

// AcceptUnion negotiates among alternatives by tag: for the subject's
// visited tag, every alternative that claims it is tried in the order
// given, and the first to report ok=true wins. No discriminant property is
// read (spec.md §4.12's "std::variant-like unions without a discriminant").
func AcceptUnion[T any](alts []Alternative[T]) Acceptor[T] {
	return func(s Subject) (T, error) {
		var zero T
		for _, alt := range alts {
			if !tagsInclude(alt.Tags, s.Tag) {
				continue
			}
			v, ok, err := alt.Try(s)
			if err != nil {
				return zero, err
			}
			if ok {
				return v, nil
			}
		}
		return zero, jserr.Type("no union alternative matched tag " + s.Tag.String())
	}
}

// DiscriminatedUnion describes a union whose alternatives are selected by
// reading a fixed discriminant property and dispatching through a
// precomputed map (spec.md §4.12: "hash it, look up in a compile-time
// perfect hash" — Go has no constexpr perfect hashing, so a
// map[string]Acceptor[T] built once at registration time is the idiomatic
// substitute; lookup is O(1) amortized either way).
type DiscriminatedUnion[T any] struct {
	DiscriminantProperty string
	Alternatives         map[string]Acceptor[T]
}

// Accept reads the discriminant property off s, looks it up in
// Alternatives, and dispatches to the single matching acceptor.
func (d DiscriminatedUnion[T]) Accept(s Subject) (T, error) {
	var zero T
	if s.Tag != TagDictionary && s.Tag != TagStruct {
		return zero, jserr.Type("expected object for discriminated union, got " + s.Tag.String())
	}
	var discriminant string
	found := false
	for _, e := range s.Entries {
		if e.Key == d.DiscriminantProperty {
			discriminant = e.Value.String()
			found = true
			break
		}
	}
	if !found {
		return zero, jserr.Type("missing discriminant property " + d.DiscriminantProperty)
	}
	accept, ok := d.Alternatives[discriminant]
	if !ok {
		return zero, jserr.Type("unknown discriminant value " + discriminant)
	}
	return accept(s)
}

func tagsInclude(tags []Tag, t Tag) bool {
	for _, candidate := range tags {
		if candidate == t {
			return true
		}
	}
	return false
}
