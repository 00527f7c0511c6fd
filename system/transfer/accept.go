package transfer

import (
	"math"

	"github.com/dop251/goja"

	"github.com/r3e-network/jsagent/system/jserr"
)

// Policy controls how an Acceptor fails when it has no overload for the
// visited tag (spec.md §4.12's "strict vs throwing").
type Policy struct {
	// Throwing makes Transfer insert a catch-all type error when no
	// registered acceptor handles the visited tag. Strict transfer (the
	// zero value) instead resolves only through an acceptor's own
	// explicit handling, surfacing whatever error that acceptor raises.
	Throwing bool
}

// Acceptor constructs a T from a visited Subject. An acceptor that has no
// overload for subject.Tag must return a *jserr.Error of kind KindType;
// Transfer wraps this uniformly under a throwing Policy.
type Acceptor[T any] func(Subject) (T, error)

// Transfer glues visit and accept together for a single boundary crossing
// (spec.md §4.12's transfer<T>).
func Transfer[T any](v goja.Value, policy Policy, accept Acceptor[T]) (T, error) {
	subject := VisitValue(v)
	result, err := accept(subject)
	if err == nil {
		return result, nil
	}
	if !policy.Throwing {
		return result, err
	}
	if _, ok := jserr.As(err, jserr.KindType); ok {
		return result, err
	}
	if _, ok := jserr.As(err, jserr.KindRange); ok {
		return result, err
	}
	return result, jserr.Type("no acceptor overload for tag " + subject.Tag.String())
}

// AcceptBool accepts TagBoolean only.
func AcceptBool(s Subject) (bool, error) {
	if s.Tag != TagBoolean {
		return false, jserr.Type("expected boolean, got " + s.Tag.String())
	}
	return s.Raw.ToBoolean(), nil
}

// AcceptString accepts TagString only. Width conversion (latin1/utf8/utf16)
// is not modeled separately: goja strings are always valid UTF-16 already
// projected to Go's UTF-8 string type by ToString, so the only width
// failure this boundary can observe is already resolved by goja itself
// (spec.md §4.12's "string policy" collapses to a no-op at this layer).
func AcceptString(s Subject) (string, error) {
	if s.Tag != TagString {
		return "", jserr.Type("expected string, got " + s.Tag.String())
	}
	return s.Raw.String(), nil
}

// AcceptFloat64 accepts the canonical numeric width with no narrowing.
func AcceptFloat64(s Subject) (float64, error) {
	if s.Tag != TagNumber {
		return 0, jserr.Type("expected number, got " + s.Tag.String())
	}
	return s.Raw.ToFloat(), nil
}

// AcceptInt32 narrows the canonical double to int32, raising a range error
// if the round trip would lose information (spec.md §4.12's narrowing
// policy for numeric acceptors of concrete width).
func AcceptInt32(s Subject) (int32, error) {
	if s.Tag != TagNumber {
		return 0, jserr.Type("expected number, got " + s.Tag.String())
	}
	f := s.Raw.ToFloat()
	n := int32(f)
	if float64(n) != f {
		return 0, jserr.Range("number does not fit in int32 without loss")
	}
	return n, nil
}

// AcceptInt64 narrows the canonical double to int64, raising a range error
// on round-trip loss. JS numbers are IEEE-754 doubles, so values beyond
// +/-2^53 already lost integer precision before reaching this acceptor;
// this only catches non-integral or out-of-double-safe-range values.
func AcceptInt64(s Subject) (int64, error) {
	if s.Tag != TagNumber {
		return 0, jserr.Type("expected number, got " + s.Tag.String())
	}
	f := s.Raw.ToFloat()
	if math.Trunc(f) != f || math.Abs(f) > (1<<53) {
		return 0, jserr.Range("number is not a safe integer")
	}
	return int64(f), nil
}
