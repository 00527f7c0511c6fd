// Package transfer implements the value-transfer framework that pumps a
// value across the host/engine boundary: a tag lattice, a visit/accept
// pipeline, container and union acceptors, deferred receivers for cyclic
// construction, and reference-graph support (spec.md §4.12-§4.13).
//
// Grounded on original_source/packages/js/v8/visit.cc, accept.cc,
// packages/auto_js/js/variant/accept.cc and
// packages/auto_js/js/tuple/accept.cc. The C++ original dispatches via
// CRTP acceptor overloads resolved at compile time; Go has no equivalent
// static overload set; this package's Tag enum plus a closed Go type
// switch in VisitValue is the idiomatic stand-in (a sum type expressed as
// an interface-free enum, since every representable JS shape is known in
// advance — see DESIGN.md).
package transfer

import "github.com/dop251/goja"

// Tag identifies the shape of a value crossing the boundary (spec.md
// §4.12's tag dispatch). Acceptors declare which tags they handle.
type Tag int

const (
	TagUndefined Tag = iota
	TagNull
	TagBoolean
	TagNumber
	TagString
	TagList
	TagDictionary
	TagStruct
	TagVector
	TagTuple
	TagReference
	TagExternal
)

func (t Tag) String() string {
	switch t {
	case TagUndefined:
		return "undefined"
	case TagNull:
		return "null"
	case TagBoolean:
		return "boolean"
	case TagNumber:
		return "number"
	case TagString:
		return "string"
	case TagList:
		return "list"
	case TagDictionary:
		return "dictionary"
	case TagStruct:
		return "struct"
	case TagVector:
		return "vector"
	case TagTuple:
		return "tuple"
	case TagReference:
		return "reference"
	case TagExternal:
		return "external"
	default:
		return "unknown"
	}
}

// CovariantTag wraps a concrete tag to tell a variant acceptor that this
// alternative is known statically rather than discovered by probing
// (spec.md §4.12), used inside discriminated-union dispatch.
type CovariantTag struct {
	Tag Tag
}

// classify returns the tag VisitValue assigns to v, without constructing a
// Subject.
func classify(v goja.Value) Tag {
	switch {
	case v == nil || goja.IsUndefined(v):
		return TagUndefined
	case goja.IsNull(v):
		return TagNull
	}
	switch v.ExportType().Kind().String() {
	case "bool":
		return TagBoolean
	case "string":
		return TagString
	case "float64", "int64", "int":
		return TagNumber
	}
	if obj, ok := v.(*goja.Object); ok {
		switch obj.ClassName() {
		case "Array":
			return TagList
		default:
			return TagDictionary
		}
	}
	return TagExternal
}
