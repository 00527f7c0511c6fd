package transfer

import (
	"strconv"

	"github.com/dop251/goja"
)

// Entry is one (key, value) pair a container's visitor yields to an
// acceptor. For lists and vectors, Key is the decimal index; for
// dictionaries and structs, Key is the property name.
type Entry struct {
	Key   string
	Value goja.Value
}

// Subject is what visit<V> hands to an acceptor: a tag, the raw value (or
// a projection of it), and — for container tags — its entries in
// deterministic iteration order (spec.md §4.12).
type Subject struct {
	Tag     Tag
	Raw     goja.Value
	Entries []Entry
}

// VisitValue decomposes v into a Subject, the Go analog of visit<V> for
// V = goja.Value: the only "source type" this boundary ever visits is
// already-constructed engine values, so there is a single concrete visit
// function rather than one per host type (see DESIGN.md).
func VisitValue(v goja.Value) Subject {
	tag := classify(v)
	s := Subject{Tag: tag, Raw: v}

	switch tag {
	case TagList:
		obj := v.(*goja.Object)
		length := int(obj.Get("length").ToInteger())
		entries := make([]Entry, 0, length)
		for i := 0; i < length; i++ {
			key := strconv.Itoa(i)
			entries = append(entries, Entry{Key: key, Value: obj.Get(key)})
		}
		s.Entries = entries
	case TagDictionary:
		obj := v.(*goja.Object)
		keys := obj.Keys()
		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, Entry{Key: k, Value: obj.Get(k)})
		}
		s.Entries = entries
	}
	return s
}
