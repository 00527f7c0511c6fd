package module

import (
	"github.com/dop251/goja"
	"github.com/tidwall/gjson"

	"github.com/r3e-network/jsagent/system/agent"
	"github.com/r3e-network/jsagent/system/jserr"
)

// LoadSyntheticManifest builds a synthetic module from a JSON document of
// the shape:
//
//	{"name": "config", "exports": {"timeoutMs": 5000, "retries": 3}}
//
// Host services that hand an agent a fixed bag of configuration or
// capability values as a module (rather than compiling JS for it) author
// that bag as JSON and load it through this function instead of
// hand-building a fill callback (spec.md §4.11's "create_synthetic" lets
// the host supply the fill however it likes; gjson.ParseBytes is the
// idiomatic way to walk that shape without unmarshaling into a fixed Go
// struct, since the export set is caller-defined and open-ended).
func LoadSyntheticManifest(lock agent.LockWitness, doc []byte, origin Origin) (*Module, error) {
	parsed := gjson.ParseBytes(doc)
	if !parsed.Exists() {
		return nil, jserr.New(jserr.KindCompile, "manifest: invalid JSON document")
	}

	exportsField := parsed.Get("exports")
	if !exportsField.Exists() || !exportsField.IsObject() {
		return nil, jserr.New(jserr.KindCompile, "manifest: missing \"exports\" object")
	}

	var names []string
	exportsField.ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})

	mod := CreateSynthetic(lock, names, origin, func(set func(string, goja.Value)) error {
		rt := lock.Host().Runtime()
		exportsField.ForEach(func(key, value gjson.Result) bool {
			set(key.String(), rt.ToValue(gjsonToGo(value)))
			return true
		})
		return nil
	})
	return mod, nil
}

// gjsonToGo converts a gjson.Result into a plain Go value goja can wrap
// with Runtime.ToValue, recursing into arrays and objects.
func gjsonToGo(v gjson.Result) interface{} {
	switch {
	case v.IsArray():
		items := v.Array()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = gjsonToGo(item)
		}
		return out
	case v.IsObject():
		out := make(map[string]interface{})
		v.ForEach(func(key, value gjson.Result) bool {
			out[key.String()] = gjsonToGo(value)
			return true
		})
		return out
	default:
		return v.Value()
	}
}
