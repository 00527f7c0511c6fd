package jserr

import (
	"strconv"
	"strings"
)

// Frame is one rendered stack frame. FunctionName and ScriptName default to
// "<anonymous>" and "[eval]" respectively when empty, matching the spec's
// rendering contract so that frames built by tests without a real engine
// still round-trip through RenderStack identically to engine-native frames.
type Frame struct {
	FunctionName string
	ScriptName   string
	Line         int
	Column       int
	IsWasm       bool
	IsConstruct  bool
}

// RenderStack renders frames the way spec.md §4.14 requires:
//
//	"    at <fn or <anonymous>> (<script or [eval]>:<line>:<col>)"
//
// with a "<WASM>" prefix on wasm frames and a "new " prefix on constructor
// frames, joined with newlines.
func RenderStack(frames []Frame) string {
	lines := make([]string, 0, len(frames))
	for _, f := range frames {
		fn := f.FunctionName
		if fn == "" {
			fn = "<anonymous>"
		}
		if f.IsConstruct {
			fn = "new " + fn
		}
		script := f.ScriptName
		if script == "" {
			script = "[eval]"
		}
		prefix := ""
		if f.IsWasm {
			prefix = "<WASM> "
		}
		lines = append(lines, "    at "+prefix+fn+" ("+script+":"+strconv.Itoa(f.Line)+":"+strconv.Itoa(f.Column)+")")
	}
	return strings.Join(lines, "\n")
}
