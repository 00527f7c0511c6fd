// Package module implements the script/module record, the compile-link-
// evaluate state machine, and the synthetic-module bridge (spec.md §4.11).
//
// Grounded on system/tee/script_engine.go's ValidateScript/goja.Compile and
// entry-point-via-goja.AssertFunction invocation pattern, and on
// original_source/packages/isolated_v8/evaluation/module_.cc for the
// compile/link/evaluate state machine and the synthetic-module protocol.
//
// goja has no native ECMAScript module graph (no import/export
// declarations, no module namespace objects). This package supplies one on
// top of goja's plain-script evaluation by rewriting a restricted subset of
// import/export syntax into calls against two realm globals, __import__ and
// __exports__, installed immediately before a module's program runs — the
// idiomatic way to reuse a script engine that only evaluates whole
// programs (see DESIGN.md). This is a narrowing of spec.md's import
// grammar to a single-line, semicolon-terminated subset, not a departure
// from its compile/link/evaluate contract.
package module

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/r3e-network/jsagent/system/agent"
	"github.com/r3e-network/jsagent/system/jserr"
)

// Origin names the source a script or module came from. Name is inserted
// into the owning agent's weak specifier map so link callbacks can recover
// a referrer's name (spec.md §4.11).
type Origin struct {
	Name string
}

// ImportRequest is one import statement a module's source named, exposed
// with deterministic iteration order matching source order (spec.md §4.11).
type ImportRequest struct {
	Specifier  string
	Attributes map[string]string
}

type recordState int32

const (
	stateUnlinked recordState = iota
	stateLinking
	stateLinked
	stateEvaluating
	stateEvaluated
	stateErrored
)

// Script holds a compiled goja program plus the owning agent's host. It has no import graph: Run executes it directly.
type Script struct {
	host    *agent.Host
	program *goja.Program
	origin  Origin
}

// CompileScript parses source as a plain script (spec.md §4.11
// Script.compile).
func CompileScript(lock agent.LockWitness, source string, origin Origin) (*Script, error) {
	prog, err := goja.Compile(origin.Name, source, false)
	if err != nil {
		return nil, jserr.Compile(err.Error(), err)
	}
	return &Script{host: lock.Host(), program: prog, origin: origin}, nil
}

// Run executes the script in realm and returns its completion value.
func (s *Script) Run(realm *agent.Realm) (goja.Value, error) {
	v, err := realm.Runtime().RunProgram(s.program)
	if err != nil {
		return nil, jserr.Runtime(err.Error(), runtimeStack(err), err)
	}
	return v, nil
}

var (
	stackFrameRe          = regexp.MustCompile(`(?m)^[ \t]*at\s+(?:(new)\s+)?(\S+)\s+\(([^:()]+):(\d+):(\d+)\)[ \t]*$`)
	stackFrameAnonymousRe = regexp.MustCompile(`(?m)^[ \t]*at\s+([^:()\s]+):(\d+):(\d+)[ \t]*$`)
)

// runtimeStack pulls the rendered call stack out of a goja runtime error
// and re-renders it through jserr.RenderStack, so the {kind,message,stack}
// error value spec.md §4.14 describes actually carries a stack whenever
// goja's thrown value is an Error instance with a populated .stack
// property. Returns "" if err isn't a goja exception or carries no frames
// goja's native stack format matches.
func runtimeStack(err error) string {
	exc, ok := err.(*goja.Exception)
	if !ok {
		return ""
	}
	obj, ok := exc.Value().(*goja.Object)
	if !ok {
		return ""
	}
	stackVal := obj.Get("stack")
	if stackVal == nil {
		return ""
	}
	frames := framesFromGojaStack(stackVal.String())
	if len(frames) == 0 {
		return ""
	}
	return jserr.RenderStack(frames)
}

// framesFromGojaStack parses goja's V8-style ".stack" text (one frame per
// line, either "at fn (script:line:col)" or the anonymous "at
// script:line:col") into jserr.Frame values.
func framesFromGojaStack(stack string) []jserr.Frame {
	var frames []jserr.Frame
	for _, line := range strings.Split(stack, "\n") {
		if m := stackFrameRe.FindStringSubmatch(line); m != nil {
			lineNo, _ := strconv.Atoi(m[4])
			col, _ := strconv.Atoi(m[5])
			frames = append(frames, jserr.Frame{
				FunctionName: m[2],
				ScriptName:   m[3],
				Line:         lineNo,
				Column:       col,
				IsConstruct:  m[1] != "",
			})
			continue
		}
		if m := stackFrameAnonymousRe.FindStringSubmatch(line); m != nil {
			lineNo, _ := strconv.Atoi(m[2])
			col, _ := strconv.Atoi(m[3])
			frames = append(frames, jserr.Frame{ScriptName: m[1], Line: lineNo, Column: col})
		}
	}
	return frames
}

var (
	importRe        = regexp.MustCompile(`(?m)^[ \t]*import\s*\{([^}]*)\}\s*from\s*["']([^"']+)["'];?`)
	importDefaultRe = regexp.MustCompile(`(?m)^[ \t]*import\s+(\w+)\s+from\s*["']([^"']+)["'];?`)
	importSideRe    = regexp.MustCompile(`(?m)^[ \t]*import\s*["']([^"']+)["'];?`)
	exportNamedRe   = regexp.MustCompile(`(?m)^([ \t]*)export\s+(const|let|var)\s+(\w+)\s*=\s*(.+?);[ \t]*$`)
	exportDefaultRe = regexp.MustCompile(`(?m)(^[ \t]*|;[ \t]*)export\s+default\s+(.+?);[ \t]*$`)
)

// Module is a compiled module record: a compiled goja program plus its
// import graph state (spec.md §4.11 Module record).
type Module struct {
	mu          sync.Mutex
	host        *agent.Host
	program     *goja.Program
	origin      Origin
	requests    []ImportRequest
	synthetic   bool
	exportNames []string
	fill        func(set func(name string, value goja.Value)) error
	state       recordState
	linked      map[string]*Module
	exports     map[string]goja.Value
	err         error
}

// CompileModule scans source for the supported import/export subset,
// rewrites it against the __import__/__exports__ realm globals, and
// compiles the result. If origin.Name is set, (module -> name) is recorded
// in the host's weak specifier map so later link callbacks can recover a
// referrer's name (spec.md §4.11).
func CompileModule(lock agent.LockWitness, source string, origin Origin) (*Module, error) {
	requests := scanImportRequests(source)
	rewritten := rewriteModuleSource(source)

	prog, err := goja.Compile(origin.Name, rewritten, false)
	if err != nil {
		return nil, jserr.Compile(err.Error(), err)
	}

	host := lock.Host()
	if origin.Name != "" {
		host.NoteSpecifier(prog, origin.Name)
	}

	return &Module{
		host:     host,
		program:  prog,
		origin:   origin,
		requests: requests,
		linked:   make(map[string]*Module),
		exports:  make(map[string]goja.Value),
	}, nil
}

// Requests enumerates this module's import requests in source order.
func (m *Module) Requests(agent.LockWitness) []ImportRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ImportRequest(nil), m.requests...)
}

// CreateSynthetic builds a synthetic module exposing exactly the names
// listed. Its link step is a no-op; evaluation invokes fill to populate the
// named exports and resolves (spec.md §4.11's synthetic-module protocol).
func CreateSynthetic(lock agent.LockWitness, names []string, origin Origin, fill func(set func(name string, value goja.Value)) error) *Module {
	return &Module{
		host:        lock.Host(),
		origin:      origin,
		synthetic:   true,
		exportNames: append([]string(nil), names...),
		fill:        fill,
		state:       stateLinked, // synthetic modules have no link step
		linked:      make(map[string]*Module),
		exports:     make(map[string]goja.Value),
	}
}

// LinkAction resolves one import request to the module the engine should
// use for it. It runs on the same goroutine as Link: goja's lock is the
// implicit one-goroutine-at-a-time scheduling contract enforced by the
// owning ForegroundRunner, so there is no separate lock object to release
// and reacquire around this call, unlike the original's C-callback shuttle
// (see SPEC_FULL.md §9).
type LinkAction func(referrer *Module, req ImportRequest) (*Module, error)

// Link instantiates m's import graph, calling action once per request and
// recording the result by specifier (spec.md §4.11 Module.link).
func (m *Module) Link(lock agent.LockWitness, action LinkAction) error {
	m.mu.Lock()
	if m.synthetic {
		m.mu.Unlock()
		return nil
	}
	if m.state != stateUnlinked {
		m.mu.Unlock()
		return jserr.Logic(fmt.Sprintf("module %q linked twice", m.origin.Name))
	}
	m.state = stateLinking
	requests := append([]ImportRequest(nil), m.requests...)
	m.mu.Unlock()

	linked := make(map[string]*Module, len(requests))
	for _, req := range requests {
		dep, err := action(m, req)
		if err != nil {
			wrapped := jserr.Link(req.Specifier, err)
			m.mu.Lock()
			m.state = stateErrored
			m.err = wrapped
			m.mu.Unlock()
			return wrapped
		}
		linked[req.Specifier] = dep
	}

	m.mu.Lock()
	m.linked = linked
	m.state = stateLinked
	m.mu.Unlock()
	return nil
}

// Evaluate drives evaluation of m and its already-linked dependencies,
// depth-first, each module evaluated at most once. Rejects if any
// dependency is still unlinked (spec.md §4.11: "reject if the module graph
// becomes async at top level" — this module system has no top-level await,
// so the only async-graph failure mode it can observe is an unlinked
// dependency, which is what it rejects on).
func (m *Module) Evaluate(realm *agent.Realm) (goja.Value, error) {
	return m.evaluate(realm, make(map[*Module]bool))
}

func (m *Module) evaluate(realm *agent.Realm, visiting map[*Module]bool) (goja.Value, error) {
	m.mu.Lock()
	switch m.state {
	case stateEvaluated:
		m.mu.Unlock()
		return goja.Undefined(), nil
	case stateErrored:
		err := m.err
		m.mu.Unlock()
		return nil, err
	case stateUnlinked, stateLinking:
		m.mu.Unlock()
		return nil, jserr.Logic(fmt.Sprintf("module %q evaluated before linking completed", m.origin.Name))
	}
	if visiting[m] {
		m.mu.Unlock()
		return goja.Undefined(), nil
	}
	visiting[m] = true
	m.state = stateEvaluating
	deps := m.linked
	synthetic := m.synthetic
	m.mu.Unlock()

	for _, dep := range deps {
		if _, err := dep.evaluate(realm, visiting); err != nil {
			m.mu.Lock()
			m.state = stateErrored
			m.err = err
			m.mu.Unlock()
			return nil, err
		}
	}

	if synthetic {
		return m.evaluateSynthetic()
	}
	return m.evaluateProgram(realm)
}

func (m *Module) evaluateProgram(realm *agent.Realm) (goja.Value, error) {
	rt := realm.Runtime()

	exportsObj := rt.NewObject()
	_ = rt.Set("__exports__", exportsObj)
	_ = rt.Set("__import__", func(call goja.FunctionCall) goja.Value {
		specifier := call.Argument(0).String()
		dep, ok := m.linked[specifier]
		if !ok {
			panic(rt.NewTypeError("unresolved import specifier: " + specifier))
		}
		ns := rt.NewObject()
		dep.mu.Lock()
		for name, value := range dep.exports {
			_ = ns.Set(name, value)
		}
		dep.mu.Unlock()
		return ns
	})

	_, err := rt.RunProgram(m.program)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = stateErrored
		m.err = jserr.Runtime(err.Error(), runtimeStack(err), err)
		return nil, m.err
	}
	exports := make(map[string]goja.Value)
	for _, key := range exportsObj.Keys() {
		exports[key] = exportsObj.Get(key)
	}
	m.exports = exports
	m.state = stateEvaluated
	return exportsObj, nil
}

// evaluateSynthetic installs a set-callback, runs fill, and resolves. This
// mirrors spec.md's thread-local-shuttle protocol: the callback is only
// valid for the duration of this call, enforced here by closure scope
// rather than a package-level pointer needing manual invalidation.
func (m *Module) evaluateSynthetic() (goja.Value, error) {
	exports := make(map[string]goja.Value, len(m.exportNames))
	allowed := make(map[string]bool, len(m.exportNames))
	for _, name := range m.exportNames {
		allowed[name] = true
	}

	set := func(name string, value goja.Value) {
		if !allowed[name] {
			return
		}
		exports[name] = value
	}

	var fillErr error
	if m.fill != nil {
		fillErr = m.fill(set)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if fillErr != nil {
		m.state = stateErrored
		// fillErr comes from a host-supplied Go callback, never a goja
		// exception, so runtimeStack always yields "" here; called anyway
		// so every KindRuntime construction site goes through the same path.
		m.err = jserr.Runtime("synthetic module export fill failed", runtimeStack(fillErr), fillErr)
		return nil, m.err
	}
	m.exports = exports
	m.state = stateEvaluated
	return goja.Undefined(), nil
}

// Export looks up one named export of an evaluated module.
func (m *Module) Export(name string) (goja.Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.exports[name]
	return v, ok
}

func scanImportRequests(source string) []ImportRequest {
	type found struct {
		at  int
		req ImportRequest
	}
	var all []found
	collect := func(re *regexp.Regexp, group int) {
		for _, loc := range re.FindAllStringSubmatchIndex(source, -1) {
			spec := source[loc[2*group]:loc[2*group+1]]
			all = append(all, found{at: loc[0], req: ImportRequest{Specifier: spec, Attributes: map[string]string{}}})
		}
	}
	collect(importRe, 2)
	collect(importDefaultRe, 2)
	collect(importSideRe, 1)
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })

	var reqs []ImportRequest
	for _, f := range all {
		reqs = append(reqs, f.req)
	}
	return reqs
}

// rewriteModuleSource rewrites the supported import/export subset against
// the __import__/__exports__ globals installed right before evaluation.
func rewriteModuleSource(source string) string {
	out := importRe.ReplaceAllString(source, `var {$1} = __import__("$2");`)
	out = importDefaultRe.ReplaceAllString(out, `var $1 = __import__("$2").default;`)
	out = importSideRe.ReplaceAllString(out, `__import__("$1");`)
	out = exportNamedRe.ReplaceAllString(out, `${1}var $3 = $4; __exports__.$3 = $3;`)
	out = exportDefaultRe.ReplaceAllString(out, `${1}__exports__.default = $2;`)
	return out
}
