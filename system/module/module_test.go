package module

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-network/jsagent/system/agent"
	"github.com/r3e-network/jsagent/system/jserr"
	"github.com/r3e-network/jsagent/system/scheduler"
)

// testWitnessAndRealm obtains a LockWitness the same way production code
// does, via Handle.Schedule, since LockWitness has no exported constructor
// outside the agent package.
func testWitnessAndRealm(t *testing.T) (agent.LockWitness, *agent.Realm) {
	t.Helper()
	runner := scheduler.NewForegroundRunner()
	host := agent.NewHost(runner, agent.NewDeterministicClock(0, 1))

	var lock agent.LockWitness
	var realm *agent.Realm
	done := make(chan struct{})
	h := agent.NewHandle(host)
	agent.Schedule(h, struct{}{}, func(w agent.LockWitness, _ struct{}) {
		lock = w
		realm = host.MakeContext(w)
		close(done)
	})
	<-done
	return lock, realm
}

func TestCompileScriptRunsAndReturnsValue(t *testing.T) {
	lock, realm := testWitnessAndRealm(t)
	script, err := CompileScript(lock, "1 + 2", Origin{Name: "test.js"})
	require.NoError(t, err)

	v, err := script.Run(realm)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.ToInteger())
}

func TestCompileScriptRejectsInvalidSyntax(t *testing.T) {
	lock, _ := testWitnessAndRealm(t)
	_, err := CompileScript(lock, "this is not js {{{", Origin{Name: "bad.js"})
	require.Error(t, err)
}

// TestScriptRunThrowErrorCarriesRenderedStack exercises spec.md §4.14's
// {kind,message,stack} error value end-to-end: a thrown JS error must
// surface a non-empty, canonically rendered stack, not just a message.
func TestScriptRunThrowErrorCarriesRenderedStack(t *testing.T) {
	lock, realm := testWitnessAndRealm(t)
	src := "function f() { throw new Error('boom'); }\nf();"
	script, err := CompileScript(lock, src, Origin{Name: "throws.js"})
	require.NoError(t, err)

	_, runErr := script.Run(realm)
	require.Error(t, runErr)

	jsErr, ok := runErr.(*jserr.Error)
	require.True(t, ok)
	assert.Equal(t, jserr.KindRuntime, jsErr.Kind)
	assert.NotEmpty(t, jsErr.Stack)
	assert.Contains(t, jsErr.Stack, "throws.js")
}

func TestCompileModuleScansImportRequests(t *testing.T) {
	lock, _ := testWitnessAndRealm(t)
	src := "import { add } from \"math\";\nexport const sum = add(1, 2);\n"
	mod, err := CompileModule(lock, src, Origin{Name: "main.js"})
	require.NoError(t, err)

	reqs := mod.Requests(lock)
	require.Len(t, reqs, 1)
	assert.Equal(t, "math", reqs[0].Specifier)
}

func TestSyntheticModuleEvaluateFillsExports(t *testing.T) {
	lock, realm := testWitnessAndRealm(t)
	mod := CreateSynthetic(lock, []string{"value"}, Origin{Name: "synthetic"}, func(set func(string, goja.Value)) error {
		set("value", realm.Runtime().ToValue(42))
		return nil
	})

	_, err := mod.Evaluate(realm)
	require.NoError(t, err)

	v, ok := mod.Export("value")
	require.True(t, ok)
	assert.Equal(t, int64(42), v.ToInteger())
}

func TestLinkResolvesEachRequestOnce(t *testing.T) {
	lock, realm := testWitnessAndRealm(t)
	dep := CreateSynthetic(lock, []string{"add"}, Origin{Name: "math"}, func(set func(string, goja.Value)) error {
		set("add", realm.Runtime().ToValue(func(a, b int) int { return a + b }))
		return nil
	})

	src := "import { add } from \"math\";\nexport const sum = add(2, 3);\n"
	mod, err := CompileModule(lock, src, Origin{Name: "main.js"})
	require.NoError(t, err)

	var resolveCalls int
	err = mod.Link(lock, func(referrer *Module, req ImportRequest) (*Module, error) {
		resolveCalls++
		assert.Equal(t, "math", req.Specifier)
		return dep, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resolveCalls)

	_, err = mod.Evaluate(realm)
	require.NoError(t, err)

	sum, ok := mod.Export("sum")
	require.True(t, ok)
	assert.Equal(t, int64(5), sum.ToInteger())
}

// TestDefaultImportMatchesSpecSeedScenario exercises spec.md §8 seed
// scenario 3's literal source verbatim: a default import rather than the
// named-import form the other tests in this file use.
func TestDefaultImportMatchesSpecSeedScenario(t *testing.T) {
	lock, realm := testWitnessAndRealm(t)
	depB := CreateSynthetic(lock, []string{"default"}, Origin{Name: "B"}, func(set func(string, goja.Value)) error {
		set("default", realm.Runtime().ToValue(41))
		return nil
	})

	src := `import x from "B"; export default x + 1;`
	modA, err := CompileModule(lock, src, Origin{Name: "A"})
	require.NoError(t, err)

	reqs := modA.Requests(lock)
	require.Len(t, reqs, 1)
	assert.Equal(t, "B", reqs[0].Specifier)

	err = modA.Link(lock, func(referrer *Module, req ImportRequest) (*Module, error) {
		assert.Equal(t, "B", req.Specifier)
		assert.Equal(t, "A", referrer.origin.Name)
		return depB, nil
	})
	require.NoError(t, err)

	_, err = modA.Evaluate(realm)
	require.NoError(t, err)

	result, ok := modA.Export("default")
	require.True(t, ok)
	assert.Equal(t, int64(42), result.ToInteger())
}

func TestEvaluateRejectsWhenStillUnlinked(t *testing.T) {
	lock, realm := testWitnessAndRealm(t)
	mod, err := CompileModule(lock, "export const x = 1;", Origin{Name: "unlinked.js"})
	require.NoError(t, err)

	_, err = mod.Evaluate(realm)
	require.Error(t, err)
}

func TestLinkFailurePropagatesLinkError(t *testing.T) {
	lock, _ := testWitnessAndRealm(t)
	src := "import { x } from \"missing\";\n"
	mod, err := CompileModule(lock, src, Origin{Name: "broken.js"})
	require.NoError(t, err)

	linkErr := assert.AnError
	err = mod.Link(lock, func(*Module, ImportRequest) (*Module, error) {
		return nil, linkErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, linkErr)
}
