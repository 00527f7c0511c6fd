package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSyntheticManifestFillsExports(t *testing.T) {
	lock, realm := testWitnessAndRealm(t)
	doc := []byte(`{"name":"config","exports":{"timeoutMs":5000,"label":"prod","retries":[1,2,3]}}`)

	mod, err := LoadSyntheticManifest(lock, doc, Origin{Name: "config"})
	require.NoError(t, err)

	_, err = mod.Evaluate(realm)
	require.NoError(t, err)

	timeout, ok := mod.Export("timeoutMs")
	require.True(t, ok)
	assert.Equal(t, int64(5000), timeout.ToInteger())

	label, ok := mod.Export("label")
	require.True(t, ok)
	assert.Equal(t, "prod", label.String())
}

func TestLoadSyntheticManifestRejectsMissingExports(t *testing.T) {
	lock, _ := testWitnessAndRealm(t)
	_, err := LoadSyntheticManifest(lock, []byte(`{"name":"bad"}`), Origin{Name: "bad"})
	require.Error(t, err)
}
