package registry_test

import (
	"testing"

	"github.com/openport-labs/swapquote/registry"
	"github.com/zeebo/assert"
)

func TestLoadRegistry(t *testing.T) {
	r, err := registry.Load("testdata/tokens")
	assert.NoError(t, err)

	// Incomplete entries are skipped, not indexed.
	assert.Equal(t, 3, r.Len())

	atom, ok := r.Lookup("cosmoshub-4", "uatom")
	assert.True(t, ok)
	assert.Equal(t, "ATOM", atom.Symbol)
	assert.Equal(t, int32(6), atom.Decimals)

	_, ok = r.Lookup("cosmoshub-4", "uosmo")
	assert.False(t, ok)

	osmo, ok := r.Lookup("osmosis-1", "uosmo")
	assert.True(t, ok)
	assert.Equal(t, "OSMO", osmo.Symbol)
}

func TestLoadRegistryMissingDir(t *testing.T) {
	_, err := registry.Load("testdata/nonexistent")
	assert.Error(t, err)
}
