package tests

import (
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GroupLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.GroupLoader.
// setupData maps each group the loader serves to the exact bytes it must return.
func GroupLoaderContractTest(t *testing.T, loader ports.GroupLoader, setupData map[string][]byte) {
	t.Helper()

	t.Run("GetGroup_Success", func(t *testing.T) {
		for name, expected := range setupData {
			content, err := loader.GetGroup(name)
			require.NoError(t, err, "unexpected error getting group %s", name)
			assert.Equal(t, string(expected), string(content), "content mismatch for %s", name)
		}
	})

	t.Run("GetGroup_NotFound", func(t *testing.T) {
		_, err := loader.GetGroup("non-existent-group")
		assert.ErrorIs(t, err, domain.ErrGroupNotFound)
	})

	t.Run("ListGroups", func(t *testing.T) {
		names, err := loader.ListGroups()
		require.NoError(t, err)
		assert.Len(t, names, len(setupData))
		for name := range setupData {
			assert.Contains(t, names, name)
		}
	})
}
