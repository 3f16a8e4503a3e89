package identitystore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGeneratesAndPersistsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.bin")

	id, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, id)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, id.Matches(reloaded), "second Load should return the same identity persisted by the first")
}

func TestSaveThenLoadRoundtrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.bin")

	id, err := Load(filepath.Join(t.TempDir(), "scratch.bin"))
	require.NoError(t, err)

	require.NoError(t, Save(path, id))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, id.Matches(loaded))
	assert.Equal(t, id.HashID(), loaded.HashID())
}
