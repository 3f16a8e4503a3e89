package repeater

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NyanHelsing/MeshCore/crypto"
	"github.com/NyanHelsing/MeshCore/mesh"
)

func randIdentity(t *testing.T) *crypto.Identity {
	t.Helper()
	id, err := crypto.NewRandom(rand.Reader)
	require.NoError(t, err)
	return id
}

func TestContactsAddAndFindByHash(t *testing.T) {
	c := NewContacts(4)
	alice := randIdentity(t)

	var secret [crypto.SharedSecretSize]byte
	idx, err := c.Add(alice.PublicKey(), secret, "alice", 100)
	require.NoError(t, err)

	found := c.FindByHash(alice.HashID())
	assert.Contains(t, found, idx)

	ct := c.Get(idx)
	require.NotNil(t, ct)
	assert.Equal(t, "alice", ct.Name)
	assert.Equal(t, uint32(100), ct.LastAdvertTimestamp)
}

func TestContactsFindByHashToleratesCollisions(t *testing.T) {
	c := NewContacts(4)
	var secret [crypto.SharedSecretSize]byte

	pubA := make([]byte, crypto.PublicKeySize)
	pubA[0] = 0x42
	pubB := make([]byte, crypto.PublicKeySize)
	pubB[0] = 0x42
	pubB[1] = 0x01

	idxA, err := c.Add(pubA, secret, "a", 1)
	require.NoError(t, err)
	idxB, err := c.Add(pubB, secret, "b", 1)
	require.NoError(t, err)

	found := c.FindByHash(0x42)
	assert.ElementsMatch(t, []int{idxA, idxB}, found)
}

func TestContactsAddFailsWhenTableFull(t *testing.T) {
	c := NewContacts(1)
	var secret [crypto.SharedSecretSize]byte

	_, err := c.Add(randIdentity(t).PublicKey(), secret, "first", 1)
	require.NoError(t, err)

	_, err = c.Add(randIdentity(t).PublicKey(), secret, "second", 1)
	assert.ErrorIs(t, err, mesh.ErrContactTableFull)
}

func TestContactsAddReusesInvalidatedSlot(t *testing.T) {
	c := NewContacts(2)
	var secret [crypto.SharedSecretSize]byte

	idx, err := c.Add(randIdentity(t).PublicKey(), secret, "first", 1)
	require.NoError(t, err)
	c.entries[idx].valid = false

	idx2, err := c.Add(randIdentity(t).PublicKey(), secret, "second", 1)
	require.NoError(t, err)
	assert.Equal(t, idx, idx2, "should reuse the invalidated slot rather than grow")
	assert.Equal(t, 1, c.Len())
}

func TestContactsFindByPublicKey(t *testing.T) {
	c := NewContacts(4)
	var secret [crypto.SharedSecretSize]byte
	pub := randIdentity(t).PublicKey()

	idx, err := c.Add(pub, secret, "alice", 1)
	require.NoError(t, err)

	assert.Equal(t, idx, c.FindByPublicKey(pub))
	assert.Equal(t, -1, c.FindByPublicKey(randIdentity(t).PublicKey()))
}

func TestContactsSetOutPathOverwrites(t *testing.T) {
	c := NewContacts(4)
	var secret [crypto.SharedSecretSize]byte
	idx, err := c.Add(randIdentity(t).PublicKey(), secret, "alice", 1)
	require.NoError(t, err)

	c.SetOutPath(idx, []byte{1, 2, 3})
	ct := c.Get(idx)
	require.NotNil(t, ct)
	assert.Equal(t, 3, ct.OutPathLen)
	assert.Equal(t, []byte{1, 2, 3}, ct.OutPath[:ct.OutPathLen])

	// Shorter path overwrites the longer one stored before: no
	// compare-and-keep-longer logic.
	c.SetOutPath(idx, []byte{9})
	ct = c.Get(idx)
	require.NotNil(t, ct)
	assert.Equal(t, 1, ct.OutPathLen)
	assert.Equal(t, byte(9), ct.OutPath[0])
}

func TestContactsRecentOrdersByLastAdvert(t *testing.T) {
	c := NewContacts(4)
	var secret [crypto.SharedSecretSize]byte

	idxOld, err := c.Add(randIdentity(t).PublicKey(), secret, "old", 10)
	require.NoError(t, err)
	idxNew, err := c.Add(randIdentity(t).PublicKey(), secret, "new", 30)
	require.NoError(t, err)
	idxMid, err := c.Add(randIdentity(t).PublicKey(), secret, "mid", 20)
	require.NoError(t, err)

	recent := c.Recent(-1)
	assert.Equal(t, []int{idxNew, idxMid, idxOld}, recent)

	assert.Equal(t, []int{idxNew}, c.Recent(1))
}

func TestContactsLenIgnoresInvalidatedSlots(t *testing.T) {
	c := NewContacts(4)
	var secret [crypto.SharedSecretSize]byte

	idx, err := c.Add(randIdentity(t).PublicKey(), secret, "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	c.entries[idx].valid = false
	assert.Equal(t, 0, c.Len())
}
