package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRoundtrip(t *testing.T) {
	assert := assert.New(t)

	id, err := NewRandom(rand.Reader)
	require.NoError(t, err, "NewRandom")

	blob := id.Bytes()
	id2, err := FromBytes(blob)
	require.NoError(t, err, "FromBytes")

	assert.True(id.Matches(id2), "round-tripped identity should match")
	assert.Equal(id.HashID(), id2.HashID())

	_, err = FromBytes(blob[:10])
	assert.Error(err, "FromBytes(short) should fail")
}

func TestIdentityResetScrubs(t *testing.T) {
	assert := assert.New(t)

	id, err := NewRandom(rand.Reader)
	require.NoError(t, err)

	id.Reset()
	assert.True(CtIsZero(id.Bytes()[:32]), "Reset() should scrub the private seed")
}

func TestSignVerify(t *testing.T) {
	assert := assert.New(t)

	alice, err := NewRandom(rand.Reader)
	require.NoError(t, err)

	msg := []byte("advertisement body")
	sig := alice.Sign(msg)
	assert.True(Verify(alice.PublicKey(), msg, sig))

	// A tampered message must not verify.
	tampered := append([]byte{}, msg...)
	tampered[0] ^= 0xff
	assert.False(Verify(alice.PublicKey(), tampered, sig))
}

// TestECDHSymmetry asserts shared_secret(A,B) == shared_secret(B,A).
func TestECDHSymmetry(t *testing.T) {
	assert := assert.New(t)

	alice, err := NewRandom(rand.Reader)
	require.NoError(t, err)
	bob, err := NewRandom(rand.Reader)
	require.NoError(t, err)

	aliceSide, err := alice.SharedSecret(bob.PublicKey())
	require.NoError(t, err)
	bobSide, err := bob.SharedSecret(alice.PublicKey())
	require.NoError(t, err)

	assert.Equal(aliceSide, bobSide, "ECDH must be symmetric")
}

func TestHashIDIsFirstPublicKeyByte(t *testing.T) {
	assert := assert.New(t)
	id, err := NewRandom(rand.Reader)
	require.NoError(t, err)

	assert.Equal(id.PublicKey()[0], id.HashID())
	assert.Equal(id.PublicKey()[0], HashIDFromPublicKey(id.PublicKey()))
}
