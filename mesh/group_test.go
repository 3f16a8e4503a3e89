package mesh

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeGroupPSKAcceptsValidSizes(t *testing.T) {
	for _, size := range GroupPSKSizes {
		key := make([]byte, size)
		key[0] = 0x42
		b64 := base64.StdEncoding.EncodeToString(key)

		got, err := DecodeGroupPSK(b64)
		require.NoError(t, err)
		assert.Equal(t, key, got)
	}
}

func TestDecodeGroupPSKRejectsWrongLength(t *testing.T) {
	key := make([]byte, 20)
	b64 := base64.StdEncoding.EncodeToString(key)

	_, err := DecodeGroupPSK(b64)
	assert.Error(t, err)
}

func TestDecodeGroupPSKRejectsInvalidBase64(t *testing.T) {
	_, err := DecodeGroupPSK("not base64!!")
	assert.Error(t, err)
}

func TestChannelHashIsStableForSameKey(t *testing.T) {
	key := make([]byte, 16)
	key[0] = 7

	assert.Equal(t, ChannelHash(key), ChannelHash(append([]byte(nil), key...)))
}

func TestChannelSecretExpandsShortKeyAndPreservesLongKey(t *testing.T) {
	key16 := make([]byte, 16)
	key16[0] = 1
	secret16 := ChannelSecret(key16)
	assert.Len(t, secret16, 32)

	key32 := make([]byte, 32)
	key32[0] = 1
	secret32 := ChannelSecret(key32)
	assert.Equal(t, key32, secret32[:])
}

func TestChannelSecretIsDeterministic(t *testing.T) {
	key := make([]byte, 16)
	key[5] = 9

	assert.Equal(t, ChannelSecret(key), ChannelSecret(append([]byte(nil), key...)))
}
