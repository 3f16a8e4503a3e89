package mesh

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/NyanHelsing/MeshCore/crypto"
)

// GroupPSKSizes are the two permitted symmetric pre-shared-key lengths
// for a group channel: 16 or 32 bytes.
var GroupPSKSizes = [2]int{16, 32}

// DecodeGroupPSK base64-decodes a group channel key and validates its
// length, matching the firmware admin command that takes a base64 PSK
// on the CLI (src/helpers/BaseChatMesh.cpp's
// addChannel).
func DecodeGroupPSK(b64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("mesh: decode group psk: %w", err)
	}
	if len(key) != GroupPSKSizes[0] && len(key) != GroupPSKSizes[1] {
		return nil, fmt.Errorf("mesh: group psk must be %d or %d bytes, got %d", GroupPSKSizes[0], GroupPSKSizes[1], len(key))
	}
	return key, nil
}

// ChannelHash returns the one-byte wire identifier for a group
// channel: the first byte of SHA-256(key).
func ChannelHash(key []byte) byte {
	sum := sha256.Sum256(key)
	return sum[0]
}

// ChannelSecret derives the fixed-size AEAD key used to seal/open
// GRP_TXT payloads from a raw PSK of either permitted length: 16-byte
// keys are expanded, 32-byte keys are used directly, so Seal/Open
// always see a crypto.SharedSecretSize key regardless of which the
// operator configured.
func ChannelSecret(psk []byte) [crypto.SharedSecretSize]byte {
	if len(psk) == crypto.SharedSecretSize {
		var out [crypto.SharedSecretSize]byte
		copy(out[:], psk)
		return out
	}
	return sha256.Sum256(psk)
}
