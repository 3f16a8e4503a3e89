// Package crypto implements the node's long-term identity, per-peer key
// agreement, advertisement signing, and packet payload encryption.
//
// Identity is a single Ed25519 keypair: a long-term asymmetric keypair
// (32-byte public key, 32-byte private scalar), used both to sign
// advertisements and, via a birational map to the
// corresponding Curve25519 point, to derive per-peer ECDH shared
// secrets. This mirrors mesh::Identity in the reference firmware,
// which plays both roles with a single key.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	// PublicKeySize is the size in bytes of an Identity's public key.
	PublicKeySize = ed25519.PublicKeySize
	// PrivateKeySize is the size in bytes of an Identity's private key
	// (Ed25519 seed || public key, as returned by ed25519.GenerateKey).
	PrivateKeySize = ed25519.PrivateKeySize
	// SharedSecretSize is the size in bytes of a derived ECDH secret.
	SharedSecretSize = 32
)

// Identity is a node's long-term keypair.
type Identity struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewRandom generates a new random Identity using the supplied entropy
// source (typically crypto/rand.Reader).
func NewRandom(rng io.Reader) (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rng)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate identity: %w", err)
	}
	return &Identity{pub: pub, priv: priv}, nil
}

// FromBytes reconstructs an Identity from a previously saved
// (private || public) blob, as produced by Bytes().
func FromBytes(blob []byte) (*Identity, error) {
	if len(blob) != PrivateKeySize {
		return nil, fmt.Errorf("crypto: invalid identity blob length: %d", len(blob))
	}
	priv := make(ed25519.PrivateKey, PrivateKeySize)
	copy(priv, blob)
	pub := make(ed25519.PublicKey, PublicKeySize)
	copy(pub, priv[ed25519.SeedSize:])
	return &Identity{pub: pub, priv: priv}, nil
}

// Bytes serializes the Identity as (private || public), suitable for
// the identitystore package to persist.
func (id *Identity) Bytes() []byte {
	out := make([]byte, 0, PrivateKeySize)
	out = append(out, id.priv...)
	return out
}

// PublicKey returns the 32-byte Ed25519 public key.
func (id *Identity) PublicKey() []byte {
	pk := make([]byte, PublicKeySize)
	copy(pk, id.pub)
	return pk
}

// HashID returns the one-byte wire address derived from the identity:
// the first byte of the public key.
func (id *Identity) HashID() byte {
	return id.pub[0]
}

// HashIDFromPublicKey computes the hash_id for an arbitrary public key,
// without requiring a full Identity.
func HashIDFromPublicKey(pub []byte) byte {
	if len(pub) == 0 {
		return 0
	}
	return pub[0]
}

// Matches reports whether two identities share the same public key.
func (id *Identity) Matches(other *Identity) bool {
	if other == nil {
		return false
	}
	return string(id.pub) == string(other.pub)
}

// Sign signs msg (used to authenticate advertisements).
func (id *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(id.priv, msg)
}

// Verify checks a signature produced by Sign against the given public
// key. Used by the dispatcher to authenticate advertisements before
// any contact-table mutation occurs.
func Verify(pub, msg, sig []byte) bool {
	if len(pub) != PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

// String returns a short hex summary of the public key, for logging.
func (id *Identity) String() string {
	return hex.EncodeToString(id.pub[:4])
}

// Reset zeroes the identity's private key material.
func (id *Identity) Reset() {
	ExplicitBzero(id.priv)
}

// RandomBytes fills b with cryptographically secure random bytes.
func RandomBytes(b []byte) error {
	_, err := rand.Read(b)
	return err
}
