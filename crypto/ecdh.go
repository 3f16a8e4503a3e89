package crypto

import (
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"
)

// SharedSecret derives the deterministic ECDH shared secret between
// this identity's private key and another identity's public key:
// shared_secret(self, other_pub) -> [u8;32].
//
// The identity keypair is Ed25519 rather than X25519 — this module
// wants one 32-byte keypair that also signs advertisements — so the
// agreement is performed over the birational map between an Ed25519
// point and its Curve25519 (Montgomery) counterpart — the same trick
// libsodium uses for crypto_sign_ed25519_{pk,sk}_to_curve25519.
func (id *Identity) SharedSecret(otherPub []byte) ([SharedSecretSize]byte, error) {
	var secret [SharedSecretSize]byte

	xPriv, err := edPrivateToX25519(id.priv)
	if err != nil {
		return secret, err
	}
	xPub, err := edPublicToX25519(otherPub)
	if err != nil {
		return secret, err
	}

	out, err := curve25519.X25519(xPriv[:], xPub[:])
	if err != nil {
		return secret, fmt.Errorf("crypto: x25519 scalarmult: %w", err)
	}
	copy(secret[:], out)
	return secret, nil
}

// edPublicToX25519 converts an Ed25519 public key to its Curve25519
// u-coordinate.
func edPublicToX25519(edPub []byte) ([32]byte, error) {
	var out [32]byte
	if len(edPub) != ed25519.PublicKeySize {
		return out, fmt.Errorf("crypto: invalid public key length: %d", len(edPub))
	}
	p, err := new(edwards25519.Point).SetBytes(edPub)
	if err != nil {
		return out, fmt.Errorf("crypto: invalid curve point: %w", err)
	}
	copy(out[:], p.BytesMontgomery())
	return out, nil
}

// edPrivateToX25519 converts an Ed25519 private key to the clamped
// Curve25519 scalar it corresponds to.
func edPrivateToX25519(edPriv ed25519.PrivateKey) ([32]byte, error) {
	var out [32]byte
	if len(edPriv) != ed25519.PrivateKeySize {
		return out, fmt.Errorf("crypto: invalid private key length: %d", len(edPriv))
	}
	h := sha512.Sum512(edPriv.Seed())
	copy(out[:], h[:32])
	out[0] &= 248
	out[31] &= 127
	out[31] |= 64
	return out, nil
}
