package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Seal encrypts plaintext under key (either an ECDH shared secret or a
// group channel key) using an authenticated cipher. The nonce is
// derived deterministically from fields already committed to the wire
// in clear rather than transmitted separately, so the receiver can
// try candidate keys without extra wire overhead:
// nonceSeed is the codec's header||sender_hash||timestamp, which both
// ends can recompute before the ciphertext is decrypted. It
// deliberately excludes path: path grows at every flood hop, so a
// nonce derived from it would change in flight and could never be
// reproduced by the final recipient.
func Seal(key [SharedSecretSize]byte, nonceSeed []byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}
	nonce := deriveNonce(nonceSeed, aead.NonceSize())
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open decrypts and authenticates ciphertext under key, using the same
// nonceSeed the sender used with Seal. A non-nil error means either the
// key is wrong or the ciphertext was tampered with; callers must not
// distinguish the two (the dispatcher just tries the next candidate
// contact).
func Open(key [SharedSecretSize]byte, nonceSeed []byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}
	nonce := deriveNonce(nonceSeed, aead.NonceSize())
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return pt, nil
}

// deriveNonce hashes nonceSeed down to the cipher's required nonce
// size. SHA-256 rather than a KDF: the seed's timestamp component is
// already unique per sender by construction (the replay guard enforces
// strictly increasing timestamps per contact), so this only needs to
// be a fixed-size, deterministic, collision-resistant reduction, not a
// dedicated KDF.
func deriveNonce(seed []byte, size int) []byte {
	h := sha256.Sum256(seed)
	return h[:size]
}

// ErrDecryptFailed is returned by Open when authentication fails,
// which means either the wrong key was tried or the ciphertext was
// corrupted/forged; the caller must not distinguish the two cases in
// its logging (no side channel during scanning).
var ErrDecryptFailed = fmt.Errorf("crypto: decryption failed")
