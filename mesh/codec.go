package mesh

import (
	"encoding/binary"
	"fmt"

	"github.com/NyanHelsing/MeshCore/crypto"
)

// frameOverhead is the number of clear (unencrypted) bytes in a wire
// frame besides header/path: the sender's hash_id and the 4-byte
// timestamp used for nonce derivation and replay checking.
const frameOverhead = 1 + 4

// EncodeFrame serializes pkt into the exact bytes transmitted over the
// radio: header(1) | path_len(1) | path(path_len) | sender_hash(1) |
// timestamp(4, LE) | ciphertext. There is no length-prefix on the
// ciphertext; its length is whatever remains of the frame.
func EncodeFrame(pkt *Packet) []byte {
	buf := make([]byte, 2+pkt.PathLen+frameOverhead+pkt.PayloadLen)
	buf[0] = pkt.Header()
	buf[1] = byte(pkt.PathLen)
	off := 2
	copy(buf[off:], pkt.PathSlice())
	off += pkt.PathLen
	buf[off] = pkt.SenderHash
	off++
	binary.LittleEndian.PutUint32(buf[off:], pkt.Timestamp)
	off += 4
	copy(buf[off:], pkt.PayloadSlice())
	return buf
}

// DecodeFrame parses wire bytes into pkt, which must already be
// allocated (typically via Pool.Alloc). It does not touch the
// ciphertext's contents — that happens in Open.
func DecodeFrame(buf []byte, pkt *Packet) error {
	if len(buf) < 2 {
		return fmt.Errorf("mesh: frame too short: %d bytes", len(buf))
	}
	pkt.SetHeader(buf[0])
	pathLen := int(buf[1])
	if pathLen > MaxPathSize {
		return ErrPathTooLong
	}
	if len(buf) < 2+pathLen+frameOverhead {
		return fmt.Errorf("mesh: frame too short for path+header fields: %d bytes", len(buf))
	}
	off := 2
	copy(pkt.Path[:], buf[off:off+pathLen])
	pkt.PathLen = pathLen
	off += pathLen
	pkt.SenderHash = buf[off]
	off++
	pkt.Timestamp = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	cipher := buf[off:]
	if len(cipher) > MaxPacketPayload {
		return fmt.Errorf("mesh: oversized payload: %d bytes", len(cipher))
	}
	copy(pkt.Payload[:], cipher)
	pkt.PayloadLen = len(cipher)
	return nil
}

// nonceSeed returns the bytes fed to crypto's nonce derivation: the
// header byte, sender hash, clear timestamp, and attempt counter.
// header+senderHash+timestamp alone are unique per message from a
// given sender as long as timestamps strictly increase, which the
// replay guard already enforces; Attempt is folded in on top so a
// deliberate retry of the same logical message at the same timestamp
// still gets a fresh nonce and a different resulting packet hash.
func nonceSeed(pkt *Packet) []byte {
	seed := make([]byte, 2+4+1)
	seed[0] = pkt.Header()
	seed[1] = pkt.SenderHash
	binary.LittleEndian.PutUint32(seed[2:], pkt.Timestamp)
	seed[6] = pkt.Attempt
	return seed
}

// Seal encrypts plaintext under key and stores the ciphertext as
// pkt.Payload. pkt.Route, pkt.Type, and pkt.Timestamp must already be
// set, since they feed the nonce derivation.
func Seal(pkt *Packet, key [crypto.SharedSecretSize]byte, plaintext []byte) error {
	ciphertext, err := crypto.Seal(key, nonceSeed(pkt), plaintext)
	if err != nil {
		return err
	}
	return pkt.SetPayload(ciphertext)
}

// Open decrypts pkt.Payload under key and returns the plaintext. It
// does not mutate pkt.
func Open(pkt *Packet, key [crypto.SharedSecretSize]byte) ([]byte, error) {
	return crypto.Open(key, nonceSeed(pkt), pkt.PayloadSlice())
}
