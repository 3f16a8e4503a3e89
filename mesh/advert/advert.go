// Package advert encodes and verifies the mesh's self-advertisement
// payload: a node announcing its public key,
// timestamp, and application-defined metadata (name, type,
// coordinates), signed so that any recipient can verify it without
// sharing a secret with the sender.
//
// app_data is CBOR rather than a fixed C struct, following the rest of
// this module's wire-format choices where the reference firmware used
// a packed struct; fxamacker/cbor gives forward-compatible field
// addition (an old parser skipping unknown keys) that a raw byte
// layout does not.
package advert

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// NodeType identifies the kind of node an advertisement describes.
type NodeType uint8

const (
	NodeTypeChat     NodeType = 0
	NodeTypeRepeater NodeType = 1
	NodeTypeRoom     NodeType = 2
	NodeTypeSensor   NodeType = 3
)

// AppData is the signed, variable application payload carried by an
// advertisement.
type AppData struct {
	Type NodeType `cbor:"1,keyasint"`
	Name string   `cbor:"2,keyasint"`
	Lat  float32  `cbor:"3,keyasint,omitempty"`
	Lon  float32  `cbor:"4,keyasint,omitempty"`
}

// Marshal CBOR-encodes a, for embedding in a signed advertisement.
func (a AppData) Marshal() ([]byte, error) {
	return cbor.Marshal(a)
}

// Unmarshal decodes CBOR-encoded app_data.
func Unmarshal(b []byte) (AppData, error) {
	var a AppData
	if err := cbor.Unmarshal(b, &a); err != nil {
		return AppData{}, fmt.Errorf("advert: decode app_data: %w", err)
	}
	return a, nil
}

// SignedBytes returns the bytes an advertisement's Ed25519 signature
// covers: the sender's public key, its timestamp, and its app_data,
// in that fixed order. The signature itself is not part of this — it
// is appended separately on the wire.
func SignedBytes(senderPub []byte, timestamp uint32, appData []byte) []byte {
	buf := make([]byte, len(senderPub)+4+len(appData))
	n := copy(buf, senderPub)
	binary.LittleEndian.PutUint32(buf[n:], timestamp)
	copy(buf[n+4:], appData)
	return buf
}

// Encode builds the full advertisement payload: SignedBytes followed
// by its Ed25519 signature. This is what ends up as a PayloadAdvert
// packet's plaintext — an advert travels unencrypted, since its only
// security property is authenticity, not confidentiality, and every
// node must be able to verify it without holding a shared secret with
// the sender.
func Encode(senderPub []byte, timestamp uint32, appData []byte, sig []byte) []byte {
	signed := SignedBytes(senderPub, timestamp, appData)
	return append(signed, sig...)
}

// Decode splits a received advertisement payload back into its public
// key, timestamp, app_data, and signature, and verifies the signature
// before returning. The reference firmware mutated the contact table
// before checking the signature; Decode never lets a caller see
// app_data without having already verified it.
func Decode(payload []byte) (senderPub []byte, timestamp uint32, appData []byte, err error) {
	const sigSize = ed25519.SignatureSize
	if len(payload) < ed25519.PublicKeySize+4+sigSize {
		return nil, 0, nil, fmt.Errorf("advert: payload too short: %d bytes", len(payload))
	}
	pub := payload[:ed25519.PublicKeySize]
	ts := binary.LittleEndian.Uint32(payload[ed25519.PublicKeySize : ed25519.PublicKeySize+4])
	body := payload[ed25519.PublicKeySize+4 : len(payload)-sigSize]
	sig := payload[len(payload)-sigSize:]

	signed := payload[:len(payload)-sigSize]
	if !ed25519.Verify(pub, signed, sig) {
		return nil, 0, nil, fmt.Errorf("advert: signature verification failed")
	}
	return pub, ts, body, nil
}
