package mesh

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	// MaxPathSize is the maximum number of one-byte hop hashes a path
	// may carry.
	MaxPathSize = 8
	// MaxPacketPayload is the maximum plaintext/ciphertext payload
	// size in bytes.
	MaxPacketPayload = 180
	// PacketHashSize is the length of the truncated digest used to
	// identify a packet for dedup/retransmit-wait correlation —
	// path-independent, covering only header+ciphertext. Distinct from
	// the 4-byte message-level ACK hash, which authenticates a specific
	// text message's content rather than identifying a packet on the
	// wire.
	PacketHashSize = 8
	// AckHashSize is the length of the normative wire ACK payload:
	// SHA256(timestamp||flags||text||sender_pub)[:4].
	AckHashSize = 4
)

// RouteMode is the 2-bit routing mode field of the packet header.
type RouteMode byte

const (
	RouteFlood    RouteMode = 0
	RouteDirect   RouteMode = 1
	RouteResponse RouteMode = 2
)

// PayloadType is the 4-bit payload type field of the packet header.
// The numeric values are part of the normative wire format and must
// not be renumbered.
type PayloadType byte

const (
	PayloadReq      PayloadType = 0
	PayloadResponse PayloadType = 1
	PayloadTxtMsg   PayloadType = 2
	PayloadAck      PayloadType = 3
	PayloadAdvert   PayloadType = 4
	PayloadAnonReq  PayloadType = 5
	PayloadPath     PayloadType = 6
	PayloadGrpTxt   PayloadType = 7
)

const headerVersion0 = 0

// Packet is the mesh's on-air unit, shaped for reuse from a fixed
// pool. It is never allocated with `new`/`&Packet{}` by
// application code — always via Pool.Alloc — so that the pool's
// free/outbound/pending-flood bookkeeping stays authoritative.
type Packet struct {
	Route   RouteMode
	Type    PayloadType
	Version byte

	// Timestamp travels in clear alongside the ciphertext: the AEAD
	// nonce is derived from header+timestamp rather than carried as a
	// separate field, so this costs no extra wire bytes versus
	// encrypting the timestamp as the first four plaintext bytes. It
	// also drives the replay guard (a message's timestamp must
	// strictly exceed the sender's last-seen value) and the advert
	// freshness check.
	Timestamp uint32

	// SenderHash is the originating node's hash_id, carried in clear
	// so a recipient can narrow MeshApp.SearchPeersByHash/
	// SearchChannelsByHash to plausible candidates before trying to
	// decrypt. It is meaningless for PayloadAdvert, whose sender
	// identity comes from the advertisement's own embedded public key
	// instead.
	SenderHash byte

	// Path is the sequence of one-byte hop hashes accumulated as the
	// packet is flooded, or the source route for a DIRECT send.
	// Capacity MaxPathSize; length is len(Path).
	Path [MaxPathSize]byte
	PathLen int

	// Payload is ciphertext on the wire; the codec decrypts it in
	// place into plaintext for delivery to the application, and the
	// pool clears it back to zero length on Free.
	Payload    [MaxPacketPayload]byte
	PayloadLen int

	// Attempt is bumped by the application on a retried send so the
	// resulting packet hash differs from the original attempt: a
	// packet is not automatically retried, so bumping Attempt is what
	// perturbs the packet hash on a deliberate retry.
	Attempt uint8

	// NoRetransmit marks a packet whose ACK has already been matched
	// locally, so the router does not also flood-forward it further,
	// grounded on BaseChatMesh.cpp's markDoNotRetransmit.
	NoRetransmit bool

	// awaitingAck marks a packet the router has handed to the radio but
	// must keep alive because WaitForAck is tracking it; trySend checks
	// this rather than re-deriving a key to look the pending entry up.
	awaitingAck bool

	// slot is the pool index backing this packet; -1 if not
	// pool-owned (e.g. constructed directly by a unit test).
	slot int
}

// Header returns the packed 1-byte header: route_mode(2) |
// payload_type(4) | version/flags(2).
func (p *Packet) Header() byte {
	return byte(p.Route)<<6 | byte(p.Type)<<2 | (p.Version & 0x3)
}

// SetHeader unpacks a wire header byte into the packet's fields.
func (p *Packet) SetHeader(h byte) {
	p.Route = RouteMode(h >> 6 & 0x3)
	p.Type = PayloadType(h >> 2 & 0xf)
	p.Version = h & 0x3
}

// AppendHop appends a hop hash to the path, in place for flood
// forwarding. Returns ErrPathTooLong once the path is already at
// MaxPathSize.
func (p *Packet) AppendHop(hashID byte) error {
	if p.PathLen >= MaxPathSize {
		return ErrPathTooLong
	}
	p.Path[p.PathLen] = hashID
	p.PathLen++
	return nil
}

// StripFirstHop removes and returns the first hop of the path,
// shifting the remainder down. Used by direct forwarding: if the next
// byte in path equals the local hash_id, strip it and retransmit.
func (p *Packet) StripFirstHop() (byte, bool) {
	if p.PathLen == 0 {
		return 0, false
	}
	hop := p.Path[0]
	copy(p.Path[:p.PathLen-1], p.Path[1:p.PathLen])
	p.PathLen--
	return hop, true
}

// SetPath overwrites the packet's path with the supplied hop list.
func (p *Packet) SetPath(hops []byte) error {
	if len(hops) > MaxPathSize {
		return ErrPathTooLong
	}
	copy(p.Path[:], hops)
	p.PathLen = len(hops)
	return nil
}

// PathSlice returns the packet's current path as a slice view.
func (p *Packet) PathSlice() []byte {
	return p.Path[:p.PathLen]
}

// SetPayload copies plaintext or ciphertext into the packet's fixed
// payload buffer.
func (p *Packet) SetPayload(data []byte) error {
	if len(data) > MaxPacketPayload {
		return ErrPathTooLong // oversized payload; reuse the drop path
	}
	copy(p.Payload[:], data)
	p.PayloadLen = len(data)
	return nil
}

// PayloadSlice returns the packet's current payload as a slice view.
func (p *Packet) PayloadSlice() []byte {
	return p.Payload[:p.PayloadLen]
}

// Hash computes the packet's identity on the wire: a truncated digest
// over header and payload/ciphertext. Path is deliberately excluded:
// it mutates at every flood hop, so
// the same logical packet arriving at different nodes by different
// routes — or the same node receiving it twice via two different
// flood paths — must still hash identically for dedup suppression and
// for the originator's ACK wait to recognize a reply to what it sent
// with an empty path. Perturbing the header or ciphertext (including
// via a bumped Attempt, which is folded into the ciphertext by way of
// a fresh nonce) changes the hash with overwhelming probability.
func (p *Packet) Hash() [PacketHashSize]byte {
	h := sha256.New()
	h.Write([]byte{p.Header()})
	h.Write(p.PayloadSlice())
	sum := h.Sum(nil)
	var out [PacketHashSize]byte
	copy(out[:], sum[:PacketHashSize])
	return out
}

// ComputeAckHash computes the normative wire ACK payload for a text
// message: SHA256(timestamp||flags||text||sender_pub)[:4]. Both ends
// compute this independently — the sender before transmitting, to know
// what to wait for; the recipient on receipt, to know what to send
// back — so it must stay byte-for-byte stable with the reference
// codebase's BaseChatMesh.cpp ack_hash computation for
// acknowledgements to be recognised across implementations. sender_pub
// is always the public key of whoever composed the text, i.e. the
// contact's key when acknowledging an inbound message, or this node's
// own key when arming a wait for one just sent.
func ComputeAckHash(timestamp uint32, flags byte, text []byte, senderPub []byte) [AckHashSize]byte {
	var tsBuf [4]byte
	binary.BigEndian.PutUint32(tsBuf[:], timestamp)

	h := sha256.New()
	h.Write(tsBuf[:])
	h.Write([]byte{flags})
	h.Write(text)
	h.Write(senderPub)
	sum := h.Sum(nil)

	var out [AckHashSize]byte
	copy(out[:], sum[:AckHashSize])
	return out
}

// IsRouteFlood reports whether the packet arrived (or will be sent) by
// flood, matching the firmware's packet->isRouteFlood().
func (p *Packet) IsRouteFlood() bool {
	return p.Route == RouteFlood
}
