package mesh

import "github.com/NyanHelsing/MeshCore/crypto"

// MeshApp is the set of upcalls the mesh orchestrator makes into the
// application layer. It replaces the reference codebase's
// subclass-and-override pattern (BaseChatMesh inheriting from a Mesh
// base class and overriding virtual methods) with an explicit Go
// interface: a trait with named methods is easier to test against a
// fake than a class hierarchy, and it makes the contract between Mesh
// and the application visible in one place instead of scattered
// across `virtual` declarations.
//
// Every method here is called synchronously from within Mesh.Loop:
// none may block, spawn a goroutine, or call back into Mesh.Loop
// while it is already running.
type MeshApp interface {
	// AllowPacketForward decides whether pkt, not addressed to this
	// node, should be re-flooded. Repeaters return true unconditionally
	// (simple_repeater always forwards); a battery-powered leaf node
	// might return false.
	AllowPacketForward(pkt *Packet) bool

	// GetAirtimeBudgetFactor returns the fraction of uptime this node
	// may spend transmitting.
	GetAirtimeBudgetFactor() float64

	// OnAdvertRecv is called once an advertisement's signature has
	// been verified, with the parsed sender public key, the
	// advertisement's own timestamp, and its opaque app_data blob.
	OnAdvertRecv(senderPub []byte, timestamp uint32, appData []byte, pkt *Packet)

	// OnAnonDataRecv delivers a decrypted ANON_REQ payload — a message
	// from a sender not yet in the contact table, identified only by
	// the public key embedded in the payload itself. This is how the
	// admin login flow authenticates.
	OnAnonDataRecv(pkt *Packet, senderPub []byte, plaintext []byte)

	// SearchPeersByHash returns the indices of every known peer whose
	// hash_id matches, in the app's own peer-table order. The
	// dispatcher tries GetPeerSharedSecret for each in turn until one
	// decrypts the packet: hash_id is one byte, so collisions across
	// contacts are expected and must be tolerated.
	SearchPeersByHash(hashID byte) []int

	// GetPeerSharedSecret returns the cached ECDH secret for peerIdx,
	// or false if peerIdx is no longer valid.
	GetPeerSharedSecret(peerIdx int) ([crypto.SharedSecretSize]byte, bool)

	// OnPeerDataRecv delivers a decrypted packet authenticated against
	// peerIdx's shared secret.
	OnPeerDataRecv(pkt *Packet, peerIdx int, plaintext []byte)

	// OnPeerPathRecv delivers a PATH payload: a reversed route back to
	// its sender, plus whatever "extra" bytes were piggybacked (most
	// often a plain ACK hash). The router has already verified this
	// decrypted under peerIdx's secret; learning the path itself, by
	// unconditional overwrite, is the app's job.
	OnPeerPathRecv(pkt *Packet, peerIdx int, path []byte, extra []byte)

	// OnAckRecv reports a received ACK payload's 4-byte hash. Returns
	// true if it matched an outstanding send, which tells the router
	// to stop waiting on (and stop re-flooding) the corresponding
	// packet.
	OnAckRecv(ackHash []byte) bool

	// SearchChannelsByHash returns the indices of every known group
	// channel whose hash matches.
	SearchChannelsByHash(hashID byte) []int

	// GetChannelSecret returns channelIdx's PSK, or false if invalid.
	GetChannelSecret(channelIdx int) ([crypto.SharedSecretSize]byte, bool)

	// OnGroupDataRecv delivers a decrypted GRP_TXT payload.
	OnGroupDataRecv(pkt *Packet, channelIdx int, plaintext []byte)

	// OnSendTimeout is called when an outbound packet's ACK wait
	// expires with no match. The app decides whether to retry (by
	// composing and sending a fresh packet with a bumped Attempt) or
	// give up.
	OnSendTimeout(pkt *Packet)
}
