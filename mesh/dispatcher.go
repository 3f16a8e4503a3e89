package mesh

import (
	"github.com/NyanHelsing/MeshCore/crypto"
	"github.com/NyanHelsing/MeshCore/internal/instrument"
	"github.com/NyanHelsing/MeshCore/mesh/advert"
)

// Dispatcher classifies inbound frames by payload type and routes
// them to the application, trying every plausible peer or channel
// secret before giving up. It owns no transport state of its own —
// only the dedup set, which is an identification concern, not a
// scheduling one.
type Dispatcher struct {
	app      MeshApp
	router   *Router
	pool     *Pool
	dedup    *Dedup
	identity *crypto.Identity

	metrics *instrument.Metrics
}

// SetMetrics attaches m as the destination for the dedup-drop counter;
// nil (the default) disables counting without affecting behavior.
func (d *Dispatcher) SetMetrics(m *instrument.Metrics) { d.metrics = m }

// NewDispatcher returns a Dispatcher wiring app's upcalls to frames
// handled via router and pool, identifying itself as identity.
func NewDispatcher(app MeshApp, router *Router, pool *Pool, dedup *Dedup, identity *crypto.Identity) *Dispatcher {
	return &Dispatcher{app: app, router: router, pool: pool, dedup: dedup, identity: identity}
}

// HandleFrame decodes and dispatches a single frame received off the
// radio. Every error it returns is one of this package's sentinel
// kinds, already accounted for (packet freed, counters bumped); the
// caller's only remaining job is to log it at an appropriate level.
func (d *Dispatcher) HandleFrame(frame []byte, rssiDBm int16) error {
	pkt, err := d.pool.Alloc()
	if err != nil {
		return err
	}
	if err := DecodeFrame(frame, pkt); err != nil {
		d.pool.Free(pkt)
		return err
	}

	hash := pkt.Hash()
	if d.dedup.Seen(hash) {
		if d.metrics != nil {
			d.metrics.DedupDrops.Inc()
		}
		d.pool.Free(pkt)
		return nil
	}
	d.dedup.Insert(hash)
	d.router.NoteReceived(pkt.Route)

	if pkt.Route != RouteFlood {
		return d.handleSourceRouted(pkt, rssiDBm)
	}
	return d.handleFlood(pkt, rssiDBm)
}

// handleSourceRouted implements DIRECT/RESPONSE forwarding: strip this
// node's hash_id off the head of the path if present, else drop.
func (d *Dispatcher) handleSourceRouted(pkt *Packet, rssiDBm int16) error {
	hop, ok := pkt.StripFirstHop()
	if !ok || hop != d.identity.HashID() {
		d.pool.Free(pkt)
		return nil
	}
	if pkt.PathLen > 0 {
		remaining := append([]byte(nil), pkt.PathSlice()...)
		if err := d.router.SendDirect(pkt, remaining, 0); err != nil {
			d.pool.Free(pkt)
			return err
		}
		return nil
	}
	return d.handleLocal(pkt, rssiDBm)
}

// handleFlood tries to handle pkt locally, then re-floods it if the
// application allows forwarding and local handling did not mark it
// NoRetransmit.
func (d *Dispatcher) handleFlood(pkt *Packet, rssiDBm int16) error {
	if err := d.handleLocal(pkt, rssiDBm); err != nil {
		// Local handling failed (e.g. nothing could decrypt it); it
		// may still be meant for a node further out, so forwarding
		// below is still attempted.
		_ = err
	}
	if pkt.NoRetransmit || !d.app.AllowPacketForward(pkt) {
		d.pool.Free(pkt)
		return nil
	}
	if err := pkt.AppendHop(d.identity.HashID()); err != nil {
		d.pool.Free(pkt)
		return err
	}
	d.router.ScheduleRetransmit(pkt, rssiDBm)
	return nil
}

// handleLocal attempts to interpret pkt as addressed to this node,
// classifying by payload type.
func (d *Dispatcher) handleLocal(pkt *Packet, rssiDBm int16) error {
	switch pkt.Type {
	case PayloadAdvert:
		return d.handleAdvert(pkt)
	case PayloadAnonReq:
		return d.handleAnonReq(pkt)
	case PayloadAck:
		return d.handleAck(pkt)
	case PayloadPath:
		return d.handlePeerKeyed(pkt, true)
	case PayloadTxtMsg, PayloadReq, PayloadResponse:
		return d.handlePeerKeyed(pkt, false)
	case PayloadGrpTxt:
		return d.handleGroup(pkt)
	default:
		return ErrInvalidAdvert
	}
}

// handleAdvert verifies an advertisement's signature before making any
// call that could mutate application state. A forged advert must never
// be able to touch the contact table.
func (d *Dispatcher) handleAdvert(pkt *Packet) error {
	senderPub, timestamp, appData, err := advert.Decode(pkt.PayloadSlice())
	if err != nil {
		d.pool.Free(pkt)
		return ErrInvalidAdvert
	}
	d.app.OnAdvertRecv(senderPub, timestamp, appData, pkt)
	d.pool.Free(pkt)
	return nil
}

// handleAnonReq delivers a message from an unrecognized sender (the
// admin login flow), authenticated only by the key material embedded
// in its own plaintext. There is no cached shared secret to try here;
// the payload is opened with a secret derived on the fly from the
// embedded sender key.
func (d *Dispatcher) handleAnonReq(pkt *Packet) error {
	secret, senderPub, err := d.anonSecret(pkt)
	if err != nil {
		d.pool.Free(pkt)
		return crypto.ErrDecryptFailed
	}
	plaintext, err := Open(pkt, secret)
	if err != nil {
		d.pool.Free(pkt)
		return crypto.ErrDecryptFailed
	}
	d.app.OnAnonDataRecv(pkt, senderPub, plaintext)
	d.pool.Free(pkt)
	return nil
}

// anonSecret derives the ECDH secret for an ANON_REQ packet. An
// anonymous sender has no contact entry and so no cached secret to try
// by SenderHash; instead it transmits its full Ed25519 public key as a
// clear prefix of the payload, and only the remainder is sealed.
func (d *Dispatcher) anonSecret(pkt *Packet) ([crypto.SharedSecretSize]byte, []byte, error) {
	raw := pkt.PayloadSlice()
	if len(raw) < crypto.PublicKeySize {
		return [crypto.SharedSecretSize]byte{}, nil, crypto.ErrDecryptFailed
	}
	senderPub := append([]byte(nil), raw[:crypto.PublicKeySize]...)
	secret, err := d.identity.SharedSecret(senderPub)
	if err != nil {
		return [crypto.SharedSecretSize]byte{}, nil, err
	}
	// Shrink the packet's view to the sealed remainder so Open only
	// ever sees ciphertext, not the clear key prefix.
	copy(pkt.Payload[:], raw[crypto.PublicKeySize:])
	pkt.PayloadLen = len(raw) - crypto.PublicKeySize
	return secret, senderPub, nil
}

// handleAck decrypts an ACK packet, whose plaintext is the sealed
// 4-byte message-ack hash (ComputeAckHash) of whatever it
// acknowledges, and reports the match both to the router (which stops
// retransmitting/timing out that send) and to the app.
func (d *Dispatcher) handleAck(pkt *Packet) error {
	candidates := d.app.SearchPeersByHash(pkt.SenderHash)
	for _, peerIdx := range candidates {
		secret, ok := d.app.GetPeerSharedSecret(peerIdx)
		if !ok {
			continue
		}
		plaintext, err := Open(pkt, secret)
		if err != nil {
			continue
		}
		if len(plaintext) < AckHashSize {
			continue
		}
		var target AckWaitKey
		copy(target[:], plaintext[:AckHashSize])
		d.router.MatchAck(target)
		d.app.OnAckRecv(plaintext[:AckHashSize])
		d.pool.Free(pkt)
		return nil
	}
	d.pool.Free(pkt)
	return crypto.ErrDecryptFailed
}

// handlePeerKeyed tries every contact plausibly matching pkt's
// SenderHash until one's cached secret opens the payload — hash_id is
// one byte, so collisions across contacts are expected and must be
// tolerated. The dispatcher logs nothing at info level while scanning,
// so a failed decrypt attempt against the wrong contact's secret is
// not an observable side channel.
func (d *Dispatcher) handlePeerKeyed(pkt *Packet, isPath bool) error {
	candidates := d.app.SearchPeersByHash(pkt.SenderHash)
	for _, peerIdx := range candidates {
		secret, ok := d.app.GetPeerSharedSecret(peerIdx)
		if !ok {
			continue
		}
		plaintext, err := Open(pkt, secret)
		if err != nil {
			continue
		}
		if isPath {
			path, extra := splitPathExtra(plaintext)
			d.app.OnPeerPathRecv(pkt, peerIdx, path, extra)
		} else {
			d.app.OnPeerDataRecv(pkt, peerIdx, plaintext)
		}
		d.pool.Free(pkt)
		return nil
	}
	d.pool.Free(pkt)
	return crypto.ErrDecryptFailed
}

// splitPathExtra splits a decrypted PATH payload into its reversed
// hop list and trailing "extra" bytes (most often a piggybacked ACK
// hash).
func splitPathExtra(plaintext []byte) (path, extra []byte) {
	if len(plaintext) == 0 {
		return nil, nil
	}
	n := int(plaintext[0])
	if n > len(plaintext)-1 {
		n = len(plaintext) - 1
	}
	return plaintext[1 : 1+n], plaintext[1+n:]
}

// handleGroup tries every channel plausibly matching pkt's SenderHash
// — for group channels SenderHash carries the channel hash, not a
// node's, since membership is symmetric and anonymous among peers.
func (d *Dispatcher) handleGroup(pkt *Packet) error {
	candidates := d.app.SearchChannelsByHash(pkt.SenderHash)
	for _, chIdx := range candidates {
		secret, ok := d.app.GetChannelSecret(chIdx)
		if !ok {
			continue
		}
		plaintext, err := Open(pkt, secret)
		if err != nil {
			continue
		}
		d.app.OnGroupDataRecv(pkt, chIdx, plaintext)
		d.pool.Free(pkt)
		return nil
	}
	d.pool.Free(pkt)
	return crypto.ErrDecryptFailed
}
