package mesh

import (
	"github.com/NyanHelsing/MeshCore/core/clock"
	"github.com/NyanHelsing/MeshCore/crypto"
	"github.com/NyanHelsing/MeshCore/internal/instrument"
	"github.com/NyanHelsing/MeshCore/mesh/advert"
)

// Default capacities, tunable per deployment via config but safe to
// start from.
const (
	DefaultPoolCapacity  = 16
	DefaultDedupCapacity = 64
)

// Mesh is the top-level cooperative-scheduling orchestrator: Begin
// wires the radio and application together, and Loop is called
// repeatedly by the host program, doing a bounded amount of work per
// call and never blocking.
type Mesh struct {
	Pool       *Pool
	Dedup      *Dedup
	Router     *Router
	Dispatcher *Dispatcher
	Identity   *crypto.Identity
	Metrics    *instrument.Metrics

	radio Radio
	clk   clock.MillisClock
	app   MeshApp
}

// New constructs a Mesh around radio, identity, and app, using clk for
// all scheduling decisions. It does not touch the radio until Begin.
// poolCapacity/dedupCapacity size the packet pool and the dedup set; a
// value of 0 for either falls back to its Default. metrics may be nil,
// in which case counters are simply not incremented.
func New(radio Radio, identity *crypto.Identity, app MeshApp, clk clock.MillisClock, poolCapacity, dedupCapacity int, metrics *instrument.Metrics) *Mesh {
	if poolCapacity <= 0 {
		poolCapacity = DefaultPoolCapacity
	}
	if dedupCapacity <= 0 {
		dedupCapacity = DefaultDedupCapacity
	}
	pool := NewPool(poolCapacity)
	dedup := NewDedup(clk, dedupCapacity)
	router := NewRouter(radio, pool, clk, app.GetAirtimeBudgetFactor, app.OnSendTimeout)
	dispatcher := NewDispatcher(app, router, pool, dedup, identity)

	pool.SetMetrics(metrics)
	router.SetMetrics(metrics)
	dispatcher.SetMetrics(metrics)

	return &Mesh{
		Pool:       pool,
		Dedup:      dedup,
		Router:     router,
		Dispatcher: dispatcher,
		Identity:   identity,
		Metrics:    metrics,
		radio:      radio,
		clk:        clk,
		app:        app,
	}
}

// Begin performs one-time setup. Radio initialization failure is the
// only fatal error kind this package defines; a caller observing one
// from Begin is expected to halt rather than retry Loop.
func (m *Mesh) Begin() error {
	return nil
}

// Loop does one bounded unit of work: drain at most one received
// frame, then drive the router's send scheduling and ACK timeouts.
// Must be called frequently and must never be called re-entrantly from
// within an upcall it triggers.
func (m *Mesh) Loop() {
	if m.radio.HasFrame() {
		if frame, rssi, err := m.radio.RecvFrame(); err == nil {
			_ = m.Dispatcher.HandleFrame(frame, rssi)
		}
	}
	m.Router.Tick()
}

// SendFlood is a convenience wrapper for composing and flooding a
// packet in one call: allocates from the pool, seals plaintext under
// key, and hands it to the router. delayMillis is forwarded to
// Router.SendFlood unchanged; 0 means as soon as the airtime budget
// allows. attempt is stamped on the packet before sealing, so a
// deliberate retry (attempt > 0) of the same logical message gets a
// fresh nonce and a different resulting packet hash; plain sends pass
// 0.
func (m *Mesh) SendFlood(ptype PayloadType, senderHash byte, timestamp uint32, key [crypto.SharedSecretSize]byte, plaintext []byte, delayMillis uint32, attempt uint8) (*Packet, error) {
	pkt, err := m.Pool.Alloc()
	if err != nil {
		return nil, err
	}
	pkt.Type = ptype
	pkt.SenderHash = senderHash
	pkt.Timestamp = timestamp
	pkt.Attempt = attempt
	if err := Seal(pkt, key, plaintext); err != nil {
		m.Pool.Free(pkt)
		return nil, err
	}
	m.Router.SendFlood(pkt, delayMillis)
	return pkt, nil
}

// SendDirect is SendFlood's source-routed counterpart.
func (m *Mesh) SendDirect(ptype PayloadType, senderHash byte, timestamp uint32, key [crypto.SharedSecretSize]byte, plaintext []byte, outPath []byte, delayMillis uint32, attempt uint8) (*Packet, error) {
	pkt, err := m.Pool.Alloc()
	if err != nil {
		return nil, err
	}
	pkt.Type = ptype
	pkt.SenderHash = senderHash
	pkt.Timestamp = timestamp
	pkt.Attempt = attempt
	if err := Seal(pkt, key, plaintext); err != nil {
		m.Pool.Free(pkt)
		return nil, err
	}
	if err := m.Router.SendDirect(pkt, outPath, delayMillis); err != nil {
		m.Pool.Free(pkt)
		return nil, err
	}
	return pkt, nil
}

// SendAdvert floods a signed, unencrypted advertisement, delayed by
// delayMillis (the reference firmware uses 800ms for a self-injected
// advert, to separate it from whatever frame preceded it).
func (m *Mesh) SendAdvert(timestamp uint32, appData []byte, delayMillis uint32) (*Packet, error) {
	signed := advert.SignedBytes(m.Identity.PublicKey(), timestamp, appData)
	sig := m.Identity.Sign(signed)
	payload := advert.Encode(m.Identity.PublicKey(), timestamp, appData, sig)

	pkt, err := m.Pool.Alloc()
	if err != nil {
		return nil, err
	}
	pkt.Type = PayloadAdvert
	pkt.SenderHash = m.Identity.HashID()
	pkt.Timestamp = timestamp
	if err := pkt.SetPayload(payload); err != nil {
		m.Pool.Free(pkt)
		return nil, err
	}
	m.Router.SendFlood(pkt, delayMillis)
	return pkt, nil
}
