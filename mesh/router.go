package mesh

import (
	mrand "math/rand"

	"github.com/NyanHelsing/MeshCore/core/clock"
	meshrand "github.com/NyanHelsing/MeshCore/core/rand"
	"github.com/NyanHelsing/MeshCore/core/queue"
	"github.com/NyanHelsing/MeshCore/internal/instrument"
)

// Airtime timeout multipliers for ACK waits: wait k_flood/k_direct
// times the estimated on-air time before giving up. Flood waits
// longer since the reply may itself need several hops and
// a randomized backoff at each one; direct is a single hop each way.
const (
	kFloodTimeoutFactor  = 6.0
	kDirectTimeoutFactor = 3.0
)

// Backoff parameters for flood retransmission jitter, in
// milliseconds.
const (
	floodBackoffBaseMillis   = 100
	floodBackoffSpreadMillis = 400
)

type txEntry struct {
	pkt *Packet
}

type pendingAck struct {
	pkt      *Packet
	deadline uint32
}

// AckWaitKey is the 4-byte message-level ack hash a pending send is
// keyed on, matching the normative wire ACK payload computed by
// ComputeAckHash.
type AckWaitKey = [AckHashSize]byte

// Router owns outbound scheduling, airtime budgeting, and ACK-wait
// bookkeeping. It knows nothing about payload semantics — Dispatcher
// and MeshApp own those — only how to get
// packets on and off the air within the node's airtime budget.
type Router struct {
	radio Radio
	pool  *Pool
	clk   clock.MillisClock
	rng   *mrand.Rand

	txQueue *queue.PriorityQueue // Entry.Value is *Packet, Priority is earliest-send millis

	pendingAcks map[AckWaitKey]*pendingAck

	startMillis     uint32
	totalAirTimeMs  uint64
	budgetFactor    func() float64
	onSendTimeout   func(*Packet)

	nSentFlood, nSentDirect uint32
	nRecvFlood, nRecvDirect uint32

	metrics *instrument.Metrics
}

// SetMetrics attaches m as the destination for send/receive counters;
// nil (the default) disables counting without affecting behavior.
func (r *Router) SetMetrics(m *instrument.Metrics) { r.metrics = m }

// NewRouter returns a Router transmitting through radio, allocating
// packets from pool, timed by clk. budgetFactor and onSendTimeout are
// supplied by Mesh from the MeshApp's GetAirtimeBudgetFactor and
// OnSendTimeout.
func NewRouter(radio Radio, pool *Pool, clk clock.MillisClock, budgetFactor func() float64, onSendTimeout func(*Packet)) *Router {
	return &Router{
		radio:         radio,
		pool:          pool,
		clk:           clk,
		rng:           meshrand.New(),
		txQueue:       queue.New(),
		pendingAcks:   make(map[AckWaitKey]*pendingAck),
		startMillis:   clk.Millis(),
		budgetFactor:  budgetFactor,
		onSendTimeout: onSendTimeout,
	}
}

// SendFlood queues pkt for undirected flood transmission with an empty
// path, due no earlier than delayMillis from now. A self-generated
// advert or CLI reply passes a non-zero delayMillis to separate its
// transmission from whatever frame it is riding behind; a plain 0
// means as soon as the airtime budget allows. Ownership of pkt passes
// to the router: callers must not touch it again until it is freed,
// either by the router after transmission or via WaitForAck's eventual
// timeout.
func (r *Router) SendFlood(pkt *Packet, delayMillis uint32) {
	pkt.Route = RouteFlood
	pkt.PathLen = 0
	r.enqueue(pkt, clock.FutureMillis(r.clk, delayMillis))
}

// SendDirect queues pkt for source-routed transmission along outPath,
// due no earlier than delayMillis from now.
func (r *Router) SendDirect(pkt *Packet, outPath []byte, delayMillis uint32) error {
	if err := pkt.SetPath(outPath); err != nil {
		return err
	}
	pkt.Route = RouteDirect
	r.enqueue(pkt, clock.FutureMillis(r.clk, delayMillis))
	return nil
}

// ScheduleRetransmit re-queues a flood packet already known to another
// node, after a randomized RSSI-derived backoff: weaker reception
// implies a longer wait, so a node with a stronger copy of the same
// packet gets first chance to retransmit and the loser's copy is
// suppressed by the other end's dedup set.
func (r *Router) ScheduleRetransmit(pkt *Packet, rssiDBm int16) {
	delay := meshrand.RSSIBackoffMillis(r.rng, rssiDBm, floodBackoffBaseMillis, floodBackoffSpreadMillis)
	r.enqueue(pkt, clock.FutureMillis(r.clk, delay))
}

func (r *Router) enqueue(pkt *Packet, dueMillis uint32) {
	r.txQueue.Enqueue(uint64(dueMillis), pkt)
}

// WaitForAck registers pkt as awaiting the ACK identified by ackHash,
// timing out after k*airtime_est milliseconds. k is kFloodTimeoutFactor
// for a flooded packet and kDirectTimeoutFactor otherwise. ackHash is
// the 4-byte message-level hash the recipient is expected to echo back
// (see ComputeAckHash), computed by the caller before the message is
// even sent.
func (r *Router) WaitForAck(pkt *Packet, ackHash AckWaitKey) {
	k := kDirectTimeoutFactor
	if pkt.IsRouteFlood() {
		k = kFloodTimeoutFactor
	}
	airtime := r.radio.EstimateAirtimeMillis(len(EncodeFrame(pkt)))
	timeout := uint32(float64(airtime) * k)
	if timeout == 0 {
		timeout = 1
	}
	pkt.awaitingAck = true
	r.pendingAcks[ackHash] = &pendingAck{
		pkt:      pkt,
		deadline: clock.FutureMillis(r.clk, timeout),
	}
}

// MatchAck reports whether ackHash corresponds to a send currently
// awaiting an ACK; if so, that send's wait is cancelled and its pool
// slot freed. This is the counterpart to markDoNotRetransmit /
// processAck in the reference codebase's BaseChatMesh.cpp.
func (r *Router) MatchAck(ackHash AckWaitKey) bool {
	pending, ok := r.pendingAcks[ackHash]
	if !ok {
		return false
	}
	delete(r.pendingAcks, ackHash)
	pending.pkt.awaitingAck = false
	r.pool.Free(pending.pkt)
	return true
}

// Tick drives outbound scheduling and ACK timeouts. It must be called
// from Mesh.Loop every iteration and must never block.
func (r *Router) Tick() {
	r.checkAckTimeouts()
	r.trySend()
}

func (r *Router) checkAckTimeouts() {
	now := r.clk.Millis()
	for hash, pending := range r.pendingAcks {
		if int32(now-pending.deadline) < 0 {
			continue
		}
		delete(r.pendingAcks, hash)
		pending.pkt.awaitingAck = false
		if r.onSendTimeout != nil {
			r.onSendTimeout(pending.pkt)
		}
		r.pool.Free(pending.pkt)
	}
}

func (r *Router) trySend() {
	entry := r.txQueue.Peek()
	if entry == nil {
		return
	}
	now := r.clk.Millis()
	if int32(now-uint32(entry.Priority)) < 0 {
		return // not yet due
	}
	if !r.withinBudget() {
		return // leave it queued; try again next tick
	}

	r.txQueue.DequeueIndex(0)
	pkt := entry.Value.(*Packet)
	frame := EncodeFrame(pkt)
	airtime, err := r.radio.SendFrame(frame)
	if err != nil {
		r.pool.Free(pkt)
		return
	}
	r.totalAirTimeMs += uint64(airtime)
	if pkt.IsRouteFlood() {
		r.nSentFlood++
		if r.metrics != nil {
			r.metrics.PacketsSent.WithLabelValues("flood").Inc()
		}
	} else {
		r.nSentDirect++
		if r.metrics != nil {
			r.metrics.PacketsSent.WithLabelValues("direct").Inc()
		}
	}
	if !pkt.awaitingAck {
		r.pool.Free(pkt)
	}
}

func (r *Router) withinBudget() bool {
	factor := 1.0
	if r.budgetFactor != nil {
		factor = r.budgetFactor()
	}
	uptime := r.clk.Millis() - r.startMillis
	if uptime == 0 {
		return true
	}
	return float64(r.totalAirTimeMs)/float64(uptime) <= factor
}

// TotalAirTimeMillis returns the router's cumulative on-air time, for
// RepeaterStats.TotalAirTimeSecs.
func (r *Router) TotalAirTimeMillis() uint64 { return r.totalAirTimeMs }

// QueueLen returns the number of packets waiting to be sent.
func (r *Router) QueueLen() int { return r.txQueue.Len() }

// Counters returns the router's send/receive tallies, for
// RepeaterStats.
func (r *Router) Counters() (sentFlood, sentDirect, recvFlood, recvDirect uint32) {
	return r.nSentFlood, r.nSentDirect, r.nRecvFlood, r.nRecvDirect
}

// NoteReceived tallies an inbound packet by route mode; called by the
// dispatcher once a frame has been decoded off the radio.
func (r *Router) NoteReceived(route RouteMode) {
	if route == RouteFlood {
		r.nRecvFlood++
		if r.metrics != nil {
			r.metrics.PacketsRecv.WithLabelValues("flood").Inc()
		}
	} else {
		r.nRecvDirect++
		if r.metrics != nil {
			r.metrics.PacketsRecv.WithLabelValues("direct").Inc()
		}
	}
}
