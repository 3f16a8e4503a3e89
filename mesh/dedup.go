package mesh

import (
	"github.com/NyanHelsing/MeshCore/core/clock"
	"github.com/NyanHelsing/MeshCore/core/queue"
)

// DedupWindowMillis is how long a packet hash is remembered before it
// is allowed to be seen again: a bounded sliding window of
// recently-seen packet hashes, expired by TTL rather than evicted
// strictly by insertion order.
const DedupWindowMillis = 60_000

// Dedup is the bounded, TTL-expiring set of recently-seen packet
// hashes the router consults before forwarding or handling any
// packet: the same packet hash seen twice within the window is
// suppressed the second time.
//
// Grounded on core/queue.PriorityQueue (copied verbatim from the
// reference codebase): using a min-heap keyed by expiry time gives
// O(log n) eviction of the single stalest entry instead of a linear
// scan over a slice on every insert, which matters here because
// Contains/Insert run on every received packet.
type Dedup struct {
	clock clock.MillisClock
	seen  map[[PacketHashSize]byte]struct{}
	order *queue.PriorityQueue // Entry.Value is [PacketHashSize]byte, Priority is expiry millis
	cap   int
}

// NewDedup returns a Dedup set bounded to at most capacity entries,
// regardless of TTL, so a burst of traffic cannot grow it unboundedly
// between calls to Prune.
func NewDedup(c clock.MillisClock, capacity int) *Dedup {
	return &Dedup{
		clock: c,
		seen:  make(map[[PacketHashSize]byte]struct{}, capacity),
		order: queue.New(),
		cap:   capacity,
	}
}

// Seen reports whether hash was inserted within the last
// DedupWindowMillis, pruning expired entries first.
func (d *Dedup) Seen(hash [PacketHashSize]byte) bool {
	d.prune()
	_, ok := d.seen[hash]
	return ok
}

// Insert records hash as seen, evicting the stalest entry first if
// the set is already at capacity. Returns false without inserting if
// hash is already present: a second arrival is a no-op, not a
// refreshed TTL.
func (d *Dedup) Insert(hash [PacketHashSize]byte) bool {
	d.prune()
	if _, ok := d.seen[hash]; ok {
		return false
	}
	if len(d.seen) >= d.cap {
		d.evictOldest()
	}
	d.seen[hash] = struct{}{}
	d.order.Enqueue(uint64(clock.FutureMillis(d.clock, DedupWindowMillis)), hash)
	return true
}

// Len returns the number of currently-live entries.
func (d *Dedup) Len() int {
	return len(d.seen)
}

func (d *Dedup) prune() {
	now := uint64(d.clock.Millis())
	for {
		e := d.order.Peek()
		if e == nil {
			return
		}
		// uint32 millis wraps every ~49 days; a priority that looks
		// far in the future compared to now is actually already past
		// the wrap, so treat the comparison the same wraparound-safe
		// way clock.HasPassed does rather than as a plain uint64 compare.
		if int32(uint32(now)-uint32(e.Priority)) < 0 {
			return
		}
		d.order.DequeueIndex(0)
		delete(d.seen, e.Value.([PacketHashSize]byte))
	}
}

func (d *Dedup) evictOldest() {
	e := d.order.DequeueIndex(0)
	if e == nil {
		return
	}
	delete(d.seen, e.Value.([PacketHashSize]byte))
}
