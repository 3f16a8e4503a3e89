package mesh

import (
	"sync"

	"github.com/NyanHelsing/MeshCore/internal/instrument"
)

// Pool is a fixed-capacity slab of Packets with an explicit free-list,
// deliberately not a sync.Pool: sync.Pool's capacity is unbounded and
// GC-driven, and it offers no way to answer "how many times has
// allocation failed because the slab is full" — a full_events counter
// a resource-constrained node needs, since that count is the
// operator's only visibility into sustained overload. The router
// separately tracks which allocated packets are outbound or awaiting a
// flood retransmit window; the pool itself only owns the free/in-use
// boundary.
type Pool struct {
	mu sync.Mutex

	slots []Packet
	free  []int // stack of free slot indices

	fullEvents uint32
	allocCount uint32

	metrics *instrument.Metrics
}

// SetMetrics attaches m as the destination for the pool-full counter;
// nil (the default) disables counting without affecting behavior.
func (p *Pool) SetMetrics(m *instrument.Metrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = m
}

// NewPool returns a Pool with room for capacity packets.
func NewPool(capacity int) *Pool {
	p := &Pool{
		slots: make([]Packet, capacity),
		free:  make([]int, capacity),
	}
	for i := range p.slots {
		p.slots[i].slot = i
		p.free[i] = capacity - 1 - i
	}
	return p
}

// Cap returns the pool's total capacity.
func (p *Pool) Cap() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// FreeCount returns the number of currently-unallocated slots.
func (p *Pool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// FullEvents returns the number of times Alloc has been called against
// an empty free-list since the pool was created, surfaced to the
// operator via RepeaterStats.NFullEvents.
func (p *Pool) FullEvents() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fullEvents
}

// Alloc takes a packet from the free-list, zeroed and ready to use.
// Returns ErrPoolExhausted if no slot is free; the caller is expected
// to drop whatever triggered the allocation rather than block, since
// nothing in this mesh's cooperative scheduling model may block.
func (p *Pool) Alloc() (*Packet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		p.fullEvents++
		if p.metrics != nil {
			p.metrics.PoolFullEvents.Inc()
		}
		return nil, ErrPoolExhausted
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.allocCount++

	slot := &p.slots[idx]
	*slot = Packet{slot: idx}
	return slot, nil
}

// Free returns a packet to the free-list. Freeing a packet not owned
// by this pool, or freeing the same packet twice, is a programming
// error and panics rather than silently corrupting the free-list.
func (p *Pool) Free(pkt *Packet) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pkt.slot < 0 || pkt.slot >= len(p.slots) || &p.slots[pkt.slot] != pkt {
		panic("mesh: Free called with a packet not owned by this pool")
	}
	for _, idx := range p.free {
		if idx == pkt.slot {
			panic("mesh: double free of pool packet")
		}
	}
	p.free = append(p.free, pkt.slot)
}
