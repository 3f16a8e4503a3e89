package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ ms uint32 }

func (c *fakeClock) Millis() uint32 { return c.ms }

func TestDedupSuppressesSecondArrival(t *testing.T) {
	clk := &fakeClock{}
	d := NewDedup(clk, 8)

	var h [PacketHashSize]byte
	h[0] = 7

	assert.False(t, d.Seen(h))
	assert.True(t, d.Insert(h))
	assert.True(t, d.Seen(h))
	assert.False(t, d.Insert(h), "second insert of the same hash is a no-op")
}

func TestDedupExpiresByTTL(t *testing.T) {
	clk := &fakeClock{}
	d := NewDedup(clk, 8)

	var h [PacketHashSize]byte
	h[0] = 1
	d.Insert(h)

	clk.ms += DedupWindowMillis + 1
	assert.False(t, d.Seen(h), "entry should have expired after the dedup window")
}

func TestDedupEvictsOldestWhenFull(t *testing.T) {
	clk := &fakeClock{}
	d := NewDedup(clk, 2)

	var h1, h2, h3 [PacketHashSize]byte
	h1[0], h2[0], h3[0] = 1, 2, 3

	d.Insert(h1)
	clk.ms++
	d.Insert(h2)
	clk.ms++
	d.Insert(h3) // evicts h1, the stalest

	assert.False(t, d.Seen(h1))
	assert.True(t, d.Seen(h2))
	assert.True(t, d.Seen(h3))
	assert.Equal(t, 2, d.Len())
}
