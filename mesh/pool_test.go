package mesh

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NyanHelsing/MeshCore/internal/instrument"
)

func TestPoolAllocFree(t *testing.T) {
	p := NewPool(2)
	assert.Equal(t, 2, p.FreeCount())

	a, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, 1, p.FreeCount())

	b, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, 0, p.FreeCount())

	_, err = p.Alloc()
	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.EqualValues(t, 1, p.FullEvents())

	p.Free(a)
	assert.Equal(t, 1, p.FreeCount())
	p.Free(b)
	assert.Equal(t, 2, p.FreeCount())
}

func TestPoolAllocReturnsZeroedPacket(t *testing.T) {
	p := NewPool(1)
	a, err := p.Alloc()
	require.NoError(t, err)
	require.NoError(t, a.SetPayload([]byte("dirty")))
	a.PathLen = 3
	p.Free(a)

	b, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, 0, b.PayloadLen)
	assert.Equal(t, 0, b.PathLen)
}

func TestPoolDoubleFreePanics(t *testing.T) {
	p := NewPool(1)
	a, err := p.Alloc()
	require.NoError(t, err)
	p.Free(a)
	assert.Panics(t, func() { p.Free(a) })
}

func TestPoolExhaustionIncrementsMetric(t *testing.T) {
	m := instrument.New()
	p := NewPool(1)
	p.SetMetrics(m)

	_, err := p.Alloc()
	require.NoError(t, err)
	_, err = p.Alloc()
	assert.ErrorIs(t, err, ErrPoolExhausted)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PoolFullEvents))
}
