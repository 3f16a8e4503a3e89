package mesh

// MemoryMedium is a simulated shared radio medium connecting any
// number of MemoryRadio instances, for exercising multi-node flood and
// direct routing behavior in tests without real hardware. Every
// SendFrame on one radio is delivered to every other radio registered
// on the same medium, at an RSSI reported by RSSIFunc (constant by
// default, settable per pair for topology tests such as a 3-node
// line where the ends cannot hear each other directly).
type MemoryMedium struct {
	radios  []*MemoryRadio
	RSSIFunc func(from, to *MemoryRadio) int16
	// Reachable, if set, gates delivery: Reachable(from, to) == false
	// drops the frame entirely, modeling nodes out of range rather
	// than merely weak (RSSIFunc alone cannot express "never heard").
	Reachable func(from, to *MemoryRadio) bool
}

// NewMemoryMedium returns an empty shared medium with a constant
// -60dBm link quality between every pair of radios.
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{
		RSSIFunc: func(_, _ *MemoryRadio) int16 { return -60 },
	}
}

// NewRadio registers and returns a new radio on the medium.
// bitrateBps is used only to convert frame length into a simulated
// airtime, matching LoRa's throughput-vs-airtime tradeoff without
// modeling the modem itself.
func (m *MemoryMedium) NewRadio(name string, bitrateBps int) *MemoryRadio {
	r := &MemoryRadio{
		Name:       name,
		medium:     m,
		bitrateBps: bitrateBps,
	}
	m.radios = append(m.radios, r)
	return r
}

type memoryFrame struct {
	data    []byte
	rssiDBm int16
}

// MemoryRadio is a Radio backed by MemoryMedium.
type MemoryRadio struct {
	Name       string
	medium     *MemoryMedium
	bitrateBps int
	inbox      []memoryFrame
}

func (r *MemoryRadio) HasFrame() bool {
	return len(r.inbox) > 0
}

func (r *MemoryRadio) RecvFrame() ([]byte, int16, error) {
	if len(r.inbox) == 0 {
		return nil, 0, errNoFrame
	}
	f := r.inbox[0]
	r.inbox = r.inbox[1:]
	return f.data, f.rssiDBm, nil
}

func (r *MemoryRadio) SendFrame(frame []byte) (uint32, error) {
	for _, other := range r.medium.radios {
		if other == r {
			continue
		}
		if r.medium.Reachable != nil && !r.medium.Reachable(r, other) {
			continue
		}
		cp := make([]byte, len(frame))
		copy(cp, frame)
		rssi := r.medium.RSSIFunc(r, other)
		other.inbox = append(other.inbox, memoryFrame{data: cp, rssiDBm: rssi})
	}
	return r.EstimateAirtimeMillis(len(frame)), nil
}

func (r *MemoryRadio) EstimateAirtimeMillis(frameLen int) uint32 {
	if r.bitrateBps <= 0 {
		return 0
	}
	return uint32(frameLen) * 8 * 1000 / uint32(r.bitrateBps)
}

var errNoFrame = radioError("mesh: no frame available")

type radioError string

func (e radioError) Error() string { return string(e) }
