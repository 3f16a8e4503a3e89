package mesh

// Radio is the non-blocking transceiver contract Mesh.Loop polls
// every iteration: radio polling is non-blocking, and
// has_frame/recv/send must never block the cooperative loop.
//
// Grounded on the reference firmware's radio driver interface
// (RadioLibWrapper in the original source), narrowed to the four
// operations this module actually needs.
type Radio interface {
	// HasFrame reports whether a received frame is ready to read,
	// without blocking to wait for one.
	HasFrame() bool

	// RecvFrame returns the most recently received frame and its
	// signal strength in dBm. Only valid to call once after HasFrame
	// reports true.
	RecvFrame() (frame []byte, rssiDBm int16, err error)

	// SendFrame transmits frame and returns the on-air time it
	// consumed, in milliseconds, for airtime budgeting. Does not block
	// past the point of handing the frame to the modem for send.
	SendFrame(frame []byte) (airtimeMillis uint32, err error)

	// EstimateAirtimeMillis predicts the on-air time a frame of the
	// given length will take, used to size ACK timeouts before a
	// packet is even sent.
	EstimateAirtimeMillis(frameLen int) uint32
}
