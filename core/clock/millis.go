// Package clock provides the two clock abstractions the mesh depends
// on: a monotonic millisecond counter used for scheduling timers
// (earliest-TX, ACK wait, dedup TTL), and a
// wall-clock UTC-seconds RTC used for advert/message timestamps and
// the replay guard.
//
// Grounded conceptually on the reference codebase's core/monotime
// package, but implemented directly on time.Since against a fixed
// start time: Go's time.Since has provided monotonic-clock readings
// since 1.9, which is exactly what core/monotime's
// platform-conditional files existed to work around.
package clock

import "time"

// MillisClock reports elapsed monotonic milliseconds since some fixed
// epoch (not wall-clock time). The router and dedup set only ever
// compare two readings from the same MillisClock, so the epoch is
// arbitrary.
type MillisClock interface {
	Millis() uint32
}

// SystemMillis is a MillisClock backed by the OS monotonic clock.
type SystemMillis struct {
	start time.Time
}

// NewSystemMillis returns a MillisClock whose epoch is "now".
func NewSystemMillis() *SystemMillis {
	return &SystemMillis{start: time.Now()}
}

// Millis returns the elapsed milliseconds since the clock was created.
func (c *SystemMillis) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// FutureMillis is a small helper mirroring the firmware's
// futureMillis(delta) idiom: computes an absolute deadline from a
// relative delay, in the same wraparound-safe uint32 space as Millis.
func FutureMillis(c MillisClock, deltaMillis uint32) uint32 {
	return c.Millis() + deltaMillis
}

// HasPassed reports whether an absolute deadline (as returned by
// FutureMillis) has passed, correctly handling uint32 wraparound the
// same way the firmware's millisHasNowPassed does (a signed
// subtraction is negative once the deadline is in the past, right up
// until the counter itself wraps around after ~49 days).
func HasPassed(c MillisClock, deadline uint32) bool {
	return int32(c.Millis()-deadline) >= 0
}
