package clock

import "time"

// RTCClock is the node's wall-clock abstraction: UTC seconds since the
// Unix epoch, settable by the `clock sync` admin command. Grounded on
// src/helpers/ESP32Board.h's ESP32RTCClock.
type RTCClock interface {
	// CurrentTime returns the current time as UTC seconds since epoch.
	CurrentTime() uint32
	// SetCurrentTime sets the wall clock. Callers are responsible for
	// the monotonicity check (clock cannot go backwards); the clock
	// itself just stores whatever it's told.
	SetCurrentTime(t uint32)
}

// SystemRTC is an RTCClock backed by an in-process offset from the OS
// wall clock, adjustable by SetCurrentTime without touching the host's
// actual system clock (a mesh node does not own the device it runs on
// in the general case, and adjusting host time as a side effect of an
// admin command would be a surprising, hard-to-reverse action).
type SystemRTC struct {
	offset int64 // seconds to add to time.Now().Unix()
}

// NewSystemRTC returns an RTCClock seeded from the host's wall clock.
// If the host clock reads before seedIfBefore (the firmware's
// cold-boot-with-no-battery-backed-RTC workaround, ESP32RTCClock::
// begin seeding a fixed recent date), the clock is seeded to
// seedIfBefore instead, matching the original's known-firmware quirk
// rather than trusting a battery-less device's clock at zero.
func NewSystemRTC(seedIfBefore uint32) *SystemRTC {
	now := uint32(time.Now().Unix())
	c := &SystemRTC{}
	if now < seedIfBefore {
		c.offset = int64(seedIfBefore) - time.Now().Unix()
	}
	return c
}

// CurrentTime returns the current UTC seconds since epoch.
func (c *SystemRTC) CurrentTime() uint32 {
	return uint32(time.Now().Unix() + c.offset)
}

// SetCurrentTime adjusts the clock's offset so CurrentTime() reports t
// from now on.
func (c *SystemRTC) SetCurrentTime(t uint32) {
	c.offset = int64(t) - time.Now().Unix()
}
