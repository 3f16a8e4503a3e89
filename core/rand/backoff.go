// Package rand provides the randomized-delay sampling the router uses
// to spread out flood retransmissions: a small randomized back-off
// derived from RSSI, where a weaker signal means a longer delay.
//
// Exp/ExpQuantile are ported from the reference codebase's
// core/crypto/rand.Exp/ExpQuantile. That package additionally wraps a
// chacha20-keyed math/rand.Source so the generator itself is
// CSPRNG-grade; this node does not carry that over (see DESIGN.md) —
// jitter timing has no cryptographic exposure, so a math/rand.Rand
// seeded once from crypto/rand is sufficient.
package rand

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand"
)

// New returns a math/rand.Rand seeded from the OS CSPRNG. Each router
// gets its own instance; there is no shared global state to guard.
func New() *mrand.Rand {
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// crypto/rand failing is a boot-time fatal condition elsewhere;
		// here we only need scheduling jitter, so fall back to a
		// time-derived seed rather than panicking.
		return mrand.New(mrand.NewSource(0x5f3759df))
	}
	return mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))
}

// Exp returns a random sample from the exponential distribution
// characterized by lambda (inverse of the mean).
func Exp(r *mrand.Rand, lambda float64) float64 {
	if lambda < math.SmallestNonzeroFloat64 {
		panic("rand: lambda out of range")
	}
	return r.ExpFloat64() / lambda
}

// ExpQuantile returns the value at which the probability of a random
// value is less than or equal to p for an exponential distribution
// characterized by lambda.
func ExpQuantile(lambda, p float64) float64 {
	if lambda < math.SmallestNonzeroFloat64 {
		panic("rand: lambda out of range")
	}
	if p < math.SmallestNonzeroFloat64 || p >= 1.0 {
		panic("rand: p out of range")
	}
	return -math.Log(1-p) / lambda
}

// RSSIBackoffMillis maps a received signal strength (dBm, more
// negative is weaker) to a randomized retransmission delay in
// milliseconds: nodes closer to the edge of reception (weaker RSSI)
// wait longer on average before re-flooding, so a strong, central node
// hearing the same packet gets first crack at retransmitting it.
//
// rssi is clamped to [minRSSI, maxRSSI] and linearly mapped to a mean
// delay in [baseMillis, baseMillis+spreadMillis], then a single
// exponential sample is drawn around that mean so simultaneous
// listeners don't retransmit in lockstep.
func RSSIBackoffMillis(r *mrand.Rand, rssiDBm int16, baseMillis, spreadMillis uint32) uint32 {
	const minRSSI, maxRSSI = -130.0, -40.0

	f := float64(rssiDBm)
	if f < minRSSI {
		f = minRSSI
	}
	if f > maxRSSI {
		f = maxRSSI
	}
	// weaker (more negative) RSSI -> fraction closer to 1.0 -> longer mean delay.
	frac := (maxRSSI - f) / (maxRSSI - minRSSI)
	mean := float64(baseMillis) + frac*float64(spreadMillis)
	if mean < 1 {
		mean = 1
	}
	lambda := 1.0 / mean
	delay := Exp(r, lambda)
	if delay > float64(baseMillis+spreadMillis)*4 {
		delay = float64(baseMillis+spreadMillis) * 4
	}
	return uint32(delay)
}
