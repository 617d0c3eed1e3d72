package agent

import (
	"math/rand"
	"time"
)

// Clock supplies time to the executor.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RandomSource supplies jitter in [0, 1).
type RandomSource interface {
	Float64() float64
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// After waits for d on the wall clock.
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RandomFunc adapts a function to RandomSource.
type RandomFunc func() float64

// Float64 calls f.
func (f RandomFunc) Float64() float64 { return f() }

// DefaultRandom uses the global math/rand source, which is safe for
// concurrent use.
var DefaultRandom RandomSource = RandomFunc(rand.Float64)

// Fixed returns a RandomSource that always yields v.
func Fixed(v float64) RandomSource {
	return RandomFunc(func() float64 { return v })
}
