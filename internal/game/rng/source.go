// Package rng provides the random number source abstraction used by the
// combat resolver and world simulator. All randomness in the engine flows
// through a Source so tests can pin outcomes deterministically.
package rng

import (
	"crypto/rand"
	"math/big"
)

// Source produces random values. Implementations must be safe to call from
// the single goroutine that owns the world state; they need not be safe for
// concurrent use.
type Source interface {
	// Intn returns a random int in [0, n). Panics if n <= 0.
	Intn(n int) int
	// Float64 returns a random float64 in [0, 1).
	Float64() float64
}

// float64Resolution is the denominator used to derive Float64 from Intn.
const float64Resolution = 1 << 30

// cryptoSource implements Source using crypto/rand.
//
// Invariant: all values are uniformly distributed in their documented range.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "rng: Intn called with n <= 0" if n <= 0.
// Panics with "rng: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("rng: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Float64 returns a cryptographically secure random float64 in [0, 1).
func (c *cryptoSource) Float64() float64 {
	return float64(c.Intn(float64Resolution)) / float64(float64Resolution)
}

// Chance rolls a percentage check against src.
//
// Precondition: src must be non-nil.
// Postcondition: Returns true with probability pct/100; pct <= 0 never
// succeeds, pct >= 100 always succeeds.
func Chance(src Source, pct float64) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return src.Float64()*100 < pct
}

// Between returns a uniform random int in [min, max].
//
// Precondition: src must be non-nil. If max < min the bounds are swapped.
// Postcondition: Returns a value v with min <= v <= max.
func Between(src Source, min, max int) int {
	if max < min {
		min, max = max, min
	}
	if min == max {
		return min
	}
	return min + src.Intn(max-min+1)
}

// Variance scales value by a uniform random factor in [1-spread, 1+spread]
// and floors the result at 1 when value is positive.
//
// Precondition: src must be non-nil; spread must be in [0, 1).
// Postcondition: Returns >= 1 when value >= 1.
func Variance(src Source, value int, spread float64) int {
	if value <= 0 {
		return value
	}
	factor := 1 - spread + src.Float64()*2*spread
	out := int(float64(value) * factor)
	if out < 1 {
		out = 1
	}
	return out
}
