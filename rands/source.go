package rands

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"strings"
)

// Source is the random stream one generation call draws from.
// Implementations are not required to be safe for concurrent use.
type Source interface {
	// Int returns a uniform integer in [min, max].
	Int(min, max int64) int64
	// Float returns a uniform float in [min, max).
	Float(min, max float64) float64
	// Choose returns a uniform index in [0, n).
	Choose(n int) int
}

type Rand struct {
	r *rand.Rand
}

var _ Source = new(Rand)

func New(seed uint64) *Rand {
	return &Rand{
		r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// FromString derives a stable seed from parts, so the same parts always
// yield the same stream.
func FromString(parts ...string) *Rand {
	return New(DeriveSeed(parts...))
}

// Random returns a source seeded from the runtime's entropy.
func Random() *Rand {
	return New(rand.Uint64())
}

func DeriveSeed(parts ...string) uint64 {
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return binary.LittleEndian.Uint64(h[:8])
}

func (r *Rand) Int(min, max int64) int64 {
	if max < min {
		min, max = max, min
	}
	span := uint64(max - min)
	if span == ^uint64(0) {
		return int64(r.r.Uint64())
	}
	return min + int64(r.r.Uint64N(span+1))
}

func (r *Rand) Float(min, max float64) float64 {
	if max < min {
		min, max = max, min
	}
	return min + r.r.Float64()*(max-min)
}

func (r *Rand) Choose(n int) int {
	if n <= 0 {
		return 0
	}
	return r.r.IntN(n)
}
