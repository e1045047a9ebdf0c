package stats

import (
	"math"
	"math/rand/v2"
)

// NewRand returns a seeded PCG stream. Each simulation or calibration run owns
// its own stream; streams must not be shared across goroutines.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Exponential draws a waiting time with the given rate by inverse transform.
func Exponential(r *rand.Rand, rate float64) float64 {
	return -math.Log(1-r.Float64()) / rate
}
