package replay

import (
	"math/rand/v2"
	"sync"
)

// RNG is a seeded, process-stable random source. The same seed yields
// the same sequence on every platform.
type RNG struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewRNG returns a PCG-backed source seeded from one value.
func NewRNG(seed uint64) *RNG {
	return &RNG{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns the next value in [0,1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

// IntN returns the next value in [0,n).
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.IntN(n)
}

// Shuffle permutes the n elements deterministically.
func (r *RNG) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.src.Shuffle(n, swap)
}
