package warming

import (
	"math/rand"
	"sync"
)

// Random is the source of randomness used by the engine and resolver.
type Random interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedRand serializes access to a math/rand source shared by every
// tenant's cycle goroutine.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func NewRandom(seed int64) Random {
	return &lockedRand{src: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.src.Shuffle(n, swap)
}
