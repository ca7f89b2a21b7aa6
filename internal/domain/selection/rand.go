package selection

import (
	"math/rand/v2"
	"sync"
)

// Rand is the random source used by the selector. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type runtimeRand struct{}

func (runtimeRand) Float64() float64 { return rand.Float64() }
func (runtimeRand) IntN(n int) int   { return rand.IntN(n) }

// RuntimeRand returns the process-wide generator of math/rand/v2, which is
// randomly seeded and safe for concurrent use.
func RuntimeRand() Rand {
	return runtimeRand{}
}

// Seeded returns a deterministic generator for reproducible draws.
func Seeded(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type lockedRand struct {
	mu  sync.Mutex
	rng Rand
}

// Locked serializes access to r.
func Locked(r Rand) Rand {
	if _, ok := r.(runtimeRand); ok {
		return r
	}
	if l, ok := r.(*lockedRand); ok {
		return l
	}
	return &lockedRand{rng: r}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}
