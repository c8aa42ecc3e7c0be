package barrier

import "sync"

// Barrier is a cyclic rendezvous for a fixed number of parties. Every
// generation releases exactly when the last of its parties arrives, after
// which the barrier is immediately reusable for the next round.
//
// There is no timeout: a party that never arrives blocks the rest forever.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	arrived    int
	generation uint64
}

func New(parties int) *Barrier {
	if parties < 1 {
		panic("barrier: parties must be positive")
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until all parties of the current generation have arrived and
// returns the generation that just completed.
func (b *Barrier) Wait() uint64 {
	b.mu.Lock()
	gen := b.generation
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		b.mu.Unlock()
		return gen
	}
	for gen == b.generation {
		b.cond.Wait()
	}
	b.mu.Unlock()
	return gen
}

func (b *Barrier) Parties() int { return b.parties }

// Generation returns the number of completed rounds.
func (b *Barrier) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}
