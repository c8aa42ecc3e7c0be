package phase

import (
	"fmt"
	"sync/atomic"
)

// Toggler is implemented by shared structures whose layout must stay frozen
// while a stage is fanned out across worker threads.
type Toggler interface {
	EnterParallel()
	LeaveParallel()
}

// Guard tracks exclusive vs parallel-read mode for its owner.
// Structural mutation is only legal in exclusive mode.
type Guard struct {
	parallel atomic.Bool
}

func (g *Guard) EnterParallel() { g.parallel.Store(true) }
func (g *Guard) LeaveParallel() { g.parallel.Store(false) }
func (g *Guard) Parallel() bool { return g.parallel.Load() }

// MustBeExclusive panics if op is attempted during a parallel stage.
func (g *Guard) MustBeExclusive(op string) {
	if g.parallel.Load() {
		panic(fmt.Sprintf("phase: %s during parallel stage", op))
	}
}
