package world

import (
	"sync/atomic"

	"github.com/l1jgo/tickserver/internal/core/arena"
)

// Ship is owned by the World. It owns its engines; the engine registry only
// borrows them.
type Ship struct {
	Handle  arena.Handle
	Name    string
	Pos     Vec2
	Vel     Vec2
	Mass    float64 // kg
	Engines []*Engine
	Lost    bool // left the simulated volume, destruction queued
}

// Engine applies thrust to its ship while burning. Impulse is accumulated by
// the thrust stage and consumed by the motion stage of the same tick.
type Engine struct {
	Handle     arena.Handle
	Ship       arena.Handle
	Thrust     float64 // newtons
	Dir        Vec2    // unit vector, ship frame == world frame
	Fuel       float64 // seconds of burn left
	Burning    bool
	BurnLeftUs int64
	Impulse    Vec2 // N·s gathered this tick

	// Pulses more burns of PulseUs follow the current one, each relit one
	// tick after the previous burn ends.
	Pulses  int
	PulseUs int64

	lastBurnTick atomic.Uint64
}

// ClaimBurn marks the engine as processed for tick and reports whether this
// is the first claim. A stale busy-set entry left behind by a destroyed
// engine can alias a new engine at the same index; the second claim loses.
func (e *Engine) ClaimBurn(tick uint64) bool {
	return e.lastBurnTick.Swap(tick) != tick
}

// Asteroid drifts ballistically.
type Asteroid struct {
	Handle arena.Handle
	Pos    Vec2
	Vel    Vec2
	Radius float64
}
