package conveyor

import "fmt"

// Tick is the master's view of the tick being driven, handed to every
// PrepareStage call.
type Tick struct {
	Number     uint64 // 1 for the first Proceed
	IntervalUs int64  // simulated length of this tick
	NowUs      int64  // simulated time at the end of this tick
}

// LogicUnit is the contract every schedulable subsystem implements.
//
// PrepareStage runs on the master thread alone, once per stage per tick,
// before the stage fans out. Returning false skips the stage: no barrier
// crossing, no ExecuteStage call. It is the place to reset shared cursors
// and to perform structural mutation of registries and busy-sets.
//
// ExecuteStage runs concurrently on every thread of the pool. It must not
// block, panic, or wait on the barrier itself; the conventional body claims
// disjoint slices of a registry or busy-set until none are left.
//
// CooldownUs is advisory. The conveyor never enforces it; units that want
// throttling check it in PrepareStage (see Cooldown).
type LogicUnit interface {
	StageCount() int
	PrepareStage(stage int, tick Tick) bool
	ExecuteStage(stage int, intervalUs int64)
	CooldownUs() int64
}

// Named units report a stable name in logs and stats.
type Named interface {
	Name() string
}

// UnitName returns u's Name, or its dynamic type for units that don't
// implement Named.
func UnitName(u LogicUnit) string {
	if n, ok := u.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", u)
}

// Cooldown is an opt-in throttle a unit embeds to skip ticks until enough
// simulated time has passed since it last ran. Staleness is bounded by the
// cooldown itself. Master thread only.
type Cooldown struct {
	us      int64
	lastRan int64
	ran     bool
}

func NewCooldown(us int64) Cooldown {
	return Cooldown{us: us}
}

func (c *Cooldown) CooldownUs() int64 { return c.us }

// LastRanAt is the simulated time of the last Ready that returned true.
func (c *Cooldown) LastRanAt() int64 { return c.lastRan }

// Ready reports whether the unit should run at nowUs and, if so, records
// nowUs as the last run. The first call is always ready.
func (c *Cooldown) Ready(nowUs int64) bool {
	if c.ran && nowUs-c.lastRan < c.us {
		return false
	}
	c.ran = true
	c.lastRan = nowUs
	return true
}
