package system

import (
	"github.com/l1jgo/tickserver/internal/core/conveyor"
	"github.com/l1jgo/tickserver/internal/core/event"
	"github.com/l1jgo/tickserver/internal/world"
)

// ThrustUnit burns every engine in the busy-set. Idle engines never cost a
// scan: they drop out of the set when their burn ends. Engines with pulses
// left ask to be relit through the bus, since the busy-set cannot grow
// while stages run in parallel.
type ThrustUnit struct {
	world *world.State
	tick  uint64
}

func NewThrustUnit(ws *world.State) *ThrustUnit {
	return &ThrustUnit{world: ws}
}

func (u *ThrustUnit) Name() string      { return "thrust" }
func (u *ThrustUnit) Phase() Phase      { return PhaseUpdate }
func (u *ThrustUnit) StageCount() int   { return 1 }
func (u *ThrustUnit) CooldownUs() int64 { return 0 }

func (u *ThrustUnit) PrepareStage(_ int, tick conveyor.Tick) bool {
	u.tick = tick.Number
	u.world.Burning.Begin()
	return u.world.Burning.Len() > 0
}

func (u *ThrustUnit) ExecuteStage(_ int, intervalUs int64) {
	engines := u.world.Engines
	burning := u.world.Burning
	total := engines.TotalInstances()

	for {
		idx, pos, ok := burning.Next()
		if !ok {
			return
		}
		if int(idx) >= total {
			burning.DropIndex(pos) // slot trimmed since the push
			continue
		}
		e := engines.Instance(int(idx))
		if e == nil || !e.ClaimBurn(u.tick) || !e.Burning {
			burning.DropIndex(pos)
			continue
		}
		burn(e, intervalUs)
		if !e.Burning {
			burning.DropIndex(pos)
			u.relight(e)
		}
	}
}

func (u *ThrustUnit) relight(e *world.Engine) {
	if e.Pulses <= 0 || e.Fuel <= 0 {
		return
	}
	e.Pulses--
	event.Emit(u.world.Bus, event.EngineIgnited{Engine: e.Handle, BurnUs: e.PulseUs})
}

// burn applies one interval of thrust and clears Burning when the burn
// window or the tank runs out.
func burn(e *world.Engine, intervalUs int64) {
	us := min(intervalUs, e.BurnLeftUs)
	secs := min(float64(us)/1e6, e.Fuel)

	e.Fuel -= secs
	e.BurnLeftUs -= us
	e.Impulse = e.Impulse.Add(e.Dir.Scale(e.Thrust * secs))

	if e.BurnLeftUs <= 0 || e.Fuel <= 0 {
		e.Burning = false
		e.BurnLeftUs = 0
	}
}
