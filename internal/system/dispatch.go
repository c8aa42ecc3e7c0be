package system

import (
	"github.com/l1jgo/tickserver/internal/core/conveyor"
	"github.com/l1jgo/tickserver/internal/core/event"
	"github.com/l1jgo/tickserver/internal/world"
	"go.uber.org/zap"
)

// DispatchUnit delivers last tick's events at the head of the chain, on the
// master, where handlers may mutate registries and busy-sets freely.
type DispatchUnit struct {
	world      *world.State
	log        *zap.Logger
	dispatched uint64
}

func NewDispatchUnit(ws *world.State, log *zap.Logger) *DispatchUnit {
	u := &DispatchUnit{world: ws, log: log}
	event.Subscribe(ws.Bus, u.onEngineIgnited)
	event.Subscribe(ws.Bus, u.onShipLost)
	return u
}

func (u *DispatchUnit) Name() string      { return "dispatch" }
func (u *DispatchUnit) Phase() Phase      { return PhasePreUpdate }
func (u *DispatchUnit) StageCount() int   { return 1 }
func (u *DispatchUnit) CooldownUs() int64 { return 0 }

func (u *DispatchUnit) PrepareStage(_ int, _ conveyor.Tick) bool {
	if n := u.world.Bus.SwapBuffers(); n > 0 {
		u.world.Bus.DispatchAll()
		u.dispatched += uint64(n)
	}
	return false
}

func (u *DispatchUnit) ExecuteStage(int, int64) {}

// Dispatched returns the number of events delivered so far.
func (u *DispatchUnit) Dispatched() uint64 { return u.dispatched }

func (u *DispatchUnit) onEngineIgnited(ev event.EngineIgnited) {
	if !u.world.Ignite(ev.Engine, ev.BurnUs) {
		u.log.Debug("ignition ignored", zap.Stringer("engine", ev.Engine))
	}
}

func (u *DispatchUnit) onShipLost(ev event.ShipLost) {
	u.world.MarkForDestruction(world.KindShip, ev.Ship)
}
