package system

import (
	"github.com/l1jgo/tickserver/internal/core/conveyor"
	"github.com/l1jgo/tickserver/internal/scripting"
	"github.com/l1jgo/tickserver/internal/world"
)

// ScriptUnit hands the tick to Lua's on_tick at most once per cooldown.
// Scripts run on the master inside PrepareStage, so the API they see may
// mutate the world directly.
type ScriptUnit struct {
	conveyor.Cooldown
	engine *scripting.Engine
	calls  uint64
}

func NewScriptUnit(engine *scripting.Engine, cooldownUs int64) *ScriptUnit {
	return &ScriptUnit{Cooldown: conveyor.NewCooldown(cooldownUs), engine: engine}
}

func (u *ScriptUnit) Name() string    { return "script" }
func (u *ScriptUnit) Phase() Phase    { return PhaseScript }
func (u *ScriptUnit) StageCount() int { return 1 }

func (u *ScriptUnit) PrepareStage(_ int, tick conveyor.Tick) bool {
	if !u.Ready(tick.NowUs) {
		return false
	}
	u.engine.OnTick(tick.Number, tick.NowUs)
	u.calls++
	return false
}

func (u *ScriptUnit) ExecuteStage(int, int64) {}

func (u *ScriptUnit) Calls() uint64 { return u.calls }

// ScriptAPI adapts world state to the scripting API.
type ScriptAPI struct {
	World *world.State
}

func (a ScriptAPI) Ignite(engineIndex int, burnMs int64) bool {
	h, ok := a.World.Engines.HandleAt(engineIndex)
	if !ok {
		return false
	}
	return a.World.Ignite(h, burnMs*1000)
}

func (a ScriptAPI) ShipCount() int   { return a.World.ShipCount() }
func (a ScriptAPI) EngineCount() int { return a.World.EngineCount() }
