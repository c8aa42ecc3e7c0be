package system

import (
	"github.com/l1jgo/tickserver/internal/core/conveyor"
	"github.com/l1jgo/tickserver/internal/scripting"
	"github.com/l1jgo/tickserver/internal/world"
	"go.uber.org/zap"
)

// ChainOptions configures the standard logic chain.
type ChainOptions struct {
	Script           *scripting.Engine // nil: no script unit
	ScriptCooldownUs int64
	DigestCooldownUs int64
	DigestSink       func(Digest)
	StatsOut         chan<- StatsSnapshot // nil: no stats unit
	StatsCooldownUs  int64
	WorldRadius      float64
	MotionBatch      int
	Extra            []conveyor.LogicUnit // placed by Phase, after built-ins of the same phase
}

// Chain keeps typed references to the units it registered.
type Chain struct {
	Dispatch *DispatchUnit
	Script   *ScriptUnit
	Thrust   *ThrustUnit
	Motion   *MotionUnit
	Digest   *DigestUnit
	Stats    *StatsUnit
	Cleanup  *CleanupUnit
}

// BuildChain registers the world's togglers and the standard units on conv,
// ordered by phase. Must run before conv.Start.
func BuildChain(conv *conveyor.Conveyor, ws *world.State, opts ChainOptions, log *zap.Logger) *Chain {
	for _, t := range ws.Togglers() {
		conv.AddToggler(t)
	}

	c := &Chain{
		Dispatch: NewDispatchUnit(ws, log),
		Thrust:   NewThrustUnit(ws),
		Motion:   NewMotionUnit(ws, opts.WorldRadius, opts.MotionBatch),
		Digest:   NewDigestUnit(ws, opts.DigestCooldownUs, opts.DigestSink, log),
		Cleanup:  NewCleanupUnit(ws, log),
	}
	units := []conveyor.LogicUnit{c.Dispatch, c.Thrust, c.Motion, c.Digest, c.Cleanup}
	if opts.Script != nil {
		c.Script = NewScriptUnit(opts.Script, opts.ScriptCooldownUs)
		units = append(units, c.Script)
	}
	if opts.StatsOut != nil {
		c.Stats = NewStatsUnit(conv, ws, opts.StatsOut, opts.StatsCooldownUs, log)
		units = append(units, c.Stats)
	}
	units = append(units, opts.Extra...)

	sortByPhase(units)
	for _, u := range units {
		conv.AddLogicToChain(u)
		log.Debug("logic unit registered",
			zap.String("unit", conveyor.UnitName(u)),
			zap.Int("phase", int(phaseOf(u))),
			zap.Int("stages", u.StageCount()))
	}
	return c
}
