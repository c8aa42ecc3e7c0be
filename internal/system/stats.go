package system

import (
	"github.com/l1jgo/tickserver/internal/core/conveyor"
	"github.com/l1jgo/tickserver/internal/world"
	"go.uber.org/zap"
)

// StatsSnapshot is a point-in-time copy of scheduler and world counters.
type StatsSnapshot struct {
	Tick      uint64
	NowUs     int64
	Ships     int
	Engines   int
	Asteroids int
	Burning   int
	Units     []conveyor.UnitStats
}

// StatsUnit snapshots counters once per cooldown and hands them to a
// background writer without ever blocking the tick.
type StatsUnit struct {
	conveyor.Cooldown
	conv    *conveyor.Conveyor
	world   *world.State
	out     chan<- StatsSnapshot
	log     *zap.Logger
	dropped uint64
}

func NewStatsUnit(conv *conveyor.Conveyor, ws *world.State, out chan<- StatsSnapshot, cooldownUs int64, log *zap.Logger) *StatsUnit {
	return &StatsUnit{
		Cooldown: conveyor.NewCooldown(cooldownUs),
		conv:     conv,
		world:    ws,
		out:      out,
		log:      log,
	}
}

func (u *StatsUnit) Name() string    { return "stats" }
func (u *StatsUnit) Phase() Phase    { return PhasePersist }
func (u *StatsUnit) StageCount() int { return 1 }

func (u *StatsUnit) PrepareStage(_ int, tick conveyor.Tick) bool {
	if !u.Ready(tick.NowUs) {
		return false
	}
	snap := Snapshot(u.conv, u.world, tick)
	select {
	case u.out <- snap:
	default:
		u.dropped++
		u.log.Warn("stats writer behind, snapshot dropped",
			zap.Uint64("tick", tick.Number),
			zap.Uint64("dropped", u.dropped))
	}
	return false
}

func (u *StatsUnit) ExecuteStage(int, int64) {}

func (u *StatsUnit) Dropped() uint64 { return u.dropped }

// Snapshot collects counters. Master thread only.
func Snapshot(conv *conveyor.Conveyor, ws *world.State, tick conveyor.Tick) StatsSnapshot {
	return StatsSnapshot{
		Tick:      tick.Number,
		NowUs:     tick.NowUs,
		Ships:     ws.ShipCount(),
		Engines:   ws.EngineCount(),
		Asteroids: ws.AsteroidCount(),
		Burning:   ws.Burning.Len(),
		Units:     conv.Stats(),
	}
}
