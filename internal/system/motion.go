package system

import (
	"github.com/l1jgo/tickserver/internal/core/arena"
	"github.com/l1jgo/tickserver/internal/core/conveyor"
	"github.com/l1jgo/tickserver/internal/core/event"
	"github.com/l1jgo/tickserver/internal/world"
)

const (
	stageShips = iota
	stageAsteroids
)

// MotionUnit integrates positions. Stage 0 moves ships, folding in the
// impulse their engines gathered earlier this tick; stage 1 moves asteroids.
// Workers claim index batches from a shared cursor.
type MotionUnit struct {
	world  *world.State
	radius float64
	batch  int
	cursor arena.Cursor
}

func NewMotionUnit(ws *world.State, worldRadius float64, batch int) *MotionUnit {
	if batch <= 0 {
		batch = 64
	}
	return &MotionUnit{world: ws, radius: worldRadius, batch: batch}
}

func (u *MotionUnit) Name() string      { return "motion" }
func (u *MotionUnit) Phase() Phase      { return PhaseUpdate }
func (u *MotionUnit) StageCount() int   { return 2 }
func (u *MotionUnit) CooldownUs() int64 { return 0 }

func (u *MotionUnit) PrepareStage(stage int, _ conveyor.Tick) bool {
	u.cursor.Reset()
	switch stage {
	case stageShips:
		return !u.world.Ships.IsEmpty()
	case stageAsteroids:
		return !u.world.Asteroids.IsEmpty()
	}
	return false
}

func (u *MotionUnit) ExecuteStage(stage int, intervalUs int64) {
	dt := float64(intervalUs) / 1e6
	switch stage {
	case stageShips:
		u.moveShips(dt)
	case stageAsteroids:
		u.moveAsteroids(dt)
	}
}

func (u *MotionUnit) moveShips(dt float64) {
	ships := u.world.Ships
	total := ships.TotalInstances()
	for {
		lo, hi, ok := u.cursor.Claim(u.batch, total)
		if !ok {
			return
		}
		for i := lo; i < hi; i++ {
			sh := ships.Instance(i)
			if sh == nil {
				continue
			}
			var impulse world.Vec2
			for _, e := range sh.Engines {
				if !e.Impulse.IsZero() {
					impulse = impulse.Add(e.Impulse)
					e.Impulse = world.Vec2{}
				}
			}
			sh.Vel = sh.Vel.Add(impulse.Scale(1 / sh.Mass))
			sh.Pos = sh.Pos.Add(sh.Vel.Scale(dt))

			if u.radius > 0 && !sh.Lost && sh.Pos.Len() > u.radius {
				sh.Lost = true
				event.Emit(u.world.Bus, event.ShipLost{Ship: sh.Handle})
			}
		}
	}
}

func (u *MotionUnit) moveAsteroids(dt float64) {
	asteroids := u.world.Asteroids
	total := asteroids.TotalInstances()
	for {
		lo, hi, ok := u.cursor.Claim(u.batch, total)
		if !ok {
			return
		}
		for i := lo; i < hi; i++ {
			if a := asteroids.Instance(i); a != nil {
				a.Pos = a.Pos.Add(a.Vel.Scale(dt))
			}
		}
	}
}
