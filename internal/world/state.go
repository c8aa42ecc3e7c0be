package world

import (
	"math"
	"sync"

	"github.com/l1jgo/tickserver/internal/core/arena"
	"github.com/l1jgo/tickserver/internal/core/busyset"
	"github.com/l1jgo/tickserver/internal/core/event"
	"github.com/l1jgo/tickserver/internal/core/phase"
	"github.com/l1jgo/tickserver/internal/data"
	"go.uber.org/zap"
)

// Kind selects the registry a queued destruction applies to.
type Kind uint8

const (
	KindShip Kind = iota
	KindAsteroid
)

type destroyReq struct {
	kind   Kind
	handle arena.Handle
}

// State is the authoritative simulation state. It holds the strong
// references to every entity; registries only borrow them.
//
// Spawning and destruction are exclusive-mode operations (a unit's
// PrepareStage or startup). Parallel stages request destruction through
// MarkForDestruction, flushed by the cleanup unit at tick end.
type State struct {
	Ships     *arena.Registry[Ship]
	Engines   *arena.Registry[Engine]
	Asteroids *arena.Registry[Asteroid]
	Burning   *busyset.BusySet // engine indices with thrust to apply
	Bus       *event.Bus

	ships     map[uint32]*Ship
	asteroids map[uint32]*Asteroid

	destroyMu    sync.Mutex
	destroyQueue []destroyReq

	log *zap.Logger
}

func NewState(log *zap.Logger) *State {
	return &State{
		Ships:        arena.NewRegistry[Ship]("ships"),
		Engines:      arena.NewRegistry[Engine]("engines"),
		Asteroids:    arena.NewRegistry[Asteroid]("asteroids"),
		Burning:      busyset.New(256),
		Bus:          event.NewBus(),
		ships:        make(map[uint32]*Ship, 256),
		asteroids:    make(map[uint32]*Asteroid, 1024),
		destroyQueue: make([]destroyReq, 0, 64),
		log:          log,
	}
}

// Togglers lists the structures the conveyor must freeze during parallel
// stages.
func (s *State) Togglers() []phase.Toggler {
	return []phase.Toggler{s.Ships, s.Engines, s.Asteroids, s.Burning}
}

// SpawnShip creates and registers a ship without engines.
func (s *State) SpawnShip(name string, pos, vel Vec2, mass float64) *Ship {
	sh := &Ship{Name: name, Pos: pos, Vel: vel, Mass: mass}
	sh.Handle = s.Ships.Register(sh)
	s.ships[sh.Handle.Index] = sh
	return sh
}

// AddEngine mounts a new engine on sh.
func (s *State) AddEngine(sh *Ship, thrust float64, dir Vec2, fuel float64) *Engine {
	e := &Engine{Ship: sh.Handle, Thrust: thrust, Dir: dir.Unit(), Fuel: fuel}
	e.Handle = s.Engines.Register(e)
	sh.Engines = append(sh.Engines, e)
	return e
}

func (s *State) SpawnAsteroid(pos, vel Vec2, radius float64) *Asteroid {
	a := &Asteroid{Pos: pos, Vel: vel, Radius: radius}
	a.Handle = s.Asteroids.Register(a)
	s.asteroids[a.Handle.Index] = a
	return a
}

// Ignite starts (or extends) an engine burn. Returns false for a stale
// handle or an empty tank. Exclusive mode only.
func (s *State) Ignite(h arena.Handle, burnUs int64) bool {
	e, ok := s.Engines.Lookup(h)
	if !ok || e.Fuel <= 0 || burnUs <= 0 {
		return false
	}
	e.BurnLeftUs = max(e.BurnLeftUs, burnUs)
	if !e.Burning {
		e.Burning = true
		s.Burning.Push(h.Index)
	}
	return true
}

// SchedulePulses queues count further burns of burnUs after the current
// one. The thrust stage relights the engine through the bus. Exclusive mode
// only.
func (s *State) SchedulePulses(h arena.Handle, count int, burnUs int64) bool {
	e, ok := s.Engines.Lookup(h)
	if !ok || count < 0 || burnUs <= 0 {
		return false
	}
	e.Pulses = count
	e.PulseUs = burnUs
	return true
}

// Populate spawns everything a scenario describes and returns the number
// of entities created.
func (s *State) Populate(sc *data.Scenario) int {
	n := 0
	for _, sp := range sc.Ships {
		sh := s.SpawnShip(sp.Name, Vec2{sp.X, sp.Y}, Vec2{sp.VX, sp.VY}, sp.Mass)
		n++
		for _, es := range sp.Engines {
			e := s.AddEngine(sh, es.Thrust, Vec2{es.DirX, es.DirY}, es.Fuel)
			n++
			if es.BurnMs > 0 {
				s.Ignite(e.Handle, es.BurnMs*1000)
				if es.Pulses > 0 {
					s.SchedulePulses(e.Handle, es.Pulses, es.BurnMs*1000)
				}
			}
		}
	}
	for _, as := range sc.Asteroids {
		if as.Count <= 1 {
			s.SpawnAsteroid(Vec2{as.X, as.Y}, Vec2{as.VX, as.VY}, as.Radius)
			n++
			continue
		}
		for i := 0; i < as.Count; i++ {
			angle := 2 * math.Pi * float64(i) / float64(as.Count)
			pos := Vec2{as.X + as.Spread*math.Cos(angle), as.Y + as.Spread*math.Sin(angle)}
			s.SpawnAsteroid(pos, Vec2{as.VX, as.VY}, as.Radius)
			n++
		}
	}
	return n
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Safe to call
// from parallel stages.
func (s *State) MarkForDestruction(kind Kind, h arena.Handle) {
	s.destroyMu.Lock()
	s.destroyQueue = append(s.destroyQueue, destroyReq{kind: kind, handle: h})
	s.destroyMu.Unlock()
}

// FlushDestroyQueue destroys every queued entity and returns how many were
// actually removed. Exclusive mode only.
func (s *State) FlushDestroyQueue() int {
	s.destroyMu.Lock()
	queue := s.destroyQueue
	s.destroyQueue = make([]destroyReq, 0, cap(queue))
	s.destroyMu.Unlock()

	removed := 0
	for _, req := range queue {
		switch req.kind {
		case KindShip:
			if s.destroyShip(req.handle) {
				removed++
			}
		case KindAsteroid:
			if s.Asteroids.Unregister(req.handle) {
				delete(s.asteroids, req.handle.Index)
				removed++
			}
		}
	}
	return removed
}

func (s *State) destroyShip(h arena.Handle) bool {
	sh, ok := s.Ships.Lookup(h)
	if !ok {
		return false // already gone
	}
	for _, e := range sh.Engines {
		// A burning engine leaves a stale busy-set entry; the thrust unit
		// drops it once the slot no longer resolves.
		s.Engines.Unregister(e.Handle)
	}
	s.Ships.Unregister(h)
	delete(s.ships, h.Index)
	s.log.Debug("ship destroyed", zap.String("ship", sh.Name), zap.Stringer("handle", h))
	return true
}

// Ship returns the owned ship at index, if any.
func (s *State) Ship(index uint32) (*Ship, bool) {
	sh, ok := s.ships[index]
	return sh, ok
}

func (s *State) ShipCount() int     { return len(s.ships) }
func (s *State) AsteroidCount() int { return len(s.asteroids) }
func (s *State) EngineCount() int   { return s.Engines.Len() }
