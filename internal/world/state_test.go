package world

import (
	"testing"

	"github.com/l1jgo/tickserver/internal/data"
	"go.uber.org/zap"
)

func TestSpawnAndDestroyShip(t *testing.T) {
	s := NewState(zap.NewNop())
	sh := s.SpawnShip("lander", Vec2{}, Vec2{}, 100)
	e := s.AddEngine(sh, 10, Vec2{X: 3, Y: 4}, 5)

	if e.Dir.X != 0.6 || e.Dir.Y != 0.8 {
		t.Errorf("engine dir not normalized: %+v", e.Dir)
	}
	if e.Ship != sh.Handle {
		t.Error("engine does not point back at its ship")
	}
	if got, ok := s.Ships.Lookup(sh.Handle); !ok || got != sh {
		t.Fatal("ship lookup failed")
	}

	s.MarkForDestruction(KindShip, sh.Handle)
	s.MarkForDestruction(KindShip, sh.Handle) // duplicate request
	if n := s.FlushDestroyQueue(); n != 1 {
		t.Errorf("FlushDestroyQueue() = %d, want 1", n)
	}
	if _, ok := s.Engines.Lookup(e.Handle); ok {
		t.Error("engine survived its ship")
	}
	if s.ShipCount() != 0 || s.EngineCount() != 0 {
		t.Errorf("counts ships=%d engines=%d, want 0/0", s.ShipCount(), s.EngineCount())
	}
}

func TestIgnitePushesOnce(t *testing.T) {
	s := NewState(zap.NewNop())
	sh := s.SpawnShip("tug", Vec2{}, Vec2{}, 100)
	e := s.AddEngine(sh, 10, Vec2{X: 1}, 5)
	dry := s.AddEngine(sh, 10, Vec2{X: 1}, 0)

	if !s.Ignite(e.Handle, 1000) || !s.Ignite(e.Handle, 5000) {
		t.Fatal("Ignite failed")
	}
	if s.Burning.Len() != 1 {
		t.Errorf("busy-set length = %d, want 1", s.Burning.Len())
	}
	if e.BurnLeftUs != 5000 {
		t.Errorf("BurnLeftUs = %d, want 5000", e.BurnLeftUs)
	}
	if s.Ignite(dry.Handle, 1000) {
		t.Error("engine without fuel ignited")
	}
}

func TestPopulate(t *testing.T) {
	sc := &data.Scenario{
		Ships: []data.ShipSpawn{{
			Name: "a", Mass: 10,
			Engines: []data.EngineSpawn{{Thrust: 1, DirX: 1, Fuel: 1, BurnMs: 10, Pulses: 3}},
		}},
		Asteroids: []data.AsteroidSpawn{{Radius: 1}, {Radius: 1, Count: 8, Spread: 50}},
	}
	s := NewState(zap.NewNop())
	if n := s.Populate(sc); n != sc.Count() {
		t.Errorf("Populate() = %d, want %d", n, sc.Count())
	}
	if s.AsteroidCount() != 9 {
		t.Errorf("AsteroidCount() = %d, want 9", s.AsteroidCount())
	}
	if !s.Burning.Contains(0) {
		t.Error("engine with burn_ms not ignited")
	}
	if e := s.Engines.Instance(0); e.Pulses != 3 || e.PulseUs != 10_000 {
		t.Errorf("pulses=%d pulse_us=%d, want 3/10000", e.Pulses, e.PulseUs)
	}
}

func TestSchedulePulses(t *testing.T) {
	s := NewState(zap.NewNop())
	sh := s.SpawnShip("tug", Vec2{}, Vec2{}, 100)
	e := s.AddEngine(sh, 10, Vec2{X: 1}, 5)

	if s.SchedulePulses(e.Handle, 2, 0) || s.SchedulePulses(e.Handle, -1, 1000) {
		t.Error("invalid schedule accepted")
	}
	if !s.SchedulePulses(e.Handle, 2, 1500) || e.Pulses != 2 || e.PulseUs != 1500 {
		t.Errorf("schedule not applied: pulses=%d pulse_us=%d", e.Pulses, e.PulseUs)
	}

	s.MarkForDestruction(KindShip, sh.Handle)
	s.FlushDestroyQueue()
	if s.SchedulePulses(e.Handle, 1, 1000) {
		t.Error("stale handle accepted")
	}
}
