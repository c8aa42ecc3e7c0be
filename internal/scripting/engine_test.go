package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

type fakeAPI struct {
	ignited map[int]int64
	ships   int
}

func (f *fakeAPI) Ignite(idx int, ms int64) bool {
	if idx < 0 {
		return false
	}
	f.ignited[idx] = ms
	return true
}
func (f *fakeAPI) ShipCount() int   { return f.ships }
func (f *fakeAPI) EngineCount() int { return len(f.ignited) }

func TestOnTickCallsAPI(t *testing.T) {
	dir := t.TempDir()
	script := `
seen = 0
function on_tick(tick)
  seen = tick.number
  if tick.number == 2 and ship_count() > 0 then
    ok = ignite(3, 250)
  end
end
`
	if err := os.WriteFile(filepath.Join(dir, "autopilot.lua"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	api := &fakeAPI{ignited: map[int]int64{}, ships: 1}
	e, err := NewEngine(dir, api, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	if !e.HasTickHook() {
		t.Fatal("on_tick not found")
	}
	e.OnTick(1, 1000)
	if len(api.ignited) != 0 {
		t.Fatalf("ignited early: %v", api.ignited)
	}
	e.OnTick(2, 2000)
	if api.ignited[3] != 250 {
		t.Errorf("ignited = %v, want engine 3 for 250ms", api.ignited)
	}
}

func TestMissingDirLoadsNothing(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "absent"), &fakeAPI{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	if e.HasTickHook() {
		t.Error("unexpected on_tick")
	}
	e.OnTick(1, 1) // no-op
}

func TestScriptErrorIsContained(t *testing.T) {
	e, err := NewEngine(t.TempDir(), &fakeAPI{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if err := e.LoadString(`function on_tick(t) error("boom") end`); err != nil {
		t.Fatal(err)
	}
	e.OnTick(1, 1000) // logged, not panicked
}

func TestBadScriptFailsLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("function ("), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(dir, &fakeAPI{}, zap.NewNop()); err == nil {
		t.Error("expected load error")
	}
}
