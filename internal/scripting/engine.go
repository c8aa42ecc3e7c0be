package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// API is the slice of simulation state exposed to scripts.
type API interface {
	Ignite(engineIndex int, burnMs int64) bool
	ShipCount() int
	EngineCount() int
}

// Engine wraps a single gopher-lua VM. Master thread only: scripts run from
// a unit's PrepareStage, never from a parallel stage.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine bound to api and loads every script in
// scriptsDir. A missing directory loads nothing.
func NewEngine(scriptsDir string, api API, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	e.registerAPI(api)

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// LoadString runs a chunk of Lua source, mostly for tests and GM tooling.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) registerAPI(api API) {
	e.vm.SetGlobal("ignite", e.vm.NewFunction(func(L *lua.LState) int {
		idx := L.CheckInt(1)
		ms := L.CheckInt64(2)
		L.Push(lua.LBool(api.Ignite(idx, ms)))
		return 1
	}))
	e.vm.SetGlobal("ship_count", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(api.ShipCount()))
		return 1
	}))
	e.vm.SetGlobal("engine_count", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(api.EngineCount()))
		return 1
	}))
	e.vm.SetGlobal("log", e.vm.NewFunction(func(L *lua.LState) int {
		e.log.Info("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
}

// loadDir loads all .lua files in a directory, in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasTickHook reports whether the loaded scripts define on_tick.
func (e *Engine) HasTickHook() bool {
	return e.vm.GetGlobal("on_tick") != lua.LNil
}

// OnTick calls the Lua on_tick function with a table describing the tick.
// Script errors are logged, never propagated.
func (e *Engine) OnTick(number uint64, nowUs int64) {
	fn := e.vm.GetGlobal("on_tick")
	if fn == lua.LNil {
		return
	}

	t := e.vm.NewTable()
	t.RawSetString("number", lua.LNumber(number))
	t.RawSetString("now_us", lua.LNumber(nowUs))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua on_tick error", zap.Uint64("tick", number), zap.Error(err))
	}
}

func (e *Engine) Close() {
	e.vm.Close()
}
