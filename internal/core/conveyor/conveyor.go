package conveyor

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/l1jgo/tickserver/internal/core/barrier"
	"github.com/l1jgo/tickserver/internal/core/phase"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TickState is published by the master before each fanned-out stage and
// read by every thread while it executes. It only changes between barrier
// crossings.
type TickState struct {
	Unit       int
	Stage      int
	IntervalUs int64
	Tick       uint64
}

// UnitStats accumulates per-unit scheduling counters.
type UnitStats struct {
	Name   string
	Stages int
	Runs   uint64        // stages fanned out
	Skips  uint64        // stages whose prepare said no
	Busy   time.Duration // wall time spent between the two crossings
}

// Conveyor drives an ordered chain of logic units across a fixed pool of
// threads. One master calls Proceed per tick; threads-1 slaves sit in
// JoinAsSlave. Every active stage is bracketed by two barrier crossings, so
// whatever a stage writes is visible to all threads before the next one.
type Conveyor struct {
	log     *zap.Logger
	threads int
	barrier *barrier.Barrier

	chain    []LogicUnit
	stats    []UnitStats
	togglers []phase.Toggler

	state TickState
	ticks uint64
	nowUs int64

	slaves  errgroup.Group
	started bool
	stopped atomic.Bool
}

func New(threads int, log *zap.Logger) *Conveyor {
	if threads < 1 {
		threads = 1
	}
	return &Conveyor{
		log:     log,
		threads: threads,
		barrier: barrier.New(threads),
		chain:   make([]LogicUnit, 0, 16),
		stats:   make([]UnitStats, 0, 16),
	}
}

// AddLogicToChain appends u. Only valid before Start.
func (c *Conveyor) AddLogicToChain(u LogicUnit) {
	if c.started {
		panic("conveyor: chain modified after start")
	}
	c.chain = append(c.chain, u)
	c.stats = append(c.stats, UnitStats{Name: UnitName(u), Stages: u.StageCount()})
}

// AddToggler registers a shared structure to be switched into parallel
// mode for the duration of every fanned-out stage. Only valid before Start.
func (c *Conveyor) AddToggler(t phase.Toggler) {
	if c.started {
		panic("conveyor: toggler added after start")
	}
	c.togglers = append(c.togglers, t)
}

// Start spawns the slave threads. Each is pinned to its own OS thread.
func (c *Conveyor) Start() {
	if c.started {
		return
	}
	c.started = true
	for i := 1; i < c.threads; i++ {
		c.slaves.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			c.JoinAsSlave()
			return nil
		})
	}
	c.log.Info("conveyor started",
		zap.Int("threads", c.threads),
		zap.Int("units", len(c.chain)))
}

// Proceed runs one tick on the calling (master) thread.
func (c *Conveyor) Proceed(intervalUs int64) {
	if !c.started || c.stopped.Load() {
		panic("conveyor: Proceed outside Start/Stop")
	}
	c.ticks++
	c.nowUs += intervalUs
	tick := Tick{Number: c.ticks, IntervalUs: intervalUs, NowUs: c.nowUs}

	for i, u := range c.chain {
		st := &c.stats[i]
		for stage := 0; stage < st.Stages; stage++ {
			if !u.PrepareStage(stage, tick) {
				st.Skips++
				continue
			}
			c.state = TickState{Unit: i, Stage: stage, IntervalUs: intervalUs, Tick: c.ticks}
			start := time.Now()

			c.setParallel(true)
			c.barrier.Wait()
			u.ExecuteStage(stage, intervalUs)
			c.barrier.Wait()
			c.setParallel(false)

			st.Runs++
			st.Busy += time.Since(start)
		}
	}
}

// JoinAsSlave parks the calling thread on the barrier and executes whatever
// stage the master publishes, until Stop.
func (c *Conveyor) JoinAsSlave() {
	for {
		c.barrier.Wait()
		if c.stopped.Load() {
			return
		}
		st := c.state
		c.chain[st.Unit].ExecuteStage(st.Stage, st.IntervalUs)
		c.barrier.Wait()
	}
}

// Stop releases the parked slaves through one final barrier generation and
// waits for them to exit. Master thread only, never concurrently with
// Proceed.
func (c *Conveyor) Stop() error {
	if !c.started || !c.stopped.CompareAndSwap(false, true) {
		return nil
	}
	c.barrier.Wait()
	err := c.slaves.Wait()
	c.log.Info("conveyor stopped", zap.Uint64("ticks", c.ticks))
	return err
}

func (c *Conveyor) setParallel(on bool) {
	for _, t := range c.togglers {
		if on {
			t.EnterParallel()
		} else {
			t.LeaveParallel()
		}
	}
}

// State returns the stage currently published to the pool.
func (c *Conveyor) State() TickState { return c.state }

func (c *Conveyor) Threads() int  { return c.threads }
func (c *Conveyor) Ticks() uint64 { return c.ticks }
func (c *Conveyor) NowUs() int64  { return c.nowUs }

// Stats returns a copy of the per-unit counters. Master thread only.
func (c *Conveyor) Stats() []UnitStats {
	out := make([]UnitStats, len(c.stats))
	copy(out, c.stats)
	return out
}
