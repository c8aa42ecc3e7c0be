package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/l1jgo/tickserver/internal/core/conveyor"
	"github.com/sugawarayuuta/sonnet"
)

// Unit is one logic unit's scheduling summary.
type Unit struct {
	Name   string `json:"name"`
	Stages int    `json:"stages"`
	Runs   uint64 `json:"runs"`
	Skips  uint64 `json:"skips"`
	BusyUs int64  `json:"busy_us"`
}

// Counts is the population at shutdown.
type Counts struct {
	Ships     int `json:"ships"`
	Engines   int `json:"engines"`
	Asteroids int `json:"asteroids"`
	Burning   int `json:"burning"`
}

// Report summarises one server run.
type Report struct {
	Server    string    `json:"server"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
	Threads   int       `json:"threads"`
	Ticks     uint64    `json:"ticks"`
	SimTimeUs int64     `json:"sim_time_us"`
	Digest    string    `json:"digest,omitempty"`
	World     Counts    `json:"world"`
	Units     []Unit    `json:"units"`
}

// Build assembles a report from the conveyor's counters. Call after Stop.
func Build(server string, started time.Time, conv *conveyor.Conveyor, world Counts, digest string) Report {
	stats := conv.Stats()
	units := make([]Unit, 0, len(stats))
	for _, s := range stats {
		units = append(units, Unit{
			Name:   s.Name,
			Stages: s.Stages,
			Runs:   s.Runs,
			Skips:  s.Skips,
			BusyUs: s.Busy.Microseconds(),
		})
	}
	return Report{
		Server:    server,
		StartedAt: started,
		StoppedAt: time.Now(),
		Threads:   conv.Threads(),
		Ticks:     conv.Ticks(),
		SimTimeUs: conv.NowUs(),
		Digest:    digest,
		World:     world,
		Units:     units,
	}
}

// Write encodes r as JSON to path, replacing any existing file atomically.
func Write(path string, r Report) error {
	raw, err := sonnet.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
