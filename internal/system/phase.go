package system

import (
	"sort"

	"github.com/l1jgo/tickserver/internal/core/conveyor"
)

// Phase defines where a unit sits in the chain.
type Phase int

const (
	PhasePreUpdate  Phase = iota // 0: deliver last tick's events
	PhaseScript                  // 1: scripted decisions
	PhaseUpdate                  // 2: thrust, motion
	PhasePostUpdate              // 3: digests and other read-only passes
	PhasePersist                 // 4: stats hand-off
	PhaseCleanup                 // 5: destroy queued entities
)

// Phased units report their phase. Units that don't implement Phased run in
// PhaseUpdate.
type Phased interface {
	Phase() Phase
}

func phaseOf(u conveyor.LogicUnit) Phase {
	if p, ok := u.(Phased); ok {
		return p.Phase()
	}
	return PhaseUpdate
}

// sortByPhase orders units by phase. Units sharing a phase keep their
// registration order.
func sortByPhase(units []conveyor.LogicUnit) {
	sort.SliceStable(units, func(i, j int) bool {
		return phaseOf(units[i]) < phaseOf(units[j])
	})
}
