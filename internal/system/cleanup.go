package system

import (
	"github.com/l1jgo/tickserver/internal/core/conveyor"
	"github.com/l1jgo/tickserver/internal/world"
	"go.uber.org/zap"
)

// CleanupUnit flushes the deferred destruction queue at tick end. It works
// entirely in PrepareStage and never fans out.
type CleanupUnit struct {
	world *world.State
	log   *zap.Logger
}

func NewCleanupUnit(ws *world.State, log *zap.Logger) *CleanupUnit {
	return &CleanupUnit{world: ws, log: log}
}

func (u *CleanupUnit) Name() string      { return "cleanup" }
func (u *CleanupUnit) Phase() Phase      { return PhaseCleanup }
func (u *CleanupUnit) StageCount() int   { return 1 }
func (u *CleanupUnit) CooldownUs() int64 { return 0 }

func (u *CleanupUnit) PrepareStage(_ int, tick conveyor.Tick) bool {
	if n := u.world.FlushDestroyQueue(); n > 0 {
		u.log.Debug("entities destroyed", zap.Int("count", n), zap.Uint64("tick", tick.Number))
	}
	return false
}

func (u *CleanupUnit) ExecuteStage(int, int64) {}
