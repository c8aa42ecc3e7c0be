package event

import "github.com/l1jgo/tickserver/internal/core/arena"

// EngineIgnited asks for an engine to start burning for BurnUs.
type EngineIgnited struct {
	Engine arena.Handle
	BurnUs int64
}

// ShipLost reports a ship that left the simulated volume.
type ShipLost struct {
	Ship arena.Handle
}
