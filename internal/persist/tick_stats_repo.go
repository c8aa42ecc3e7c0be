package persist

import (
	"context"
	"fmt"
)

// TickStatRow is one unit's scheduling counters at a given tick.
type TickStatRow struct {
	Tick      uint64
	SimTimeUs int64
	Unit      string
	Runs      uint64
	Skips     uint64
	BusyUs    int64
	Ships     int
	Engines   int
	Asteroids int
}

type TickStatsRepo struct {
	db *DB
}

func NewTickStatsRepo(db *DB) *TickStatsRepo {
	return &TickStatsRepo{db: db}
}

// SaveTickStats writes a batch of rows in a single transaction.
func (r *TickStatsRepo) SaveTickStats(ctx context.Context, rows []TickStatRow) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tick stats begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tick_stats (tick, sim_time_us, unit, runs, skips, busy_us, ships, engines, asteroids)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			int64(row.Tick), row.SimTimeUs, row.Unit, int64(row.Runs), int64(row.Skips),
			row.BusyUs, row.Ships, row.Engines, row.Asteroids,
		); err != nil {
			return fmt.Errorf("tick stats insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// SaveDigest records the world digest computed at tick. A digest for the
// same tick replaces the earlier one.
func (r *TickStatsRepo) SaveDigest(ctx context.Context, tick uint64, simTimeUs int64, digest []byte) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO world_digests (tick, sim_time_us, digest) VALUES ($1, $2, $3)
		 ON CONFLICT (tick) DO UPDATE SET sim_time_us = EXCLUDED.sim_time_us, digest = EXCLUDED.digest`,
		int64(tick), simTimeUs, digest,
	)
	if err != nil {
		return fmt.Errorf("save digest: %w", err)
	}
	return nil
}
