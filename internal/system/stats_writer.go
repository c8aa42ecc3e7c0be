package system

import (
	"context"
	"time"

	"github.com/l1jgo/tickserver/internal/persist"
	"go.uber.org/zap"
)

// StatsSink persists snapshots and digests. *persist.TickStatsRepo
// implements it.
type StatsSink interface {
	SaveTickStats(ctx context.Context, rows []persist.TickStatRow) error
	SaveDigest(ctx context.Context, tick uint64, simTimeUs int64, digest []byte) error
}

// StatsWriter drains snapshots and digests off the tick path. With a nil
// sink it only logs.
type StatsWriter struct {
	stats   <-chan StatsSnapshot
	digests <-chan Digest
	sink    StatsSink
	log     *zap.Logger
	timeout time.Duration
}

func NewStatsWriter(stats <-chan StatsSnapshot, digests <-chan Digest, sink StatsSink, log *zap.Logger) *StatsWriter {
	return &StatsWriter{
		stats:   stats,
		digests: digests,
		sink:    sink,
		log:     log,
		timeout: 5 * time.Second,
	}
}

// Run processes input until ctx is cancelled or both channels are closed.
func (w *StatsWriter) Run(ctx context.Context) error {
	stats, digests := w.stats, w.digests
	for stats != nil || digests != nil {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-stats:
			if !ok {
				stats = nil
				continue
			}
			w.writeStats(snap)
		case d, ok := <-digests:
			if !ok {
				digests = nil
				continue
			}
			w.writeDigest(d)
		}
	}
	return nil
}

func (w *StatsWriter) writeStats(snap StatsSnapshot) {
	w.log.Info("tick stats",
		zap.Uint64("tick", snap.Tick),
		zap.Int("ships", snap.Ships),
		zap.Int("engines", snap.Engines),
		zap.Int("asteroids", snap.Asteroids),
		zap.Int("burning", snap.Burning))
	if w.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.sink.SaveTickStats(ctx, Rows(snap)); err != nil {
		w.log.Error("save tick stats failed", zap.Uint64("tick", snap.Tick), zap.Error(err))
	}
}

func (w *StatsWriter) writeDigest(d Digest) {
	if w.sink == nil {
		w.log.Info("world digest", zap.Uint64("tick", d.Tick), zap.Stringer("sum", d))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.sink.SaveDigest(ctx, d.Tick, d.NowUs, d.Sum[:]); err != nil {
		w.log.Error("save digest failed", zap.Uint64("tick", d.Tick), zap.Error(err))
	}
}

// Rows flattens a snapshot into one row per logic unit.
func Rows(snap StatsSnapshot) []persist.TickStatRow {
	rows := make([]persist.TickStatRow, 0, len(snap.Units))
	for _, us := range snap.Units {
		rows = append(rows, persist.TickStatRow{
			Tick:      snap.Tick,
			SimTimeUs: snap.NowUs,
			Unit:      us.Name,
			Runs:      us.Runs,
			Skips:     us.Skips,
			BusyUs:    us.Busy.Microseconds(),
			Ships:     snap.Ships,
			Engines:   snap.Engines,
			Asteroids: snap.Asteroids,
		})
	}
	return rows
}
