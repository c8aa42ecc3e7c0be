package system

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/l1jgo/tickserver/internal/core/arena"
	"github.com/l1jgo/tickserver/internal/core/conveyor"
	"github.com/l1jgo/tickserver/internal/world"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const (
	digestChunk    = 64 // ship slots per chunk
	shipRecordSize = 4 + 4 + 8*4
)

// Digest is a world fingerprint taken at a given tick.
type Digest struct {
	Tick  uint64
	NowUs int64
	Sum   [blake2b.Size256]byte
}

func (d Digest) String() string { return hex.EncodeToString(d.Sum[:]) }

// DigestUnit fingerprints ship state so two runs of the same scenario can be
// compared tick for tick. Stage 0 hashes fixed chunks of the ship registry
// in parallel; stage 1 folds the chunk sums in index order on the master,
// so the result does not depend on the thread count.
type DigestUnit struct {
	conveyor.Cooldown
	world  *world.State
	log    *zap.Logger
	cursor arena.Cursor
	sink   func(Digest)

	total  int
	chunks [][blake2b.Size256]byte
	armed  bool
	tick   conveyor.Tick
	last   Digest
}

// NewDigestUnit creates the unit. sink, if non-nil, receives every digest on
// the master thread and must not block.
func NewDigestUnit(ws *world.State, cooldownUs int64, sink func(Digest), log *zap.Logger) *DigestUnit {
	return &DigestUnit{
		Cooldown: conveyor.NewCooldown(cooldownUs),
		world:    ws,
		log:      log,
		sink:     sink,
	}
}

func (u *DigestUnit) Name() string    { return "digest" }
func (u *DigestUnit) Phase() Phase    { return PhasePostUpdate }
func (u *DigestUnit) StageCount() int { return 2 }

func (u *DigestUnit) PrepareStage(stage int, tick conveyor.Tick) bool {
	switch stage {
	case 0:
		if u.world.Ships.IsEmpty() || !u.Ready(tick.NowUs) {
			return false
		}
		u.total = u.world.Ships.TotalInstances()
		n := (u.total + digestChunk - 1) / digestChunk
		if cap(u.chunks) < n {
			u.chunks = make([][blake2b.Size256]byte, n)
		}
		u.chunks = u.chunks[:n]
		u.cursor.Reset()
		u.tick = tick
		u.armed = true
		return true
	case 1:
		if u.armed {
			u.armed = false
			u.fold()
		}
	}
	return false
}

func (u *DigestUnit) ExecuteStage(stage int, _ int64) {
	if stage != 0 {
		return
	}
	buf := make([]byte, 0, digestChunk*shipRecordSize)
	for {
		k, _, ok := u.cursor.Claim(1, len(u.chunks))
		if !ok {
			return
		}
		lo := k * digestChunk
		hi := min(lo+digestChunk, u.total)
		buf = buf[:0]
		for i := lo; i < hi; i++ {
			sh := u.world.Ships.Instance(i)
			if sh == nil {
				continue
			}
			buf = appendShip(buf, sh)
		}
		u.chunks[k] = blake2b.Sum256(buf)
	}
}

func appendShip(buf []byte, sh *world.Ship) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, sh.Handle.Index)
	buf = binary.LittleEndian.AppendUint32(buf, sh.Handle.Generation)
	for _, f := range [...]float64{sh.Pos.X, sh.Pos.Y, sh.Vel.X, sh.Vel.Y} {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
	}
	return buf
}

func (u *DigestUnit) fold() {
	all := make([]byte, 0, len(u.chunks)*blake2b.Size256)
	for _, c := range u.chunks {
		all = append(all, c[:]...)
	}
	u.last = Digest{Tick: u.tick.Number, NowUs: u.tick.NowUs, Sum: blake2b.Sum256(all)}
	u.log.Debug("world digest",
		zap.Uint64("tick", u.last.Tick),
		zap.Int("chunks", len(u.chunks)),
		zap.Stringer("sum", u.last))
	if u.sink != nil {
		u.sink(u.last)
	}
}

// Last returns the most recent digest. Master thread only.
func (u *DigestUnit) Last() Digest { return u.last }
