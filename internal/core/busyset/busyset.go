package busyset

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/l1jgo/tickserver/internal/core/phase"
)

// Tombstone marks a position whose id has been dropped but not yet removed.
const Tombstone = ^uint32(0)

// BusySet is a compact list of ids that need work this tick. Workers drain
// it concurrently through Next; ids that went idle are tombstoned with
// DropIndex and physically removed at a later Begin.
//
// A dropped id may be handed out once more if a worker already claimed its
// position before the tombstone landed. Callers must tolerate that.
type BusySet struct {
	phase.Guard

	ids    []uint32 // elements accessed atomically while parallel
	cursor atomic.Int64

	mu      sync.Mutex // guards dropped; only touched when a claim hits a tombstone
	dropped []int
}

func New(capacity int) *BusySet {
	return &BusySet{
		ids:     make([]uint32, 0, capacity),
		dropped: make([]int, 0, 16),
	}
}

// Push appends id. Exclusive mode only.
func (s *BusySet) Push(id uint32) {
	s.MustBeExclusive("busyset push")
	if id == Tombstone {
		panic("busyset: push of tombstone id")
	}
	s.ids = append(s.ids, id)
}

// Begin removes the tombstones found during the previous pass and rewinds
// the claim cursor to the current size. Master thread only.
func (s *BusySet) Begin() {
	s.MustBeExclusive("busyset begin")
	s.compact()
	s.cursor.Store(int64(len(s.ids)))
}

func (s *BusySet) compact() {
	if len(s.dropped) == 0 {
		return
	}
	// Highest position first: swap-with-back never moves a pending position.
	slices.SortFunc(s.dropped, func(a, b int) int { return b - a })
	for _, pos := range s.dropped {
		if pos >= len(s.ids) || s.ids[pos] != Tombstone {
			continue
		}
		last := len(s.ids) - 1
		s.ids[pos] = s.ids[last]
		s.ids = s.ids[:last]
	}
	s.dropped = s.dropped[:0]
}

// Next claims the next position. It is safe to call from any number of
// workers at once and reports false once the pass is exhausted.
func (s *BusySet) Next() (id uint32, index int, ok bool) {
	for {
		pos := int(s.cursor.Add(-1))
		if pos < 0 {
			return 0, -1, false
		}
		id = atomic.LoadUint32(&s.ids[pos])
		if id == Tombstone {
			s.mu.Lock()
			s.dropped = append(s.dropped, pos)
			s.mu.Unlock()
			continue
		}
		return id, pos, true
	}
}

// DropIndex tombstones the id at index. Callable from workers.
func (s *BusySet) DropIndex(index int) {
	atomic.StoreUint32(&s.ids[index], Tombstone)
}

// Len counts positions, including tombstones still awaiting removal.
func (s *BusySet) Len() int { return len(s.ids) }

// Contains reports whether id sits at a live position. Exclusive mode only.
func (s *BusySet) Contains(id uint32) bool {
	return id != Tombstone && slices.Contains(s.ids, id)
}
