package idpool

import (
	"cmp"
	"slices"
)

// Pool hands out small dense integer ids and recycles released ones.
// The lowest free id always wins, so live ids stay packed near zero.
// Not safe for concurrent use; callers serialize access.
type Pool struct {
	watermark uint32   // first id never handed out
	free      []uint32 // released ids below watermark, descending
}

func New() *Pool {
	return &Pool{
		free: make([]uint32, 0, 64),
	}
}

// Next returns the smallest id not currently in use.
func (p *Pool) Next() uint32 {
	if len(p.free) > 0 {
		n := len(p.free) - 1
		id := p.free[n]
		p.free = p.free[:n]
		return id
	}
	id := p.watermark
	p.watermark++
	return id
}

// Release returns id to the pool. Releasing an id that is not in use is
// ignored and reported as false.
func (p *Pool) Release(id uint32) bool {
	if id >= p.watermark {
		return false
	}
	pos, found := p.search(id)
	if found {
		return false // double release
	}

	if id == p.watermark-1 {
		// Retract instead of growing the free list, then swallow any
		// released ids that are now trailing.
		p.watermark--
		k := 0
		for k < len(p.free) && p.free[k] == p.watermark-1 {
			k++
			p.watermark--
		}
		if k > 0 {
			p.free = slices.Delete(p.free, 0, k)
		}
		return true
	}

	p.free = slices.Insert(p.free, pos, id)
	return true
}

// InUse reports whether id is currently handed out.
func (p *Pool) InUse(id uint32) bool {
	if id >= p.watermark {
		return false
	}
	_, found := p.search(id)
	return !found
}

// search finds id in the descending free list, or the position that keeps
// it descending.
func (p *Pool) search(id uint32) (int, bool) {
	return slices.BinarySearchFunc(p.free, id, func(e, t uint32) int {
		return cmp.Compare(t, e)
	})
}

// Watermark is one past the highest id that may be in use.
func (p *Pool) Watermark() uint32 { return p.watermark }

// Len returns the number of ids in use.
func (p *Pool) Len() int { return int(p.watermark) - len(p.free) }

// Reset forgets every id.
func (p *Pool) Reset() {
	p.watermark = 0
	p.free = p.free[:0]
}
