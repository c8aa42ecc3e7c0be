package arena

import "sync/atomic"

// Cursor hands out disjoint index ranges to workers racing over the same
// registry. Reset it on the master before a stage fans out.
type Cursor struct {
	next atomic.Int64
}

func (c *Cursor) Reset() { c.next.Store(0) }

// Claim reserves up to batch indices below limit. It reports false once the
// cursor has run off the end.
func (c *Cursor) Claim(batch, limit int) (lo, hi int, ok bool) {
	end := int(c.next.Add(int64(batch)))
	lo = end - batch
	if lo >= limit {
		return 0, 0, false
	}
	return lo, min(end, limit), true
}
