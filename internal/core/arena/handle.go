package arena

import "fmt"

// Handle names a registry slot together with the generation it was issued in.
// A handle outlives its object safely: once the slot is released the
// generation moves on and lookups through the old handle fail.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether h was never issued. Issued handles start at
// generation 1, so the zero value never matches a live slot.
func (h Handle) IsZero() bool { return h.Generation == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("%d#%d", h.Index, h.Generation)
}
