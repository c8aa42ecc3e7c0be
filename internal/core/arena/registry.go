package arena

import (
	"sync"
	"weak"

	"github.com/l1jgo/tickserver/internal/core/idpool"
	"github.com/l1jgo/tickserver/internal/core/phase"
)

// Registry gives every live object of type T a small dense index so parallel
// stages can split "all instances of T" into disjoint index ranges.
//
// Slots hold weak pointers: the registry never keeps an object alive. The
// aggregate that created the object owns it and must Unregister it before
// dropping the last strong reference.
//
// Reads (Instance, Lookup) are lock-free and may run from any worker during a
// parallel stage. Register and Unregister are exclusive-mode only and panic
// when called while the conveyor has the registry in parallel mode.
type Registry[T any] struct {
	phase.Guard

	name string

	mu    sync.Mutex // cold path: id bookkeeping and growth
	ids   *idpool.Pool
	slots []weak.Pointer[T]
	gens  []uint32 // never shrinks, so retired handles stay detectable
	live  int
}

func NewRegistry[T any](name string) *Registry[T] {
	return &Registry[T]{
		name:  name,
		ids:   idpool.New(),
		slots: make([]weak.Pointer[T], 0, 256),
		gens:  make([]uint32, 0, 256),
	}
}

func (r *Registry[T]) Name() string { return r.name }

// Register stores a borrowed pointer to obj and returns its handle.
func (r *Registry[T]) Register(obj *T) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MustBeExclusive(r.name + " register")

	idx := r.ids.Next()
	if int(idx) == len(r.slots) {
		r.slots = append(r.slots, weak.Pointer[T]{})
	}
	if int(idx) == len(r.gens) {
		r.gens = append(r.gens, 1)
	}
	r.slots[idx] = weak.Make(obj)
	r.live++
	return Handle{Index: idx, Generation: r.gens[idx]}
}

// Unregister vacates the slot named by h. Stale or unknown handles are
// ignored and reported as false.
func (r *Registry[T]) Unregister(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MustBeExclusive(r.name + " unregister")

	idx := h.Index
	if int(idx) >= len(r.slots) || r.gens[idx] != h.Generation || !r.ids.InUse(idx) {
		return false
	}
	r.slots[idx] = weak.Pointer[T]{}
	r.gens[idx]++
	if r.gens[idx] == 0 {
		r.gens[idx] = 1
	}
	r.ids.Release(idx)
	r.live--

	// Trailing vacant slots go away together with the pool watermark.
	r.slots = r.slots[:r.ids.Watermark()]
	return true
}

// Instance returns the object at index, or nil if the slot is vacant or the
// owner has already let go of it. An index outside [0, TotalInstances())
// is a programming error.
func (r *Registry[T]) Instance(index int) *T {
	return r.slots[index].Value()
}

// Lookup resolves h, failing when the slot has been released since h was
// issued.
func (r *Registry[T]) Lookup(h Handle) (*T, bool) {
	idx := int(h.Index)
	if idx >= len(r.slots) || r.gens[idx] != h.Generation {
		return nil, false
	}
	obj := r.slots[idx].Value()
	return obj, obj != nil
}

// HandleAt returns the current handle for a live slot.
func (r *Registry[T]) HandleAt(index int) (Handle, bool) {
	if index < 0 || index >= len(r.slots) || r.slots[index].Value() == nil {
		return Handle{}, false
	}
	return Handle{Index: uint32(index), Generation: r.gens[index]}, true
}

// TotalInstances is the slot-array length: an upper bound on live indices,
// not a live count.
func (r *Registry[T]) TotalInstances() int { return len(r.slots) }

func (r *Registry[T]) IsEmpty() bool { return len(r.slots) == 0 }

// Len returns the number of registered objects.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Each visits live objects in index order. Single-threaded use only.
func (r *Registry[T]) Each(fn func(Handle, *T)) {
	for i := range r.slots {
		if obj := r.slots[i].Value(); obj != nil {
			fn(Handle{Index: uint32(i), Generation: r.gens[i]}, obj)
		}
	}
}
