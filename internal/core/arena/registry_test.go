package arena

import (
	"runtime"
	"sync"
	"testing"
)

type rock struct {
	name string
	mass [4]float64
}

func TestRegisterReusesReleasedIndex(t *testing.T) {
	r := NewRegistry[rock]("rocks")
	objs := []*rock{{name: "a"}, {name: "b"}, {name: "c"}}
	handles := make([]Handle, len(objs))
	for i, o := range objs {
		handles[i] = r.Register(o)
		if handles[i].Index != uint32(i) {
			t.Fatalf("Register #%d index = %d", i, handles[i].Index)
		}
	}

	if !r.Unregister(handles[1]) {
		t.Fatal("Unregister reported false")
	}
	if r.Instance(1) != nil {
		t.Error("vacated slot still resolves")
	}

	d := &rock{name: "d"}
	h := r.Register(d)
	if h.Index != 1 {
		t.Errorf("reused index = %d, want 1", h.Index)
	}
	if h.Generation == handles[1].Generation {
		t.Error("reused slot kept the old generation")
	}
	if got := r.Instance(1); got != d {
		t.Errorf("Instance(1) = %v, want d", got)
	}
	runtime.KeepAlive(objs)
}

func TestStaleHandleDetected(t *testing.T) {
	r := NewRegistry[rock]("rocks")
	a := &rock{name: "a"}
	h := r.Register(a)
	r.Unregister(h)
	b := &rock{name: "b"}
	r.Register(b)

	if _, ok := r.Lookup(h); ok {
		t.Error("Lookup through stale handle succeeded")
	}
	if r.Unregister(h) {
		t.Error("Unregister through stale handle succeeded")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

func TestTotalInstancesTracksWatermark(t *testing.T) {
	r := NewRegistry[rock]("rocks")
	objs := []*rock{{}, {}, {}, {}}
	hs := make([]Handle, len(objs))
	for i, o := range objs {
		hs[i] = r.Register(o)
	}
	r.Unregister(hs[1])
	if r.TotalInstances() != 4 {
		t.Errorf("TotalInstances() = %d, want 4 with a hole", r.TotalInstances())
	}
	r.Unregister(hs[3])
	r.Unregister(hs[2])
	if r.TotalInstances() != 1 {
		t.Errorf("TotalInstances() = %d, want 1 after trailing release", r.TotalInstances())
	}
	r.Unregister(hs[0])
	if !r.IsEmpty() {
		t.Error("IsEmpty() = false after releasing everything")
	}
	runtime.KeepAlive(objs)
}

func TestRegistryDoesNotOwn(t *testing.T) {
	r := NewRegistry[rock]("rocks")
	h := r.Register(&rock{name: "orphan"})

	for i := 0; i < 5 && r.Instance(int(h.Index)) != nil; i++ {
		runtime.GC()
	}
	if r.Instance(int(h.Index)) != nil {
		t.Error("registry kept an unowned object alive")
	}
}

func TestMutationPanicsWhileParallel(t *testing.T) {
	r := NewRegistry[rock]("rocks")
	a := &rock{}
	h := r.Register(a)

	r.EnterParallel()
	for name, fn := range map[string]func(){
		"register":   func() { r.Register(&rock{}) },
		"unregister": func() { r.Unregister(h) },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s did not panic in parallel mode", name)
				}
			}()
			fn()
		}()
	}
	// Reads stay legal.
	if r.Instance(0) != a {
		t.Error("Instance(0) failed in parallel mode")
	}
	r.LeaveParallel()

	if !r.Unregister(h) {
		t.Error("Unregister failed after LeaveParallel")
	}
}

func TestEachVisitsLiveInOrder(t *testing.T) {
	r := NewRegistry[rock]("rocks")
	objs := []*rock{{name: "a"}, {name: "b"}, {name: "c"}}
	var hs []Handle
	for _, o := range objs {
		hs = append(hs, r.Register(o))
	}
	r.Unregister(hs[1])

	var names []string
	r.Each(func(_ Handle, o *rock) { names = append(names, o.name) })
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Errorf("Each visited %v, want [a c]", names)
	}
	runtime.KeepAlive(objs)
}

func TestCursorClaimsDisjointRanges(t *testing.T) {
	const (
		size    = 10007
		workers = 8
		batch   = 13
	)
	var c Cursor
	seen := make([]int32, size)
	var wg sync.WaitGroup

	for round := 0; round < 3; round++ {
		c.Reset()
		for i := range seen {
			seen[i] = 0
		}
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					lo, hi, ok := c.Claim(batch, size)
					if !ok {
						return
					}
					for i := lo; i < hi; i++ {
						seen[i]++ // each index owned by exactly one worker
					}
				}
			}()
		}
		wg.Wait()

		for i, n := range seen {
			if n != 1 {
				t.Fatalf("round %d: index %d claimed %d times", round, i, n)
			}
		}
	}
}
