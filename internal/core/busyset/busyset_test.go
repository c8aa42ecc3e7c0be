package busyset

import (
	"sort"
	"sync"
	"testing"
)

func drain(s *BusySet) (ids []uint32, pos map[uint32]int) {
	pos = make(map[uint32]int)
	s.Begin()
	for {
		id, idx, ok := s.Next()
		if !ok {
			break
		}
		ids = append(ids, id)
		pos[id] = idx
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, pos
}

func equal(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRoundTrip(t *testing.T) {
	s := New(4)
	s.Push(5)
	s.Push(7)
	s.Push(9)

	got, pos := drain(s)
	if !equal(got, []uint32{5, 7, 9}) {
		t.Fatalf("first pass visited %v, want [5 7 9]", got)
	}

	s.DropIndex(pos[7])

	// The pass that lands on the tombstone skips it and queues the removal.
	got, _ = drain(s)
	if !equal(got, []uint32{5, 9}) {
		t.Fatalf("second pass visited %v, want [5 9]", got)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d before compaction, want 3", s.Len())
	}

	got, _ = drain(s)
	if !equal(got, []uint32{5, 9}) {
		t.Fatalf("third pass visited %v, want [5 9]", got)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d after compaction, want 2", s.Len())
	}
	if s.Contains(7) {
		t.Error("7 still present after compaction")
	}
}

func TestNextExhaustedWithoutBegin(t *testing.T) {
	s := New(1)
	s.Push(1)
	if _, _, ok := s.Next(); ok {
		t.Error("Next() succeeded before Begin")
	}
}

func TestConcurrentDrainVisitsEachOnce(t *testing.T) {
	const (
		size    = 20000
		workers = 8
	)
	s := New(size)
	for i := 0; i < size; i++ {
		s.Push(uint32(i))
	}

	for pass := 0; pass < 4; pass++ {
		s.Begin()
		s.EnterParallel()
		counts := make([]int32, size)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					id, idx, ok := s.Next()
					if !ok {
						return
					}
					counts[id]++
					// Odd ids go idle on the first pass.
					if pass == 0 && id%2 == 1 {
						s.DropIndex(idx)
					}
				}
			}()
		}
		wg.Wait()
		s.LeaveParallel()

		for id, n := range counts {
			want := int32(1)
			if pass > 0 && id%2 == 1 {
				want = 0
			}
			if n != want {
				t.Fatalf("pass %d: id %d visited %d times, want %d", pass, id, n, want)
			}
		}
	}
	if s.Len() != size/2 {
		t.Errorf("Len() = %d, want %d", s.Len(), size/2)
	}
}

func TestPushPanicsWhileParallel(t *testing.T) {
	s := New(1)
	s.EnterParallel()
	defer s.LeaveParallel()
	defer func() {
		if recover() == nil {
			t.Error("Push did not panic in parallel mode")
		}
	}()
	s.Push(1)
}
