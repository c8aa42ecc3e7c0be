package barrier

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSinglePartyNeverBlocks(t *testing.T) {
	b := New(1)
	for i := uint64(0); i < 3; i++ {
		if got := b.Wait(); got != i {
			t.Fatalf("Wait() = %d, want %d", got, i)
		}
	}
}

func TestHoldsUntilLastParty(t *testing.T) {
	const parties = 4
	b := New(parties)
	var released atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < parties-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Wait()
			released.Add(1)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	if n := released.Load(); n != 0 {
		t.Fatalf("%d parties released before the last arrival", n)
	}

	b.Wait()
	wg.Wait()
	if n := released.Load(); n != parties-1 {
		t.Errorf("released = %d, want %d", n, parties-1)
	}
	if b.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", b.Generation())
	}
}

// TestManyGenerations checks that no party runs ahead into the next round:
// each round's counter must be complete before anyone sees the barrier open.
func TestManyGenerations(t *testing.T) {
	const (
		parties = 6
		rounds  = 1000
	)
	b := New(parties)
	var counter atomic.Int64
	var failures atomic.Int32
	var wg sync.WaitGroup

	for p := 0; p < parties; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				counter.Add(1)
				gen := b.Wait()
				if gen != uint64(2*r) {
					failures.Add(1)
				}
				if counter.Load() < int64((r+1)*parties) {
					failures.Add(1)
				}
				// Second crossing keeps fast parties from bumping the
				// counter before slow ones have checked it.
				b.Wait()
			}
		}()
	}
	wg.Wait()

	if n := failures.Load(); n != 0 {
		t.Errorf("%d rendezvous violations", n)
	}
	if b.Generation() != 2*rounds {
		t.Errorf("Generation() = %d, want %d", b.Generation(), 2*rounds)
	}
}

func TestNewRejectsZeroParties(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New(0) did not panic")
		}
	}()
	New(0)
}
