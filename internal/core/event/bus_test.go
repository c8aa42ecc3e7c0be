package event

import (
	"sync"
	"testing"
)

type ping struct{ N int }

func TestEventsDeliveredAfterSwap(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(p ping) { got = append(got, p.N) })

	Emit(b, ping{N: 1})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("event delivered before swap: %v", got)
	}

	if n := b.SwapBuffers(); n != 1 {
		t.Errorf("SwapBuffers() = %d, want 1", n)
	}
	b.DispatchAll()
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("got %v, want [1]", got)
	}

	// Nothing new emitted: the next swap empties front.
	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Errorf("event redelivered: %v", got)
	}
}

func TestConcurrentEmit(t *testing.T) {
	b := NewBus()
	count := 0
	Subscribe(b, func(ping) { count++ })

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				Emit(b, ping{N: i})
			}
		}()
	}
	wg.Wait()

	if n := b.SwapBuffers(); n != 4000 {
		t.Errorf("SwapBuffers() = %d, want 4000", n)
	}
	b.DispatchAll()
	if count != 4000 {
		t.Errorf("dispatched %d, want 4000", count)
	}
}
