package reactor

import "testing"

func TestQueue_RoundsCapacityToPowerOfTwo(t *testing.T) {
	q := NewQueue[int](5)
	if got := q.Cap(); got != 8 {
		t.Errorf("Cap() = %d, want 8", got)
	}
}

func TestQueue_OfferPopRoundTrip(t *testing.T) {
	q := NewQueue[string](4)

	for i := 0; i < 4; i++ {
		if !q.Offer("x") {
			t.Fatalf("Offer() failed before reaching capacity at i=%d", i)
		}
	}
	if !q.Full() {
		t.Error("Full() = false, want true after filling to capacity")
	}
	if q.Offer("overflow") {
		t.Error("Offer() on a full queue returned true, want false")
	}

	for i := 0; i < 4; i++ {
		if _, ok := q.Pop(); !ok {
			t.Fatalf("Pop() ok=false at i=%d, want true", i)
		}
	}
	if !q.Empty() {
		t.Error("Empty() = false, want true after draining")
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on an empty queue returned ok=true, want false")
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := NewQueue[int](8)
	for i := 1; i <= 5; i++ {
		q.Offer(i)
	}
	for i := 1; i <= 5; i++ {
		got, ok := q.Pop()
		if !ok || got != i {
			t.Fatalf("Pop() = (%d, %v), want (%d, true)", got, ok, i)
		}
	}
}

func TestQueue_WrapsAroundRingBoundary(t *testing.T) {
	q := NewQueue[int](4)
	for i := 0; i < 3; i++ {
		q.Offer(i)
		q.Pop()
	}
	// head/tail counters now sit at 3, the last slot of the 4-slot ring,
	// so the next two offers straddle the wrap; confirm the mask-based
	// indexing still works.
	q.Offer(100)
	q.Offer(101)
	a, _ := q.Pop()
	b, _ := q.Pop()
	if a != 100 || b != 101 {
		t.Errorf("got (%d, %d), want (100, 101)", a, b)
	}
}
