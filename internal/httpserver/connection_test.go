package httpserver

import (
	"testing"

	"github.com/caturner81/server/internal/selector"
)

func TestConnection_ReadInterestPreservesPendingWrite(t *testing.T) {
	c := &Connection{}
	if got := c.readInterest(); got != selector.OpRead {
		t.Errorf("readInterest() = %v, want OpRead with no write pending", got)
	}

	c.isReadyWrite = true
	want := selector.OpRead | selector.OpWrite
	if got := c.readInterest(); got != want {
		t.Errorf("readInterest() = %v, want %v once a write is pending", got, want)
	}
}

func TestRequestDeque_FIFOOrder(t *testing.T) {
	var d requestDeque
	a := &Exchange{}
	b := &Exchange{}
	c := &Exchange{}
	d.push(a)
	d.push(b)
	d.push(c)

	for i, want := range []*Exchange{a, b, c} {
		got, ok := d.pop()
		if !ok {
			t.Fatalf("pop() #%d ok = false, want true", i)
		}
		if got != want {
			t.Errorf("pop() #%d = %p, want %p", i, got, want)
		}
	}
	if _, ok := d.pop(); ok {
		t.Error("pop() on drained deque ok = true, want false")
	}
}

func TestRequestDeque_EmptyReportsCorrectly(t *testing.T) {
	var d requestDeque
	if !d.empty() {
		t.Error("empty() on a fresh deque = false, want true")
	}
	d.push(&Exchange{})
	if d.empty() {
		t.Error("empty() after push = true, want false")
	}
	d.pop()
	if !d.empty() {
		t.Error("empty() after draining = false, want true")
	}
}

func TestRequestDeque_InterleavedPushPop(t *testing.T) {
	var d requestDeque
	first := &Exchange{}
	d.push(first)
	got, ok := d.pop()
	if !ok || got != first {
		t.Fatalf("pop() = (%p, %v), want (%p, true)", got, ok, first)
	}

	second := &Exchange{}
	third := &Exchange{}
	d.push(second)
	d.push(third)
	if got, ok := d.pop(); !ok || got != second {
		t.Fatalf("pop() = (%p, %v), want (%p, true)", got, ok, second)
	}
	if got, ok := d.pop(); !ok || got != third {
		t.Fatalf("pop() = (%p, %v), want (%p, true)", got, ok, third)
	}
}
