package http11

import (
	"bytes"
	"testing"
)

func TestHeader_AddGetCaseInsensitive(t *testing.T) {
	var h Header
	if err := h.Add([]byte("Content-Type"), []byte("text/plain")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := h.Get([]byte("content-type")); string(got) != "text/plain" {
		t.Errorf("Get() = %q, want text/plain", got)
	}
}

func TestHeader_RejectsCRLFInjection(t *testing.T) {
	var h Header
	err := h.Add([]byte("X-Evil"), []byte("value\r\nX-Injected: yes"))
	if err != ErrInvalidHeader {
		t.Fatalf("Add() error = %v, want ErrInvalidHeader", err)
	}
}

func TestHeader_OverflowsPastInlineCapacity(t *testing.T) {
	var h Header
	for i := 0; i < MaxHeaders+2; i++ {
		if err := h.Add([]byte("X-Num"), []byte{byte('0' + i%10)}); err != nil {
			t.Fatalf("Add() #%d error = %v", i, err)
		}
	}
	if h.Count() != MaxHeaders+2 {
		t.Errorf("Count() = %d, want %d", h.Count(), MaxHeaders+2)
	}
}

func TestHeader_ValueAtMaxLengthBoundary(t *testing.T) {
	var h Header
	exact := bytes.Repeat([]byte("a"), MaxHeaderValue)
	if err := h.Add([]byte("X-Exact"), exact); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := h.Get([]byte("X-Exact")); string(got) != string(exact) {
		t.Errorf("Get() len = %d, want %d (value at exactly MaxHeaderValue must overflow, not truncate to empty)", len(got), len(exact))
	}

	under := bytes.Repeat([]byte("b"), MaxHeaderValue-1)
	h.Reset()
	if err := h.Add([]byte("X-Under"), under); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := h.Get([]byte("X-Under")); string(got) != string(under) {
		t.Errorf("Get() len = %d, want %d", len(got), len(under))
	}
}

func TestHeader_ValuesSeesEveryOccurrenceIncludingOverflow(t *testing.T) {
	var h Header
	for i := 0; i < MaxHeaders+2; i++ {
		v := []byte{byte('0' + i%10)}
		if err := h.Add([]byte("X-Num"), v); err != nil {
			t.Fatalf("Add() #%d error = %v", i, err)
		}
	}
	got := h.Values([]byte("x-num"))
	if len(got) != MaxHeaders+2 {
		t.Fatalf("Values() len = %d, want %d", len(got), MaxHeaders+2)
	}
	for i, v := range got {
		want := byte('0' + i%10)
		if len(v) != 1 || v[0] != want {
			t.Errorf("Values()[%d] = %q, want %q", i, v, []byte{want})
		}
	}
}

func TestHeader_ResetClearsInlineAndOverflow(t *testing.T) {
	var h Header
	h.Add([]byte("A"), []byte("1"))
	for i := 0; i < MaxHeaders+1; i++ {
		h.Add([]byte("B"), []byte("2"))
	}
	h.Reset()
	if h.Count() != 0 {
		t.Errorf("Count() after Reset() = %d, want 0", h.Count())
	}
	if got := h.Get([]byte("A")); got != nil {
		t.Errorf("Get() after Reset() = %q, want nil", got)
	}
}
