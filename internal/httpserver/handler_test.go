package httpserver

import (
	"testing"

	"github.com/caturner81/server/internal/http11"
)

func TestRegistry_ExactMatchLookup(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("/hello", func(req *http11.Request) *http11.Response {
		called = true
		return http11.OK([]byte("hi"), nil)
	})

	h := r.Lookup([]byte("/hello"))
	h(nil)
	if !called {
		t.Error("Lookup() did not return the registered handler")
	}
}

func TestRegistry_NoMatchFallsBackToNotFound(t *testing.T) {
	r := NewRegistry()
	h := r.Lookup([]byte("/missing"))
	resp := h(nil)
	if resp.Code != 404 {
		t.Errorf("fallback handler Code = %d, want 404", resp.Code)
	}
}

func TestRegistry_PrefixDoesNotMatch(t *testing.T) {
	r := NewRegistry()
	r.Register("/hello", func(req *http11.Request) *http11.Response {
		return http11.OK(nil, nil)
	})
	h := r.Lookup([]byte("/hello/world"))
	if resp := h(nil); resp.Code != 404 {
		t.Errorf("Lookup() on a non-exact path matched, want 404 fallback (exact-match only per spec)")
	}
}

func TestRegistry_RegisterAllBulk(t *testing.T) {
	r := NewRegistry()
	r.RegisterAll(map[string]Handler{
		"/a": func(req *http11.Request) *http11.Response { return http11.NoContent() },
		"/b": func(req *http11.Request) *http11.Response { return http11.NoContent() },
	})
	if resp := r.Lookup([]byte("/a"))(nil); resp.Code != 204 {
		t.Errorf("/a Code = %d, want 204", resp.Code)
	}
	if resp := r.Lookup([]byte("/b"))(nil); resp.Code != 204 {
		t.Errorf("/b Code = %d, want 204", resp.Code)
	}
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	r := NewRegistry()
	r.Register("/a", func(req *http11.Request) *http11.Response { return http11.NoContent() })

	clone := r.Clone()
	clone.Register("/b", func(req *http11.Request) *http11.Response { return http11.NoContent() })

	if resp := r.Lookup([]byte("/b")); resp(nil).Code != 404 {
		t.Error("original registry saw a route registered only on its clone")
	}
	if resp := clone.Lookup([]byte("/a")); resp(nil).Code != 204 {
		t.Error("clone did not inherit a route registered before Clone() was called")
	}
}
