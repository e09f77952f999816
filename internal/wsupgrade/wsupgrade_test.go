package wsupgrade

import (
	"testing"

	"github.com/caturner81/server/internal/http11"
)

func newUpgradeRequest(t *testing.T) *http11.Request {
	t.Helper()
	req := &http11.Request{}
	adds := [][2]string{
		{"Host", "example.com"},
		{"Upgrade", "websocket"},
		{"Connection", "Upgrade"},
		{"Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ=="},
		{"Sec-WebSocket-Version", "13"},
	}
	for _, kv := range adds {
		if err := req.Header.Add([]byte(kv[0]), []byte(kv[1])); err != nil {
			t.Fatalf("Header.Add(%q) error = %v", kv[0], err)
		}
	}
	return req
}

func TestNegotiate_ValidUpgrade_ReturnsRFC6455AcceptKey(t *testing.T) {
	req := newUpgradeRequest(t)

	key, ok := Negotiate(req)
	if !ok {
		t.Fatal("Negotiate() ok = false, want true")
	}
	const want = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if key != want {
		t.Errorf("Negotiate() key = %q, want %q", key, want)
	}
}

func TestNegotiate_MissingUpgradeHeader_NotOk(t *testing.T) {
	req := &http11.Request{}
	_ = req.Header.Add([]byte("Host"), []byte("example.com"))

	if _, ok := Negotiate(req); ok {
		t.Error("Negotiate() ok = true for a plain GET, want false")
	}
}

func TestNegotiate_MissingSecWebSocketKey_NotOk(t *testing.T) {
	req := &http11.Request{}
	_ = req.Header.Add([]byte("Upgrade"), []byte("websocket"))
	_ = req.Header.Add([]byte("Connection"), []byte("Upgrade"))

	if _, ok := Negotiate(req); ok {
		t.Error("Negotiate() ok = true without Sec-WebSocket-Key, want false")
	}
}
