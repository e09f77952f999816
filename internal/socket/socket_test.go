package socket

import "testing"

func TestResolveIPv4_WildcardHost(t *testing.T) {
	ip, port, err := resolveIPv4(":8080")
	if err != nil {
		t.Fatalf("resolveIPv4() error = %v", err)
	}
	if ip != ([4]byte{}) {
		t.Errorf("ip = %v, want zero value for wildcard host", ip)
	}
	if port != 8080 {
		t.Errorf("port = %d, want 8080", port)
	}
}

func TestResolveIPv4_Loopback(t *testing.T) {
	ip, port, err := resolveIPv4("127.0.0.1:9000")
	if err != nil {
		t.Fatalf("resolveIPv4() error = %v", err)
	}
	if ip != ([4]byte{127, 0, 0, 1}) {
		t.Errorf("ip = %v, want 127.0.0.1", ip)
	}
	if port != 9000 {
		t.Errorf("port = %d, want 9000", port)
	}
}

func TestResolveIPv4_InvalidAddress(t *testing.T) {
	if _, _, err := resolveIPv4("not-an-address"); err == nil {
		t.Error("resolveIPv4() error = nil, want error for address with no port")
	}
}
