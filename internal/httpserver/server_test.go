package httpserver

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/caturner81/server/internal/http11"
	"github.com/caturner81/server/internal/selector"
	"github.com/caturner81/server/internal/socket"
)

// listenerPort extracts the ephemeral port the kernel assigned a
// SockaddrInet4-bound listening fd, so the test client can dial it.
func listenerPort(t *testing.T, fd int) int {
	t.Helper()
	sa, err := unix.Getsockname(fd)
	if err != nil {
		t.Fatalf("Getsockname() error = %v", err)
	}
	inet4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		t.Fatalf("Getsockname() = %T, want *unix.SockaddrInet4", sa)
	}
	return inet4.Port
}

func TestServer_EndToEnd_GetHello(t *testing.T) {
	sel, err := selector.New()
	if err != nil {
		t.Fatalf("selector.New() error = %v", err)
	}

	cfg := DefaultConfig()
	registry := NewRegistry()
	registry.Register("/hello", func(req *http11.Request) *http11.Response {
		return http11.OK([]byte("hi"), []byte("text/plain"))
	})
	dateCache := http11.NewDateCache()

	srv, err := NewServer("w0", sel, cfg, registry, dateCache, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	dist, err := NewReusePortDistribution("127.0.0.1:0", 128, socket.DefaultConfig(), []*Server{srv})
	if err != nil {
		t.Fatalf("NewReusePortDistribution() error = %v", err)
	}
	port := listenerPort(t, srv.listenFD)

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	defer func() {
		srv.Shutdown()
		dist.Stop()
		<-done
	}()

	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(port), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString(status line) error = %v", err)
	}
	if !strings.HasPrefix(statusLine, "HTTP/1.1 200 OK") {
		t.Fatalf("status line = %q, want HTTP/1.1 200 OK prefix", statusLine)
	}

	var body strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if line == "\r\n" || line == "\n" {
			break
		}
		if err != nil {
			break
		}
	}
	buf := make([]byte, 2)
	if n, _ := reader.Read(buf); n > 0 {
		body.Write(buf[:n])
	}
	if body.String() != "hi" {
		t.Errorf("body = %q, want hi", body.String())
	}
}
