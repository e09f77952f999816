// Package socket builds and tunes the raw, non-blocking listening and
// connection sockets the reactor registers with its selector directly —
// there is no net.Listener/net.Conn anywhere on this path, since mixing
// Go's own netpoller with a second, hand-rolled epoll/kqueue loop over the
// same descriptors would race both pollers against each other. Platform
// tuning knobs live in tuning_linux.go, tuning_darwin.go and
// tuning_other.go, following the split the rest of this package is
// modeled on.
package socket

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// Config mirrors the tunable knobs a listening or accepted socket may
// want applied. Zero values mean "leave the system default".
type Config struct {
	NoDelay     bool
	RecvBuffer  int
	SendBuffer  int
	QuickAck    bool
	DeferAccept bool
	ReusePort   bool
	KeepAlive   bool
}

// DefaultConfig mirrors the recommended baseline for HTTP/1.1 workloads:
// Nagle's algorithm off, keepalive on, deferred accept on where the
// platform supports it.
func DefaultConfig() *Config {
	return &Config{
		NoDelay:     true,
		RecvBuffer:  256 * 1024,
		SendBuffer:  256 * 1024,
		QuickAck:    true,
		DeferAccept: true,
		KeepAlive:   true,
	}
}

// resolveIPv4 splits an "host:port" address into a 4-byte IP and a port
// number. Only IPv4 is supported; binding to a specific IPv6 address is
// not needed by any distribution strategy this engine implements.
func resolveIPv4(address string) ([4]byte, int, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return [4]byte{}, 0, fmt.Errorf("socket: invalid address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return [4]byte{}, 0, fmt.Errorf("socket: invalid port %q: %w", portStr, err)
	}

	var ip [4]byte
	if host == "" {
		return ip, port, nil // INADDR_ANY
	}
	parsed := net.ParseIP(host).To4()
	if parsed == nil {
		resolved, err := net.ResolveIPAddr("ip4", host)
		if err != nil {
			return ip, 0, fmt.Errorf("socket: resolving %q: %w", host, err)
		}
		parsed = resolved.IP.To4()
	}
	copy(ip[:], parsed)
	return ip, port, nil
}

// Listen creates a non-blocking IPv4 TCP listening socket bound to
// address. When cfg.ReusePort is set, SO_REUSEPORT is applied before
// bind so that multiple workers may each own an independent listen
// socket on the same address (spec.md §4.5's SO_REUSEPORT distribution
// strategy) — the kernel load-balances accepts across them.
func Listen(address string, backlog int, cfg *Config) (fd int, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ip, port, err := resolveIPv4(address)
	if err != nil {
		return -1, err
	}

	fd, err = unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: socket(): %w", err)
	}
	defer func() {
		if err != nil {
			unix.Close(fd)
		}
	}()

	if err = unix.SetNonblock(fd, true); err != nil {
		return -1, fmt.Errorf("socket: set nonblocking: %w", err)
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return -1, fmt.Errorf("socket: SO_REUSEADDR: %w", err)
	}
	if cfg.ReusePort {
		if err = setReusePort(fd); err != nil {
			return -1, fmt.Errorf("socket: SO_REUSEPORT: %w", err)
		}
	}

	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	if err = unix.Bind(fd, sa); err != nil {
		return -1, fmt.Errorf("socket: bind(%s): %w", address, err)
	}
	if backlog <= 0 {
		backlog = 1024
	}
	if err = unix.Listen(fd, backlog); err != nil {
		return -1, fmt.Errorf("socket: listen(): %w", err)
	}

	applyListenerOptions(fd, cfg)
	return fd, nil
}

// ListenBlocking creates the same listening socket as Listen but leaves
// it in blocking mode, for the dedicated RoundRobinDistribution acceptor
// goroutine: that goroutine isn't a reactor worker, so blocking in
// accept() between connections is fine and avoids a busy-poll loop
// (spec.md §4.5, "the acceptor runs on a dedicated thread").
func ListenBlocking(address string, backlog int, cfg *Config) (fd int, err error) {
	fd, err = Listen(address, backlog, cfg)
	if err != nil {
		return -1, err
	}
	if err = unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("socket: clear nonblocking: %w", err)
	}
	return fd, nil
}

// Accept performs a single accept on a listening socket and returns the
// new fd in non-blocking mode. The call blocks only if the listening
// socket is in blocking mode (see ListenBlocking). On a non-blocking
// listener unix.EAGAIN is returned verbatim so selector-driven callers
// can distinguish "no pending connection" from a real failure.
func Accept(listenFD int) (fd int, err error) {
	nfd, _, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK)
	if err != nil {
		return -1, err
	}
	return nfd, nil
}

// Tune applies the cross-platform connection options — TCP_NODELAY,
// buffer sizes, keepalive — directly to an accepted connection's fd, the
// raw-fd equivalent of the teacher's Apply(conn net.Conn, cfg) (here
// there is no net.Conn to unwrap: the fd came straight out of Accept).
func Tune(fd int, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.NoDelay {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("socket: TCP_NODELAY: %w", err)
		}
	}
	if cfg.RecvBuffer > 0 {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, cfg.RecvBuffer)
	}
	if cfg.SendBuffer > 0 {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, cfg.SendBuffer)
	}
	if cfg.KeepAlive {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	}
	applyPlatformOptions(fd, cfg)
	return nil
}

// Close closes a raw socket fd, swallowing EBADF from a double-close —
// Connection shutdown and worker teardown can both reach this for the
// same fd during an ungraceful disconnect race.
func Close(fd int) error {
	err := unix.Close(fd)
	if err == unix.EBADF {
		return nil
	}
	return err
}
