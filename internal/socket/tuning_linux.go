//go:build linux

package socket

import "golang.org/x/sys/unix"

// Linux TCP options not exposed as named constants by golang.org/x/sys/unix
// on every supported kernel/arch combination.
const (
	tcpDeferAccept = 0x9 // TCP_DEFER_ACCEPT
	tcpQuickAck    = 0xc // TCP_QUICKACK
)

func setReusePort(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}

// applyPlatformOptions applies Linux-only per-connection options.
// TCP_QUICKACK is not persistent — it is cleared after the next ACK — so
// this is a best-effort hint, not a durable setting.
func applyPlatformOptions(fd int, cfg *Config) {
	if cfg.QuickAck {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpQuickAck, 1)
	}
}

// applyListenerOptions applies Linux-only listener options. Deferred
// accept keeps the worker from waking until the client has actually sent
// data, trading a little latency on the first byte for far fewer wakeups
// on connections that never send anything (health-checkers, scanners).
func applyListenerOptions(fd int, cfg *Config) {
	if cfg.DeferAccept {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpDeferAccept, 1)
	}
}

// SetQuickAck re-applies TCP_QUICKACK after a read, since the kernel
// clears it once an ACK goes out. ConnectionReadService calls this after
// every successful read when QuickAck tuning is enabled.
func SetQuickAck(fd int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpQuickAck, 1)
}
