//go:build darwin

package socket

import "golang.org/x/sys/unix"

func setReusePort(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}

// applyPlatformOptions has nothing Darwin-specific to add beyond the
// cross-platform options Tune already applies; TCP_QUICKACK has no BSD
// equivalent.
func applyPlatformOptions(fd int, cfg *Config) {}

// applyListenerOptions: Darwin has no TCP_DEFER_ACCEPT equivalent exposed
// through golang.org/x/sys/unix.
func applyListenerOptions(fd int, cfg *Config) {}

// SetQuickAck is a no-op on Darwin; kept so callers don't need a build
// tag of their own.
func SetQuickAck(fd int) error { return nil }
