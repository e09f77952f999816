// Package selector wraps the OS readiness-notification facility (epoll on
// Linux, kqueue on BSD/Darwin) behind one small interface so the reactor
// package never imports a platform syscall directly (spec.md §4, Tier L0
// "readiness selector abstraction over the OS event-notification facility").
package selector

import "time"

// Op is a bitmask of readiness interests.
type Op uint8

const (
	// OpRead requests notification when the fd has data to read or, for a
	// listening socket, a pending connection to accept.
	OpRead Op = 1 << iota
	// OpWrite requests notification when the fd can accept more write data.
	OpWrite
)

// Event reports that a registered fd became ready for one or more Ops.
type Event struct {
	Fd  int
	Ops Op
}

// Selector is the minimal readiness-notification contract the Worker needs.
// Implementations are not safe for concurrent use — each Selector is owned
// exclusively by the Worker goroutine that created it, consistent with
// spec.md §5 ("no locking within a worker").
type Selector interface {
	// Register starts watching fd for the given interest set.
	Register(fd int, ops Op) error
	// Modify changes fd's interest set (e.g. clearing OpRead after a
	// connection is queued for ConnectionReadService, or adding OpWrite
	// after a partial response write).
	Modify(fd int, ops Op) error
	// Deregister stops watching fd. Safe to call on an fd that was never
	// registered or was already deregistered (spec.md §4.2:
	// "CancelledKeyException while re-registering interest → Connection is
	// already Closed, swallow").
	Deregister(fd int) error
	// Wait blocks up to timeout for readiness events, appending them to
	// dst[:0] and returning the resulting slice. A timeout of 0 polls
	// without blocking (spec.md §4.1: "poll the selector non-blockingly"
	// when a Service is already ready to run).
	Wait(dst []Event, timeout time.Duration) ([]Event, error)
	// Close releases the underlying OS handle.
	Close() error
}
