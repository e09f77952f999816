//go:build linux

package selector

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollSelector is the Linux readiness backend. Grounded on the teacher's
// own platform-specific socket tuning split (socket/tuning_linux.go,
// tuning_darwin.go) — the reactor follows the same per-OS file layout for
// its own syscall surface.
type epollSelector struct {
	epfd int
	// interest mirrors what's currently registered, so Modify can compute
	// EPOLL_CTL_MOD vs EPOLL_CTL_ADD without an extra syscall round trip.
	interest map[int]Op
}

// New creates the platform-default Selector (epoll on linux).
func New() (Selector, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollSelector{epfd: epfd, interest: make(map[int]Op, 1024)}, nil
}

func toEpollEvents(ops Op) uint32 {
	var e uint32
	if ops&OpRead != 0 {
		e |= unix.EPOLLIN
	}
	if ops&OpWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func (s *epollSelector) Register(fd int, ops Op) error {
	ev := unix.EpollEvent{Events: toEpollEvents(ops), Fd: int32(fd)}
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return err
	}
	s.interest[fd] = ops
	return nil
}

func (s *epollSelector) Modify(fd int, ops Op) error {
	if _, ok := s.interest[fd]; !ok {
		return s.Register(fd, ops)
	}
	ev := unix.EpollEvent{Events: toEpollEvents(ops), Fd: int32(fd)}
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return err
	}
	s.interest[fd] = ops
	return nil
}

func (s *epollSelector) Deregister(fd int) error {
	if _, ok := s.interest[fd]; !ok {
		return nil
	}
	delete(s.interest, fd)
	err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

func (s *epollSelector) Wait(dst []Event, timeout time.Duration) ([]Event, error) {
	millis := -1
	if timeout >= 0 {
		millis = int(timeout / time.Millisecond)
	}

	raw := make([]unix.EpollEvent, 256)
	n, err := unix.EpollWait(s.epfd, raw, millis)
	if err != nil {
		if err == unix.EINTR {
			return dst[:0], nil
		}
		return dst[:0], err
	}

	dst = dst[:0]
	for i := 0; i < n; i++ {
		var ops Op
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			ops |= OpRead
		}
		if raw[i].Events&(unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			ops |= OpWrite
		}
		dst = append(dst, Event{Fd: int(raw[i].Fd), Ops: ops})
	}
	return dst, nil
}

func (s *epollSelector) Close() error {
	return unix.Close(s.epfd)
}
