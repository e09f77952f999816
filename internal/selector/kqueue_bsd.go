//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package selector

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueueSelector is the BSD/Darwin readiness backend, the counterpart to
// epollSelector. Grounded the same way: the teacher ships a dedicated
// socket/tuning_darwin.go alongside tuning_linux.go, so the reactor mirrors
// that per-OS split for its own event facility.
type kqueueSelector struct {
	kq       int
	interest map[int]Op
}

// New creates the platform-default Selector (kqueue on BSD/Darwin).
func New() (Selector, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueSelector{kq: kq, interest: make(map[int]Op, 1024)}, nil
}

func (s *kqueueSelector) changeList(fd int, from, to Op) []unix.Kevent_t {
	var changes []unix.Kevent_t
	wantRead := to&OpRead != 0
	hadRead := from&OpRead != 0
	if wantRead != hadRead {
		flag := uint16(unix.EV_ADD | unix.EV_ENABLE)
		if !wantRead {
			flag = unix.EV_DELETE
		}
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flag})
	}
	wantWrite := to&OpWrite != 0
	hadWrite := from&OpWrite != 0
	if wantWrite != hadWrite {
		flag := uint16(unix.EV_ADD | unix.EV_ENABLE)
		if !wantWrite {
			flag = unix.EV_DELETE
		}
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flag})
	}
	return changes
}

func (s *kqueueSelector) Register(fd int, ops Op) error {
	changes := s.changeList(fd, 0, ops)
	if len(changes) > 0 {
		if _, err := unix.Kevent(s.kq, changes, nil, nil); err != nil {
			return err
		}
	}
	s.interest[fd] = ops
	return nil
}

func (s *kqueueSelector) Modify(fd int, ops Op) error {
	prev := s.interest[fd]
	changes := s.changeList(fd, prev, ops)
	if len(changes) > 0 {
		if _, err := unix.Kevent(s.kq, changes, nil, nil); err != nil {
			return err
		}
	}
	s.interest[fd] = ops
	return nil
}

func (s *kqueueSelector) Deregister(fd int) error {
	prev, ok := s.interest[fd]
	if !ok {
		return nil
	}
	delete(s.interest, fd)
	changes := s.changeList(fd, prev, 0)
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(s.kq, changes, nil, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

func (s *kqueueSelector) Wait(dst []Event, timeout time.Duration) ([]Event, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	raw := make([]unix.Kevent_t, 256)
	n, err := unix.Kevent(s.kq, nil, raw, ts)
	if err != nil {
		if err == unix.EINTR {
			return dst[:0], nil
		}
		return dst[:0], err
	}

	dst = dst[:0]
	for i := 0; i < n; i++ {
		var ops Op
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			ops = OpRead
		case unix.EVFILT_WRITE:
			ops = OpWrite
		}
		dst = append(dst, Event{Fd: int(raw[i].Ident), Ops: ops})
	}
	return dst, nil
}

func (s *kqueueSelector) Close() error {
	return unix.Close(s.kq)
}
