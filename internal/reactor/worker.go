package reactor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/caturner81/server/internal/selector"
)

// ReadinessHandler reacts to a readiness event for one registered fd. It is
// invoked on the Worker's own goroutine, so it may freely mutate any state
// owned by that Worker (spec.md §5: "no locking within a worker").
type ReadinessHandler func(ops selector.Op)

// Worker owns exactly one selector, a fixed list of Services installed
// before Run is called, and the registered-fd → readiness-handler table
// that the L2 connection layer populates. All of it is touched from a
// single goroutine; Wake and Shutdown are the only entry points safe to
// call cross-goroutine, used respectively by an external acceptor to
// hand a Worker fresh work and by whatever composes the server to
// request a graceful stop (spec.md §4.1, "Tier L1 — worker runtime").
type Worker struct {
	name     string
	sel      selector.Selector
	services []Scheduled

	// readyMu guards ready: wake() can run on a foreign goroutine (a
	// Distribution's acceptor calling Service.Offer directly, not through
	// Wake), racing against Run's own goroutine otherwise. Every other
	// Worker field is touched only from Run's goroutine and stays
	// unsynchronized.
	readyMu sync.Mutex
	ready   []Scheduled

	handlers map[int]ReadinessHandler

	// wakeR/wakeW are a self-pipe used to interrupt a blocked selector.Wait
	// when another goroutine (the acceptor) enqueues work for this worker
	// — the standard reactor idiom for waking an otherwise-blocking poll
	// loop without adding locking to the hot path.
	wakeR, wakeW int

	// shuttingDown and shutdownFn let Shutdown be called from a goroutine
	// other than Run's: Shutdown only signals, it never touches handlers,
	// ready, or the selector directly, since those are Run's alone.
	// shutdownFn is written before the atomic Store and read only after a
	// Load observes it — the Store/Load pair gives the happens-before edge
	// that makes the plain field safe to read without its own atomic.
	shuttingDown atomic.Bool
	shutdownFn   func(fd int)
}

// NewWorker creates a Worker bound to sel. sel must not be shared with any
// other Worker.
func NewWorker(name string, sel selector.Selector) (*Worker, error) {
	fds, err := pipe()
	if err != nil {
		return nil, fmt.Errorf("reactor: create wakeup pipe: %w", err)
	}
	w := &Worker{
		name:     name,
		sel:      sel,
		handlers: make(map[int]ReadinessHandler, 256),
		wakeR:    fds[0],
		wakeW:    fds[1],
	}
	if err := sel.Register(w.wakeR, selector.OpRead); err != nil {
		unix.Close(w.wakeR)
		unix.Close(w.wakeW)
		return nil, fmt.Errorf("reactor: register wakeup pipe: %w", err)
	}
	w.handlers[w.wakeR] = func(selector.Op) { w.drainWakePipe() }
	return w, nil
}

func pipe() ([2]int, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return fds, err
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return fds, err
		}
	}
	return fds, nil
}

func (w *Worker) drainWakePipe() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Name identifies the Worker for logging and metrics labeling.
func (w *Worker) Name() string { return w.name }

// Spawn registers a Service with the Worker, wiring its wake callback so
// a successful Offer/Send into a previously empty queue readies it on
// this Worker. Spawn must be called for every Service before Run —
// dynamic spawning after start is not supported (spec.md §4.1,
// "spawn(service)").
func Spawn[T any](w *Worker, svc *Service[T]) {
	svc.onWake = func() { w.wake(svc) }
	w.services = append(w.services, svc)
}

// wake readies svc if it isn't already in the ready list (spec.md §4.1,
// "wake(service) ... idempotent if the Service is already ready"). Called
// via Service.onWake, which may run on whatever goroutine called Offer —
// not necessarily this Worker's own — so it takes readyMu.
func (w *Worker) wake(svc Scheduled) {
	w.readyMu.Lock()
	if svc.tryMarkQueued() {
		w.ready = append(w.ready, svc)
	}
	w.readyMu.Unlock()
}

// Wake notifies this Worker from another goroutine that it has new work
// — used by an acceptor distribution strategy hand-off (spec.md §4.5)
// after it offers a socket onto the Worker's accept-service queue. The
// offer itself already marks the Service ready via its own wake callback;
// Wake's job is solely to break the Worker out of a blocked selector.Wait.
func (w *Worker) Wake() {
	var b [1]byte
	_, _ = unix.Write(w.wakeW, b[:])
}

// RegisterFD begins watching fd for ops, dispatching future readiness
// events to handle on this Worker's goroutine.
func (w *Worker) RegisterFD(fd int, ops selector.Op, handle ReadinessHandler) error {
	if err := w.sel.Register(fd, ops); err != nil {
		return err
	}
	w.handlers[fd] = handle
	return nil
}

// ModifyFD changes fd's interest set, e.g. clearing OpRead once a
// Connection has been queued for ConnectionReadService, or re-arming
// OpWrite after a partial response write (spec.md §4.2).
func (w *Worker) ModifyFD(fd int, ops selector.Op) error {
	return w.sel.Modify(fd, ops)
}

// DeregisterFD stops watching fd and forgets its handler. Safe to call
// more than once for the same fd (spec.md §4.2, Connection is already
// Closed case).
func (w *Worker) DeregisterFD(fd int) error {
	delete(w.handlers, fd)
	return w.sel.Deregister(fd)
}

const (
	selectorEventBatch = 256
	// idlePollTimeout bounds how long Run blocks on the selector when no
	// Service is ready, so work queued from another goroutine without a
	// Wake (e.g. Server.RegisterUrlHandlers) is still picked up. Suspended
	// Services do not wait on it: they rejoin the ready list as soon as it
	// empties.
	idlePollTimeout = 100 * time.Millisecond
)

// Run is the Worker's main loop: it interleaves selector readiness with
// Service execution until Shutdown is called, never blocking on anything
// but the selector itself (spec.md §4.1, "run()").
func (w *Worker) Run() error {
	events := make([]selector.Event, 0, selectorEventBatch)
	var suspended []Scheduled

	for !w.shuttingDown.Load() {
		w.readyMu.Lock()
		readyLen := len(w.ready)
		w.readyMu.Unlock()

		timeout := idlePollTimeout
		if readyLen > 0 {
			timeout = 0 // non-blocking poll: there's scheduler work waiting
		}

		var err error
		events, err = w.sel.Wait(events, timeout)
		if err != nil {
			return fmt.Errorf("reactor: worker %s selector wait: %w", w.name, err)
		}
		for _, ev := range events {
			if handle, ok := w.handlers[ev.Fd]; ok {
				handle(ev.Ops)
			}
		}

		w.readyMu.Lock()
		if len(w.ready) == 0 {
			if len(suspended) > 0 {
				w.ready = append(w.ready, suspended...)
				suspended = suspended[:0]
			}
			w.readyMu.Unlock()
			continue
		}

		svc := w.ready[0]
		w.ready = w.ready[1:]
		w.readyMu.Unlock()

		progressed, isSuspended := svc.runTurn()
		switch {
		case isSuspended:
			// Stays marked queued: still in the rotation (suspended,
			// not gone), so a concurrent wake must not double-add it.
			suspended = append(suspended, svc)
		case progressed && !svc.Empty():
			// More work queued: stay in rotation rather than waiting for
			// the next wake (the queue is already non-empty, so a fresh
			// wake would be a no-op against the queued flag anyway).
			w.readyMu.Lock()
			w.ready = append(w.ready, svc)
			w.readyMu.Unlock()
		default:
			// Drained for now: leaving the rotation, so the next Offer
			// into an empty queue must be able to wake it again.
			w.readyMu.Lock()
			svc.clearQueued()
			w.readyMu.Unlock()
		}
	}

	if w.shutdownFn != nil {
		for fd := range w.handlers {
			if fd == w.wakeR {
				continue
			}
			w.shutdownFn(fd)
		}
	}
	_ = w.sel.Close()
	unix.Close(w.wakeR)
	unix.Close(w.wakeW)
	return nil
}

// Shutdown requests that Run exit after the current Service yields, then
// invoke onShutdown(fd) for every still-registered fd so the caller
// (which owns the Connection-to-fd mapping) can close each Connection
// with a shutdown reason. Individual close errors are the caller's
// concern to swallow (spec.md §4.1, "onShutdown"). Safe to call from any
// goroutine — the actual iteration and selector teardown happen inside
// Run, on the Worker's own goroutine, once it observes the flag.
func (w *Worker) Shutdown(onShutdown func(fd int)) {
	w.shutdownFn = onShutdown
	w.shuttingDown.Store(true)
	w.Wake()
}
