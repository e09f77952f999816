package reactor

// Handler is the cooperative body of a Service. It is invoked once per
// queued message and may call Step.Suspend to report that it could not
// make progress this turn (e.g. a downstream queue is full) — the Worker
// retries the Service later instead of busy-looping (spec.md §4.1,
// "Suspension points").
type Handler[T any] func(msg T, step *Step)

// Step is handed to a Handler on every invocation. It exposes exactly the
// primitive a cooperative task needs beyond its own queue: a way to say
// "park me, retry later" without the Service package knowing anything
// about Connections, HttpExchanges, or any other L2 concept.
type Step struct {
	suspended bool
}

// Suspend marks this turn as having stopped early due to backpressure.
func (s *Step) Suspend() { s.suspended = true }

// Scheduled is the Worker-facing view of a Service, erased of its message
// type so a single Worker can hold services carrying different payloads
// (e.g. raw fds on the accept queue, *Connection on the read, handler
// and writer queues) in one ready list.
type Scheduled interface {
	// Name identifies the Service for diagnostics and shutdown draining.
	Name() string
	// runTurn pops and handles exactly one queued message, returning
	// whether the Service made progress (popped something) and whether it
	// suspended while doing so.
	runTurn() (progressed, suspended bool)
	// Empty reports whether the Service's input queue currently holds no
	// messages.
	Empty() bool
	// tryMarkQueued reports whether the Service was not already present in
	// the Worker's ready/suspended rotation, atomically marking it queued
	// if so. Called only while the Worker holds readyMu, so a Service
	// never ends up in that rotation twice.
	tryMarkQueued() bool
	// clearQueued marks the Service absent from the Worker's rotation
	// again, once a turn leaves it with no further work pending.
	clearQueued()
}

// Service is a cooperative task with a bounded, typed input queue
// (spec.md §3, "Service"). It is scheduled by the Worker whenever its
// queue transitions from empty to non-empty, and each scheduling turn
// processes exactly one queued message so the Worker's ready list stays
// fair across Services.
type Service[T any] struct {
	name    string
	queue   *Queue[T]
	handler Handler[T]

	onWake func() // set by Worker.Spawn; readies this Service

	queued bool // already present in the Worker's ready/suspended rotation
}

// tryMarkQueued and clearQueued back the Scheduled interface's queued
// bookkeeping. Both are only ever called by the owning Worker while it
// holds readyMu, so the plain bool needs no atomic of its own.
func (s *Service[T]) tryMarkQueued() bool {
	if s.queued {
		return false
	}
	s.queued = true
	return true
}

func (s *Service[T]) clearQueued() { s.queued = false }

// NewService creates a named Service with the given input queue capacity
// and per-message handler. Register it with a Worker via Spawn before the
// Worker's Run is called — the design forbids spawning after start
// (spec.md §4.1, "spawn(service)").
func NewService[T any](name string, queueCapacity int, handler Handler[T]) *Service[T] {
	return &Service[T]{
		name:    name,
		queue:   NewQueue[T](queueCapacity),
		handler: handler,
	}
}

// Name returns the Service's identity, used for routing and diagnostics.
func (s *Service[T]) Name() string { return s.name }

// Empty reports whether the input queue currently holds no messages.
func (s *Service[T]) Empty() bool { return s.queue.Empty() }

// Len reports the number of queued messages.
func (s *Service[T]) Len() int { return s.queue.Len() }

// Offer performs a non-blocking try-enqueue (spec.md §4.1: "offer is a
// non-blocking try-enqueue returning a success flag"). On a successful
// enqueue into a previously empty queue it wakes the Service so the
// Worker schedules it.
func (s *Service[T]) Offer(msg T) bool {
	wasEmpty := s.queue.Empty()
	if !s.queue.Offer(msg) {
		return false
	}
	if wasEmpty && s.onWake != nil {
		s.onWake()
	}
	return true
}

// Send is the cooperative counterpart to Offer: it still never blocks the
// calling goroutine (the design forbids blocking the worker thread), but
// on failure it marks the caller's Step as suspended so the Worker retries
// later instead of dropping the message (spec.md §4.1: "calls send on a
// full downstream queue"). Callers are expected to retain whatever they
// were trying to send — typically by not having consumed their own input
// yet — and re-attempt on the next turn.
func (s *Service[T]) Send(msg T, step *Step) bool {
	if s.Offer(msg) {
		return true
	}
	step.Suspend()
	return false
}

// runTurn pops one message, if any, and runs the handler on it.
func (s *Service[T]) runTurn() (progressed, suspended bool) {
	msg, ok := s.queue.Pop()
	if !ok {
		return false, false
	}
	step := &Step{}
	s.handler(msg, step)
	return true, step.suspended
}
