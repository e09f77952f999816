// Package httpserver wires the four HTTP/1.1 pipeline Services — accept,
// read, handle, write — on top of a reactor.Worker, and owns the
// Connection state machine each of those Services drives forward a step
// at a time.
package httpserver

import (
	"fmt"

	"github.com/caturner81/server/internal/http11"
	"github.com/caturner81/server/internal/pool"
	"github.com/caturner81/server/internal/reactor"
	"github.com/caturner81/server/internal/selector"
	"github.com/caturner81/server/internal/socket"
)

// ConnectionState is the Connection's lifecycle stage. The commented-out
// Handshaking state a WebSocket upgrade would need has no home here: the
// upgrade handshake is wired through internal/wsupgrade instead, never
// through this state machine.
type ConnectionState int32

const (
	StateAccepting ConnectionState = iota
	StateOpen
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateAccepting:
		return "accepting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// readyResponseQueueCapacity is the per-Connection pending-response
// capacity. newConnection always uses this value; Config's
// ReadyResponseQueueCapacity is not applied to Connections.
const readyResponseQueueCapacity = 64

// requestDequeInitialCapacity sizes the backing array of the per-Connection
// queued-requests deque. It is unbounded in design — growth is bounded
// only by how many requests a single peer has pipelined ahead of the
// handler catching up.
const requestDequeInitialCapacity = 16

// Connection is exclusively owned by one Worker for its entire lifetime;
// every field below is touched only from that Worker's goroutine, so none
// of it needs its own synchronization (spec.md §5, "no locking within a
// worker").
type Connection struct {
	fd    int
	state ConnectionState

	server *Server // non-owning back-reference; Server outlives every Connection

	parser *http11.Parser

	readBuf, writeBuf, handshakeBuf *pool.Buffer

	requests  requestDeque
	responses *reactor.Queue[*http11.Response]

	isReadQueued bool
	isReadyWrite bool
	isClosed     bool
	keepAlive    bool

	// everRead flips true the first time ConnectionReadService pulls any
	// bytes off this Connection's fd. Until then it counts toward
	// shockwave_pending_connections rather than the active gauge (spec.md
	// §9's getPendingConnectionCount decision, see DESIGN.md).
	everRead bool

	// pendingResponse holds a handler's result that RequestHandlerService
	// produced but could not yet append to the ready-response queue
	// because it was full — held here so the Service's next turn retries
	// the append instead of re-invoking the handler (spec.md §4.1,
	// suspension point (b)).
	pendingResponse *http11.Response
}

func newConnection(srv *Server, fd int) *Connection {
	return &Connection{
		fd:        fd,
		state:     StateAccepting,
		server:    srv,
		parser:    http11.NewParser(),
		responses: reactor.NewQueue[*http11.Response](readyResponseQueueCapacity),
		keepAlive: true,
	}
}

// requestDeque is a plain unbounded FIFO of parsed exchanges. It is never
// touched from more than one goroutine — both ConnectionReadService
// (producer) and RequestHandlerService (consumer) run inside the same
// Worker — so it needs no atomics, unlike reactor.Queue.
type requestDeque struct {
	items []*Exchange
	head  int
}

func (d *requestDeque) push(e *Exchange) {
	d.items = append(d.items, e)
}

func (d *requestDeque) pop() (*Exchange, bool) {
	if d.head >= len(d.items) {
		return nil, false
	}
	e := d.items[d.head]
	d.items[d.head] = nil
	d.head++
	if d.head == len(d.items) {
		d.items = d.items[:0]
		d.head = 0
	}
	return e, true
}

func (d *requestDeque) empty() bool { return d.head >= len(d.items) }

// Exchange is the parsed request plus a back-reference to the Connection
// it arrived on (spec.md §3, "HttpExchange").
type Exchange struct {
	Request *http11.Request
	Conn    *Connection
}

// open transitions an accepted socket into Open: non-blocking (already
// set by socket.Accept), TCP_NODELAY applied, selector interest set to
// read-readiness.
func (c *Connection) open() error {
	if err := socket.Tune(c.fd, c.server.socketConfig); err != nil {
		return fmt.Errorf("httpserver: tune accepted socket: %w", err)
	}
	if err := c.server.worker.RegisterFD(c.fd, selector.OpRead, func(ops selector.Op) {
		c.onReadiness(ops)
	}); err != nil {
		return fmt.Errorf("httpserver: register accepted socket: %w", err)
	}
	c.state = StateOpen
	return nil
}

// onReadiness is the selector readiness handler installed for this
// Connection's fd. It only ever enqueues the Connection onto the right
// Service; the actual read/write syscalls happen inside that Service's
// handler, never here, so readiness dispatch stays uniform regardless of
// which Service ends up doing the work.
func (c *Connection) onReadiness(ops selector.Op) {
	if c.isClosed {
		return
	}
	if ops&selector.OpRead != 0 && !c.isReadQueued {
		c.isReadQueued = true
		c.server.readSvc.Offer(c)
		// Drop read interest while queued so a still-readable fd does not
		// keep waking the selector; readHandler re-arms it via readInterest.
		var keep selector.Op
		if c.isReadyWrite {
			keep = selector.OpWrite
		}
		_ = c.server.worker.ModifyFD(c.fd, keep)
	}
	if ops&selector.OpWrite != 0 && c.isReadyWrite {
		c.isReadyWrite = false
		c.server.writerSvc.Offer(c)
	}
}

// readInterest returns the selector interest set ConnectionReadService
// should re-arm after its own turn: read-readiness is always wanted, but
// write-readiness must be preserved if rearmWrite armed it — otherwise a
// read turn racing a pending partial write would silently drop the
// write-readiness registration the writer is still waiting on.
func (c *Connection) readInterest() selector.Op {
	if c.isReadyWrite {
		return selector.OpRead | selector.OpWrite
	}
	return selector.OpRead
}

// appendResponse enqueues a handler's response and, if the ready-response
// queue was previously empty, offers the Connection to
// ResponseWriterService (spec.md §4.2: "the handler calls
// connection.appendResponse(response)").
func (c *Connection) appendResponse(r *http11.Response, step *reactor.Step) bool {
	wasEmpty := c.responses.Empty()
	if !c.responses.Offer(r) {
		step.Suspend()
		return false
	}
	if wasEmpty {
		c.server.writerSvc.Send(c, step)
	}
	return true
}

// close transitions a Connection to Closed exactly once, releasing every
// buffer it holds and cancelling its selector registration. Safe to call
// more than once; only the first call has any effect (spec.md §3,
// invariant (c)).
func (c *Connection) close(reason string) {
	if c.isClosed {
		return
	}
	c.isClosed = true
	c.state = StateClosed

	_ = c.server.worker.DeregisterFD(c.fd)
	_ = socket.Close(c.fd)

	if c.readBuf != nil {
		c.server.connPool.Release(c.readBuf)
		c.readBuf = nil
	}
	if c.writeBuf != nil {
		c.server.connPool.Release(c.writeBuf)
		c.writeBuf = nil
	}
	if c.handshakeBuf != nil {
		c.server.handshakePool.Release(c.handshakeBuf)
		c.handshakeBuf = nil
	}

	delete(c.server.connections, c.fd)
	c.server.reportMetrics()
	c.server.logger.Debug().Str("worker", c.server.worker.Name()).Int("fd", c.fd).Str("reason", reason).Msg("connection closed")
}
