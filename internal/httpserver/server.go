package httpserver

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/caturner81/server/internal/http11"
	"github.com/caturner81/server/internal/metrics"
	"github.com/caturner81/server/internal/pool"
	"github.com/caturner81/server/internal/reactor"
	"github.com/caturner81/server/internal/selector"
	"github.com/caturner81/server/internal/socket"
)

// Config enumerates the per-worker knobs spec.md §6 lists under "Worker
// configuration". Address/workerCount/reusePort are consumed one level up
// (by whatever composes N Servers and a Distribution); everything here
// shapes a single Server instance.
type Config struct {
	ConnectionBufferSize       int
	HandshakeBufferSize        int
	ReadyResponseQueueCapacity int
	AcceptQueueCapacity        int
	ReadQueueCapacity          int
	HandlerQueueCapacity       int
	WriterQueueCapacity        int
	ServerName                 string
	SocketConfig               *socket.Config
}

// DefaultConfig mirrors the sizes spec.md names explicitly, falling back
// to the socket package's own recommended tuning when SocketConfig is
// left nil.
func DefaultConfig() Config {
	return Config{
		ConnectionBufferSize:       64 * 1024,
		HandshakeBufferSize:        4 * 1024,
		ReadyResponseQueueCapacity: readyResponseQueueCapacity,
		AcceptQueueCapacity:        256,
		ReadQueueCapacity:          1024,
		HandlerQueueCapacity:       1024,
		WriterQueueCapacity:        1024,
		ServerName:                 "server",
		SocketConfig:               socket.DefaultConfig(),
	}
}

// Server binds one reactor.Worker to the four HTTP/1.1 pipeline Services
// and the buffer pools, registry, and date cache they share. Every field
// is touched only from the bound Worker's goroutine once Run starts.
type Server struct {
	worker *reactor.Worker

	connPool      *pool.Pool
	handshakePool *pool.Pool

	registry   *Registry
	dateCache  *http11.DateCache
	serverName string

	socketConfig *socket.Config

	connections map[int]*Connection

	acceptSvc   *reactor.Service[int]
	readSvc     *reactor.Service[*Connection]
	handlerSvc  *reactor.Service[*Connection]
	writerSvc   *reactor.Service[*Connection]
	registrySvc *reactor.Service[map[string]Handler]

	listenFD int // set only in SO_REUSEPORT mode; 0 otherwise

	logger    zerolog.Logger
	collector *metrics.WorkerCollector
}

// NewServer wires one Worker's Services together. cfg's Service
// queue-capacity fields are rounded up to the next power of two by
// reactor.NewQueue; cfg.ReadyResponseQueueCapacity is not read here.
func NewServer(name string, sel selector.Selector, cfg Config, registry *Registry, dateCache *http11.DateCache, logger zerolog.Logger) (*Server, error) {
	w, err := reactor.NewWorker(name, sel)
	if err != nil {
		return nil, fmt.Errorf("httpserver: new worker: %w", err)
	}

	srv := &Server{
		worker:        w,
		connPool:      pool.New(cfg.ConnectionBufferSize),
		handshakePool: pool.New(cfg.HandshakeBufferSize),
		registry:      registry,
		dateCache:     dateCache,
		serverName:    cfg.ServerName,
		socketConfig:  cfg.SocketConfig,
		connections:   make(map[int]*Connection, 1024),
		logger:        logger.With().Str("worker", name).Logger(),
		collector:     metrics.NewWorkerCollector(name),
	}

	srv.acceptSvc = reactor.NewService("accept", cfg.AcceptQueueCapacity, srv.acceptHandler)
	srv.readSvc = reactor.NewService("read", cfg.ReadQueueCapacity, srv.readHandler)
	srv.handlerSvc = reactor.NewService("handle", cfg.HandlerQueueCapacity, srv.handlerHandler)
	srv.writerSvc = reactor.NewService("write", cfg.WriterQueueCapacity, srv.writerHandler)
	srv.registrySvc = reactor.NewService("registry", 16, srv.registryHandler)

	reactor.Spawn(w, srv.acceptSvc)
	reactor.Spawn(w, srv.readSvc)
	reactor.Spawn(w, srv.handlerSvc)
	reactor.Spawn(w, srv.writerSvc)
	reactor.Spawn(w, srv.registrySvc)

	return srv, nil
}

// Name returns the underlying Worker's identity.
func (srv *Server) Name() string { return srv.worker.Name() }

// registerOwnListener is used by ReusePortDistribution: the Worker owns this
// listen socket outright and accepts locally rather than receiving
// sockets from an external RoundRobinDistribution.
func (srv *Server) registerOwnListener(fd int) error {
	srv.listenFD = fd
	return srv.worker.RegisterFD(fd, selector.OpRead, func(ops selector.Op) {
		srv.acceptLocal()
	})
}

// acceptLocal drains every pending connection on this Worker's own
// SO_REUSEPORT listen socket in one readiness callback, offering each to
// the local ConnectionAcceptService queue directly — no cross-goroutine
// handoff is needed since both run on this Worker's goroutine.
func (srv *Server) acceptLocal() {
	for {
		fd, err := socket.Accept(srv.listenFD)
		if err != nil {
			return // EAGAIN: drained for now
		}
		if !srv.acceptSvc.Offer(fd) {
			_ = socket.Close(fd)
		}
	}
}

// RegisterUrlHandlers broadcasts a route table update onto this Server's
// registry Service (spec.md §5, "broadcasting a RegisterUrlHandlers
// message onto every worker's inter-worker queue"). Callers driving a
// multi-worker deployment call this once per Server.
func (srv *Server) RegisterUrlHandlers(routes map[string]Handler) bool {
	return srv.registrySvc.Offer(routes)
}

// Run starts the Worker's main loop; it blocks until Shutdown causes it
// to return.
func (srv *Server) Run() error {
	return srv.worker.Run()
}

// Shutdown asks the Worker's main loop to stop; once it has, Run closes
// every owned Connection with a shutdown reason and the listen socket, if
// any (spec.md §4.1, "onShutdown"). It returns without waiting for that.
func (srv *Server) Shutdown() {
	srv.worker.Shutdown(func(fd int) {
		if fd == srv.listenFD {
			_ = unix.Close(fd)
			return
		}
		if conn, ok := srv.connections[fd]; ok {
			conn.close("Server is shutting down.")
		}
	})
}

// ConnectionCount reports how many Connections this Worker currently
// owns — the metric spec.md §9 flags as unimplemented in the source
// ("getActiveConnectionCount throws unconditionally"); here it is simply
// the size of the owned set, safe to call only from the Worker's own
// goroutine or after Shutdown.
func (srv *Server) ConnectionCount() int {
	return len(srv.connections)
}

// BufferPoolsInUse reports outstanding acquire/release counts for both
// pools this Server owns, used by tests asserting the "pool drains to
// zero" invariant (spec.md §8).
func (srv *Server) BufferPoolsInUse() (connection, handshake int) {
	return srv.connPool.InUse(), srv.handshakePool.InUse()
}

// reportMetrics pushes this turn's gauge snapshot to the Worker's
// collector. It is cheap enough to call on every readiness-handler pass
// (a handful of atomic stores), so callers don't need to throttle it.
func (srv *Server) reportMetrics() {
	pending := 0
	for _, conn := range srv.connections {
		if !conn.everRead {
			pending++
		}
	}
	srv.collector.SetActiveConnections(len(srv.connections))
	srv.collector.SetPendingConnections(pending)
	srv.collector.SetBufferPoolHitRate("connection", srv.connPool.HitRate())
	srv.collector.SetBufferPoolHitRate("handshake", srv.handshakePool.HitRate())
}
