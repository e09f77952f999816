package httpserver

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/caturner81/server/internal/socket"
)

// Distribution is the policy deciding which Worker receives each newly
// accepted socket (spec.md GLOSSARY, "Distribution strategy"). Run starts
// whatever accepting work the strategy needs and blocks until Stop is
// called; Stop must be safe to call exactly once.
type Distribution interface {
	Run()
	Stop()
}

// RoundRobinDistribution owns one shared listen socket and hands each
// accepted connection to the next worker in rotation (spec.md §4.5).
// Accept runs on its own goroutine rather than any Worker's, so it may
// block between connections without violating the "no blocking I/O on
// the worker thread" rule.
type RoundRobinDistribution struct {
	listenFD int
	servers  []*Server
	next     atomic.Uint64
	stop     chan struct{}
}

// NewRoundRobinDistribution binds a single listening socket and prepares
// to fan accepted connections out across servers in rotation.
func NewRoundRobinDistribution(address string, backlog int, cfg *socket.Config, servers []*Server) (*RoundRobinDistribution, error) {
	fd, err := socket.ListenBlocking(address, backlog, cfg)
	if err != nil {
		return nil, err
	}
	return &RoundRobinDistribution{listenFD: fd, servers: servers, stop: make(chan struct{})}, nil
}

// Run accepts connections until Stop is called, handing each one to the
// next worker's ConnectionAcceptService and waking that worker so it
// picks the new connection up even if it's currently blocked in its
// selector (spec.md §4.1, Worker.Wake).
func (d *RoundRobinDistribution) Run() {
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		fd, err := socket.Accept(d.listenFD)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return // listener closed
		}

		idx := d.next.Add(1) - 1
		target := d.servers[int(idx%uint64(len(d.servers)))]
		if !target.acceptSvc.Offer(fd) {
			// Accept queue is momentarily full; drop rather than block
			// the acceptor thread indefinitely on a single overloaded
			// worker — the peer sees a reset, which is preferable to
			// stalling every other worker's accepts behind this one.
			_ = socket.Close(fd)
			continue
		}
		target.worker.Wake()
	}
}

// Stop shuts down and closes the shared listen socket, causing Run's
// blocking accept to return an error and exit.
func (d *RoundRobinDistribution) Stop() {
	close(d.stop)
	_ = unix.Shutdown(d.listenFD, unix.SHUT_RDWR)
	_ = socket.Close(d.listenFD)
}

// ReusePortDistribution binds one SO_REUSEPORT listen socket per worker:
// the kernel load-balances incoming connections across every worker that
// bound the same address, so no explicit fan-out logic runs on any
// dedicated thread (spec.md §4.5, "no distribution strategy is needed").
// Run/Stop exist only to satisfy the Distribution interface uniformly —
// all the real work happens at construction time, registering each
// worker's own listen fd with its own selector.
type ReusePortDistribution struct {
	servers []*Server
}

// NewReusePortDistribution binds an independent listening socket for
// every server in servers, each with SO_REUSEPORT set, and registers it
// with that server's own Worker.
func NewReusePortDistribution(address string, backlog int, cfg *socket.Config, servers []*Server) (*ReusePortDistribution, error) {
	reuse := *cfg
	reuse.ReusePort = true
	for _, srv := range servers {
		fd, err := socket.Listen(address, backlog, &reuse)
		if err != nil {
			return nil, fmt.Errorf("httpserver: reuseport listen for %s: %w", srv.Name(), err)
		}
		if err := srv.registerOwnListener(fd); err != nil {
			return nil, fmt.Errorf("httpserver: register reuseport listener for %s: %w", srv.Name(), err)
		}
	}
	return &ReusePortDistribution{servers: servers}, nil
}

// Run is a no-op: each worker accepts from its own listen socket as part
// of its normal selector loop, with no separate acceptor goroutine.
func (d *ReusePortDistribution) Run() {}

// Stop closes every worker's listen socket. Workers themselves close
// their listen fd again during their own Shutdown; closing it twice is
// harmless (socket.Close swallows EBADF).
func (d *ReusePortDistribution) Stop() {
	for _, srv := range d.servers {
		if srv.listenFD != 0 {
			_ = socket.Close(srv.listenFD)
		}
	}
}
