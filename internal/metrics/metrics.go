// Package metrics exposes per-worker Prometheus collectors mirroring the
// teacher's BufferPoolMetrics / BaseServer.Stats: request and byte
// counters, connection gauges, and buffer-pool hit rate. Collectors are
// registered once at process start, off any Worker's own goroutine;
// their values are written by atomics on the Worker thread and read only
// by the Prometheus scrape goroutine, so no lock is needed on either
// side (spec.md §5, "no locking within a worker").
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shockwave"

// WorkerCollector tracks one Worker's request/byte/connection counts and
// buffer-pool hit rate, each labeled with the Worker's name so per-worker
// imbalance is visible in a single query.
type WorkerCollector struct {
	worker string

	requestsTotal  *prometheus.CounterVec
	bytesRead      *prometheus.CounterVec
	bytesWritten   *prometheus.CounterVec
	connectionsNew *prometheus.CounterVec

	activeConnections  *prometheus.GaugeVec
	pendingConnections *prometheus.GaugeVec
	bufferPoolHitRate  *prometheus.GaugeVec
}

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total number of HTTP requests dispatched to a handler.",
	}, []string{"worker"})

	bytesRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_read_total",
		Help:      "Total bytes read off connection sockets.",
	}, []string{"worker"})

	bytesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_written_total",
		Help:      "Total response bytes written to connection sockets.",
	}, []string{"worker"})

	connectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_total",
		Help:      "Total connections accepted.",
	}, []string{"worker"})

	activeConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "Connections currently open on a worker (spec.md getActiveConnectionCount).",
	}, []string{"worker"})

	pendingConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_connections",
		Help:      "Connections accepted but from which no bytes have been read yet (spec.md getPendingConnectionCount).",
	}, []string{"worker"})

	bufferPoolHitRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "buffer_pool",
		Name:      "hit_rate",
		Help:      "Buffer pool hit rate (0-100), per worker and size class.",
	}, []string{"worker", "class"})
)

// NewWorkerCollector binds every collector above to one worker's label.
// It keeps the shared vectors, not per-label children: each method below
// resolves the worker's label set with WithLabelValues on every call.
func NewWorkerCollector(workerName string) *WorkerCollector {
	return &WorkerCollector{
		worker:             workerName,
		requestsTotal:      requestsTotal,
		bytesRead:          bytesRead,
		bytesWritten:       bytesWritten,
		connectionsNew:     connectionsTotal,
		activeConnections:  activeConnections,
		pendingConnections: pendingConnections,
		bufferPoolHitRate:  bufferPoolHitRate,
	}
}

func (c *WorkerCollector) RequestHandled() {
	c.requestsTotal.WithLabelValues(c.worker).Inc()
}

func (c *WorkerCollector) BytesRead(n int) {
	c.bytesRead.WithLabelValues(c.worker).Add(float64(n))
}

func (c *WorkerCollector) BytesWritten(n int) {
	c.bytesWritten.WithLabelValues(c.worker).Add(float64(n))
}

func (c *WorkerCollector) ConnectionAccepted() {
	c.connectionsNew.WithLabelValues(c.worker).Inc()
}

func (c *WorkerCollector) SetActiveConnections(n int) {
	c.activeConnections.WithLabelValues(c.worker).Set(float64(n))
}

func (c *WorkerCollector) SetPendingConnections(n int) {
	c.pendingConnections.WithLabelValues(c.worker).Set(float64(n))
}

func (c *WorkerCollector) SetBufferPoolHitRate(class string, rate float64) {
	c.bufferPoolHitRate.WithLabelValues(c.worker, class).Set(rate)
}
