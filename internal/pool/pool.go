// Package pool provides the per-worker buffer pools backing Connection
// read, write, and handshake buffers. Unlike a cross-goroutine sync.Pool,
// each Pool here is owned exclusively by one worker goroutine, so a plain
// slice free-list is both correct and cheaper than atomic bookkeeping
// (spec.md §4.4, "the pool is single-threaded; no cross-worker buffer
// sharing").
package pool

// Buffer is a fixed-capacity byte buffer checked out from a Pool. It
// tracks a read cursor and write limit so callers can treat it as a small
// ring of "position/limit" the way the connection state machine expects:
// bytes are appended up to Limit, consumed from Pos, and the whole thing
// is reset to empty on Release.
type Buffer struct {
	data []byte
	pos  int
	lim  int
}

// Bytes returns the full backing array, capacity == the pool's size class.
func (b *Buffer) Bytes() []byte { return b.data }

// Unread returns the slice of bytes between Pos and Lim still pending
// consumption.
func (b *Buffer) Unread() []byte { return b.data[b.pos:b.lim] }

// Free returns the writable tail beyond the current write limit.
func (b *Buffer) Free() []byte { return b.data[b.lim:] }

// Written returns the backing array's already-written prefix, data[:Lim],
// for append-based writers like http11.Render that grow a slice in place
// rather than writing through Free() and Advance directly.
func (b *Buffer) Written() []byte { return b.data[:b.lim] }

// SetWritten sets the write limit after an in-place append grew the slice
// returned by Written — the counterpart to Advance for that style of
// writer.
func (b *Buffer) SetWritten(n int) { b.lim = n }

// Len reports how many unread bytes remain.
func (b *Buffer) Len() int { return b.lim - b.pos }

// Cap reports the buffer's fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Advance marks n more bytes as written (e.g. after a successful read
// syscall appended to Free()).
func (b *Buffer) Advance(n int) { b.lim += n }

// Consume marks n bytes as read (e.g. after the parser accepted them).
func (b *Buffer) Consume(n int) { b.pos += n }

// Compact slides any unread bytes to the front of the buffer and resets
// the write limit, reclaiming space that was already consumed. It is the
// caller's job to call this before a read would otherwise overflow Free().
func (b *Buffer) Compact() {
	if b.pos == 0 {
		return
	}
	n := copy(b.data, b.data[b.pos:b.lim])
	b.pos = 0
	b.lim = n
}

func (b *Buffer) reset() {
	b.pos = 0
	b.lim = 0
}

// Pool hands out fixed-size Buffers for one worker. It is not safe for
// concurrent use (spec.md §4.4): every Connection-owning worker goroutine
// must have its own Pool instance.
type Pool struct {
	size int
	free []*Buffer

	// acquired and released are instrumentation counters used by tests to
	// assert the "every buffer returned exactly once" invariant
	// (spec.md §8).
	acquired uint64
	released uint64

	// hits and misses mirror the teacher's BufferPoolMetrics: a hit reused
	// a free-listed Buffer, a miss allocated a fresh one.
	hits   uint64
	misses uint64
}

// New creates a Pool producing buffers of the given fixed capacity.
func New(bufferSize int) *Pool {
	return &Pool{size: bufferSize}
}

// Acquire returns a Buffer from the free list, or allocates a fresh one
// if the pool is currently exhausted. Growth is uncapped, matching the
// original source's unbounded pool (spec.md §4.4: "If exhausted, the
// pool grows by allocating a fresh buffer").
func (p *Pool) Acquire() *Buffer {
	p.acquired++
	n := len(p.free)
	if n == 0 {
		p.misses++
		return &Buffer{data: make([]byte, p.size)}
	}
	p.hits++
	b := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	return b
}

// Release zero-resets the buffer's cursors and returns it to the free
// list for reuse.
func (p *Pool) Release(b *Buffer) {
	if b == nil {
		return
	}
	p.released++
	b.reset()
	p.free = append(p.free, b)
}

// InUse reports how many buffers acquired from this pool have not yet
// been released — used by tests to assert the pool drains to zero after
// a workload completes.
func (p *Pool) InUse() int {
	return int(p.acquired - p.released)
}

// Size returns the fixed buffer capacity this pool produces.
func (p *Pool) Size() int { return p.size }

// HitRate reports the fraction of Acquire calls satisfied from the free
// list rather than a fresh allocation, as a percentage in [0, 100]. It
// returns 0 before the first Acquire.
func (p *Pool) HitRate() float64 {
	total := p.hits + p.misses
	if total == 0 {
		return 0
	}
	return float64(p.hits) * 100.0 / float64(total)
}
