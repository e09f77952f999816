package httpserver

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/caturner81/server/internal/http11"
	"github.com/caturner81/server/internal/reactor"
	"github.com/caturner81/server/internal/selector"
	"github.com/caturner81/server/internal/socket"
)

// acceptHandler implements ConnectionAcceptService: it drains raw
// accepted fds handed over by the distribution strategy, wraps each in a
// Connection, and opens it (spec.md §4, "ConnectionAcceptService").
func (srv *Server) acceptHandler(fd int, step *reactor.Step) {
	conn := newConnection(srv, fd)
	if err := conn.open(); err != nil {
		srv.logger.Warn().Err(err).Int("fd", fd).Msg("failed to open accepted connection")
		_ = socket.Close(fd)
		return
	}
	srv.connections[fd] = conn
	srv.collector.ConnectionAccepted()
	srv.reportMetrics()
}

// readHandler implements ConnectionReadService: one non-blocking read per
// turn, fed straight into the Connection's parser, queuing a complete
// Exchange onto the Connection's request deque and waking
// RequestHandlerService the first time that deque goes non-empty
// (spec.md §4.2).
func (srv *Server) readHandler(conn *Connection, step *reactor.Step) {
	if conn.isClosed {
		return
	}

	if conn.readBuf == nil {
		conn.readBuf = srv.connPool.Acquire()
	}
	buf := conn.readBuf
	if len(buf.Free()) == 0 {
		buf.Compact()
	}

	n, err := unix.Read(conn.fd, buf.Free())
	switch {
	case err == unix.EAGAIN:
		// Nothing to read right now — rearm read-readiness and let the
		// next readable event re-queue us.
		srv.connPool.Release(buf)
		conn.readBuf = nil
		conn.isReadQueued = false
		_ = srv.worker.ModifyFD(conn.fd, conn.readInterest())
		return
	case err != nil:
		conn.close("read error: " + err.Error())
		return
	case n == 0:
		conn.close("peer closed")
		return
	}

	srv.collector.BytesRead(n)
	if srv.socketConfig != nil && srv.socketConfig.QuickAck {
		_ = socket.SetQuickAck(conn.fd)
	}
	conn.everRead = true
	buf.Advance(n)
	data := buf.Unread()
	buf.Consume(len(data))

	first := true
	for {
		var chunk []byte
		if first {
			chunk = data
			first = false
		}
		req, ok, perr := conn.parser.Feed(chunk)
		if perr != nil {
			conn.close("parse error: " + perr.Error())
			return
		}
		if !ok {
			break
		}
		wasEmpty := conn.requests.empty()
		conn.requests.push(&Exchange{Request: req, Conn: conn})
		if wasEmpty {
			srv.handlerSvc.Send(conn, step)
		}
	}

	srv.connPool.Release(buf)
	conn.readBuf = nil
	conn.isReadQueued = false
	_ = srv.worker.ModifyFD(conn.fd, conn.readInterest())
}

// handlerHandler implements RequestHandlerService: drain the Connection's
// queued requests, dispatch each to the registry-resolved Handler, and
// append the resulting response — retrying a response that didn't fit
// the ready-response queue before picking up the next request, so no
// response is ever produced twice for the same Exchange (spec.md §4.2).
func (srv *Server) handlerHandler(conn *Connection, step *reactor.Step) {
	if conn.isClosed {
		return
	}

	if conn.pendingResponse != nil {
		if !conn.appendResponse(conn.pendingResponse, step) {
			return
		}
		conn.pendingResponse = nil
	}

	for {
		exch, ok := conn.requests.pop()
		if !ok {
			return
		}
		handler := srv.registry.Lookup(exch.Request.Path)
		resp := handler(exch.Request)
		srv.collector.RequestHandled()
		if !exch.Request.KeepAlive {
			conn.keepAlive = false
		}
		if !conn.appendResponse(resp, step) {
			conn.pendingResponse = resp
			return
		}
	}
}

// writerHandler implements ResponseWriterService: render whatever ready
// responses fit the write buffer, then issue one non-blocking write. A
// response rendering was refused for want of space causes the buffer to
// flush now and the remaining responses to wait for the next turn; a
// partial socket write re-arms WRITE-readiness instead of looping
// (spec.md §4.2, §4.3).
func (srv *Server) writerHandler(conn *Connection, step *reactor.Step) {
	if conn.isClosed {
		return
	}

	if conn.writeBuf == nil {
		conn.writeBuf = srv.connPool.Acquire()
	}
	buf := conn.writeBuf
	buf.Compact() // reclaim space already flushed to the socket before appending more

	common := http11.CommonHeaders(srv.dateCache, time.Now(), srv.serverName)
	for {
		resp, ok := conn.responses.Peek()
		if !ok {
			break
		}
		grown, rendered := http11.Render(buf.Written(), resp, common)
		if !rendered {
			if buf.Len() == 0 {
				// Doesn't fit even an empty buffer: no flush-and-retry can
				// ever make room, since this engine never chunks a response
				// across writes (spec.md §8, "rendered size exceeds the
				// write-buffer capacity").
				conn.close("response exceeds write buffer capacity")
				return
			}
			break // doesn't fit what's already buffered; flush first
		}
		buf.SetWritten(len(grown))
		conn.responses.Pop()
	}

	if buf.Len() == 0 {
		srv.connPool.Release(buf)
		conn.writeBuf = nil
		return
	}

	n, err := unix.Write(conn.fd, buf.Unread())
	switch {
	case err == unix.EAGAIN:
		srv.rearmWrite(conn)
		return
	case err != nil:
		conn.close("write error: " + err.Error())
		return
	}
	srv.collector.BytesWritten(n)
	buf.Consume(n)

	if buf.Len() > 0 {
		// Partial write: keep the buffer, wait for the socket to drain.
		srv.rearmWrite(conn)
		return
	}

	srv.connPool.Release(buf)
	conn.writeBuf = nil

	if !conn.keepAlive && conn.requests.empty() && conn.responses.Empty() {
		conn.close("connection: close")
		return
	}

	if !conn.responses.Empty() {
		srv.writerSvc.Send(conn, step)
	}
}

func (srv *Server) rearmWrite(conn *Connection) {
	conn.isReadyWrite = true
	_ = srv.worker.ModifyFD(conn.fd, selector.OpRead|selector.OpWrite)
}

// registryHandler implements the broadcast RegisterUrlHandlers message:
// each worker applies the update to its own Registry instance, so the
// registry is never concurrently mutated (spec.md §5).
func (srv *Server) registryHandler(routes map[string]Handler, step *reactor.Step) {
	srv.registry.RegisterAll(routes)
}
