package http11

import (
	"strconv"
	"sync/atomic"
	"time"
)

// Pre-compiled status lines for the codes this server actually emits —
// zero-allocation writes on the hot path, same trick the rest of the
// engine uses for method and header tokens.
var (
	status200 = []byte("HTTP/1.1 200 OK\r\n")
	status204 = []byte("HTTP/1.1 204 No Content\r\n")
	status404 = []byte("HTTP/1.1 404 Not Found\r\n")
	status500 = []byte("HTTP/1.1 500 Internal Server Error\r\n")
)

func statusLine(code int) []byte {
	switch code {
	case 200:
		return status200
	case 204:
		return status204
	case 404:
		return status404
	case 500:
		return status500
	default:
		return []byte("HTTP/1.1 " + strconv.Itoa(code) + " \r\n")
	}
}

// Response carries a status code, a header set, and a body. Subtypes are
// just constructor functions producing a Response with the right default
// headers — there is no inheritance to model (spec.md §3, "HttpResponse").
type Response struct {
	Code   int
	Header Header
	Body   []byte
}

var headerContentType = []byte("Content-Type")

// OK builds a 200 response. contentType is optional; pass nil to omit
// Content-Type entirely.
func OK(body []byte, contentType []byte) *Response {
	r := &Response{Code: 200, Body: body}
	if contentType != nil {
		r.Header.Add(headerContentType, contentType)
	}
	return r
}

// NoContent builds a 204 response with no body and no headers of its own;
// Render gives it the same "Content-Length: 0" line as any other
// empty-bodied response.
func NoContent() *Response {
	return &Response{Code: 204}
}

// NotFound builds a 404 response, defaulting to an empty body when none
// is supplied.
func NotFound(body []byte, contentType []byte) *Response {
	r := &Response{Code: 404, Body: body}
	if contentType != nil {
		r.Header.Add(headerContentType, contentType)
	}
	return r
}

// OutputSize estimates the number of bytes Render will write for this
// response, used by the writer service to decide whether the remaining
// buffer space can hold it (spec.md §4.3).
func (r *Response) OutputSize() int {
	n := len(statusLine(r.Code)) + 2 // headers terminator
	n += len(headerContentLength) + 2 + 20 + 2
	r.Header.Each(func(name, value []byte) {
		n += len(name) + 2 + len(value) + 2
	})
	n += len(r.Body)
	return n
}

// DateCache holds a worker-owned, lazily-reformatted RFC-1123 date
// header value. Re-rendering an RFC-1123 timestamp on every response
// would cost a time.Format per request; since the value only changes
// once per wall-clock second, caching it bounds that cost to one
// formatting call per worker per second (spec.md §4.3, "Date cache").
type DateCache struct {
	epochSecond atomic.Int64
	cached      atomic.Pointer[[]byte]
}

// NewDateCache creates a DateCache primed with the current time.
func NewDateCache() *DateCache {
	dc := &DateCache{}
	dc.refresh(time.Now())
	return dc
}

func (dc *DateCache) refresh(now time.Time) []byte {
	line := []byte("Date: " + now.UTC().Format(time.RFC1123) + "\r\n")
	dc.cached.Store(&line)
	dc.epochSecond.Store(now.Unix())
	return line
}

// Value returns the current "Date: ...\r\n" header line, reformatting
// only when now falls in a different wall-clock second from the cached
// line. For callers on one goroutine that is at most once per second;
// goroutines that see a stale second at the same moment may each
// reformat.
func (dc *DateCache) Value(now time.Time) []byte {
	sec := now.Unix()
	if dc.epochSecond.Load() == sec {
		return *dc.cached.Load()
	}
	return dc.refresh(now)
}

// CommonHeaders renders the worker-wide constant portion of every
// response: the Server line plus the current Date line, as one
// contiguous block so Render can copy it with a single append instead of
// writing each line separately (spec.md §4.3).
func CommonHeaders(dc *DateCache, now time.Time, serverName string) []byte {
	line := "Server: " + serverName + "\r\n"
	date := dc.Value(now)
	out := make([]byte, 0, len(line)+len(date))
	out = append(out, line...)
	out = append(out, date...)
	return out
}

// Render writes an HTTP/1.1 response into dst, a scratch slice whose
// current length is the already-written prefix (so multiple responses
// can be appended into one write buffer across a ResponseWriterService
// turn). It returns the grown slice and true, or the unmodified dst and
// false if applying the response would exceed capacity — the caller
// flushes what it has and retries (spec.md §4.3, "renderResponse").
func Render(dst []byte, r *Response, commonHeaders []byte) ([]byte, bool) {
	sl := statusLine(r.Code)
	need := len(dst) + len(commonHeaders) + r.OutputSize()
	if cap(dst) < need {
		return dst, false
	}

	dst = append(dst, sl...)
	dst = append(dst, commonHeaders...)

	dst = append(dst, headerContentLength...)
	dst = append(dst, ": "...)
	dst = strconv.AppendInt(dst, int64(len(r.Body)), 10)
	dst = append(dst, crlf...)

	r.Header.Each(func(name, value []byte) {
		dst = append(dst, name...)
		dst = append(dst, ": "...)
		dst = append(dst, value...)
		dst = append(dst, crlf...)
	})

	dst = append(dst, crlf...)
	dst = append(dst, r.Body...)
	return dst, true
}
