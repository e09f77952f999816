package http11

import "errors"

// Parse errors are sentinel values so the connection state machine can
// classify a failure without inspecting its text (spec.md §7,
// "ParseError — malformed request bytes").
var (
	ErrInvalidRequestLine = errors.New("http11: invalid request line")
	ErrInvalidMethod      = errors.New("http11: invalid HTTP method")
	ErrInvalidPath        = errors.New("http11: invalid request path")
	ErrInvalidProtocol    = errors.New("http11: invalid or unsupported protocol version")
	ErrInvalidHeader      = errors.New("http11: invalid HTTP header")
	ErrHeaderTooLarge     = errors.New("http11: header name or value too large")
	ErrTooManyHeaders     = errors.New("http11: too many headers")
	ErrRequestLineTooLarge = errors.New("http11: request line too large")
	ErrInvalidContentLength = errors.New("http11: invalid Content-Length")

	// ErrContentLengthWithTransferEncoding rejects a request carrying both
	// headers, per RFC 7230 §3.3.3 — accepting it would let a
	// front-end/back-end pair disagree on framing (request smuggling).
	ErrContentLengthWithTransferEncoding = errors.New("http11: request has both Content-Length and Transfer-Encoding")

	// ErrDuplicateContentLength rejects conflicting repeated
	// Content-Length headers for the same reason.
	ErrDuplicateContentLength = errors.New("http11: duplicate Content-Length headers with different values")

	ErrURITooLong = errors.New("http11: URI too long")
)

// ErrResponseTooLarge names the case where a response's encoded size
// exceeds the destination buffer's total capacity, so no partial write
// could ever succeed (spec.md §8, "A response whose rendered size exceeds
// the write-buffer capacity causes a graceful close"). Render does not
// return it: Render reports any response that does not fit by returning
// false.
var ErrResponseTooLarge = errors.New("http11: response exceeds write buffer capacity")
