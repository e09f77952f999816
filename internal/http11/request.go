package http11

// Request is the parsed form of one HTTP/1.1 request line plus headers
// plus body. It carries no connection back-reference — that linkage is
// the caller's concern (the connection state machine wraps a Request in
// its own Exchange alongside a pointer to the Connection it arrived on).
//
// Path holds its own copy of the request-URL bytes rather than aliasing
// the parser's internal scratch buffer, so a Request remains valid for as
// long as its owner keeps it around — including sitting queued behind
// other pipelined requests on the same connection (see Parser.Feed).
type Request struct {
	Method    uint8
	Path      []byte
	Proto     []byte
	Header    Header
	Body      []byte
	KeepAlive bool
}
