// Package wsupgrade computes the RFC 6455 WebSocket handshake response for
// a parsed HTTP/1.1 request, without performing the upgrade itself. Nothing
// in internal/httpserver's dispatch path calls Negotiate — it exists for a
// future handler to opt into explicitly, the same way the teacher's own
// Handshaking connection state is reachable in the enum but never entered
// by any Service.
package wsupgrade

import (
	"crypto/sha1"
	"encoding/base64"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/caturner81/server/internal/http11"
)

// websocketGUID is the fixed suffix RFC 6455 §1.3 appends to the client's
// Sec-WebSocket-Key before hashing. gorilla/websocket keeps the equivalent
// computation (computeAcceptKey in its util.go) unexported, so there is no
// public entry point to call for it — the hash itself is reproduced here
// with crypto/sha1 and encoding/base64 rather than forking a private
// algorithm out of a vendored dependency.
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// Negotiate reports whether req is a valid WebSocket upgrade request and,
// if so, returns the Sec-WebSocket-Accept value the handshake response
// must carry. The detection itself — not just the key derivation — is
// delegated to gorilla/websocket.IsWebSocketUpgrade so the header
// conditions (Upgrade: websocket, a Connection token containing upgrade)
// match the library's own judgment rather than a hand-rolled re-check.
func Negotiate(req *http11.Request) (key string, ok bool) {
	shim := &http.Request{Method: "GET", Header: make(http.Header, 4)}
	req.Header.Each(func(name, value []byte) {
		shim.Header.Add(string(name), string(value))
	})

	if !websocket.IsWebSocketUpgrade(shim) {
		return "", false
	}

	clientKey := req.Header.Get([]byte("Sec-WebSocket-Key"))
	if len(clientKey) == 0 {
		return "", false
	}

	h := sha1.New()
	h.Write(clientKey)
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), true
}
