package http11

import "testing"

func TestParser_SimpleGET(t *testing.T) {
	p := NewParser()
	req, ok, err := p.Feed([]byte("GET /hello HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if !ok {
		t.Fatal("Feed() ok = false, want true for a complete request")
	}
	if req.Method != MethodGET {
		t.Errorf("Method = %d, want MethodGET", req.Method)
	}
	if string(req.Path) != "/hello" {
		t.Errorf("Path = %q, want /hello", req.Path)
	}
	if host := req.Header.Get([]byte("Host")); string(host) != "example.com" {
		t.Errorf("Host header = %q, want example.com", host)
	}
}

func TestParser_IncompleteRequestWaitsForMoreBytes(t *testing.T) {
	p := NewParser()
	req, ok, err := p.Feed([]byte("GET /hello HTTP/1.1\r\nHost: exa"))
	if err != nil || ok || req != nil {
		t.Fatalf("Feed() on partial headers = (%v, %v, %v), want (nil, false, nil)", req, ok, err)
	}

	req, ok, err = p.Feed([]byte("mple.com\r\n\r\n"))
	if err != nil {
		t.Fatalf("Feed() error after completing headers = %v", err)
	}
	if !ok {
		t.Fatal("Feed() did not complete after the rest of the headers arrived")
	}
	if host := req.Header.Get([]byte("Host")); string(host) != "example.com" {
		t.Errorf("Host header = %q, want example.com (split across two Feed calls)", host)
	}
}

func TestParser_POSTWithContentLengthBody(t *testing.T) {
	p := NewParser()
	raw := "POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	req, ok, err := p.Feed([]byte(raw))
	if err != nil || !ok {
		t.Fatalf("Feed() = (ok=%v, err=%v), want (true, nil)", ok, err)
	}
	if string(req.Body) != "hello" {
		t.Errorf("Body = %q, want hello", req.Body)
	}
}

func TestParser_BodyIncompleteWaitsForRemainder(t *testing.T) {
	p := NewParser()
	req, ok, err := p.Feed([]byte("POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhel"))
	if err != nil || ok || req != nil {
		t.Fatalf("Feed() on partial body = (%v, %v, %v), want (nil, false, nil)", req, ok, err)
	}
	req, ok, err = p.Feed([]byte("lo"))
	if err != nil || !ok {
		t.Fatalf("Feed() after remainder = (ok=%v, err=%v), want (true, nil)", ok, err)
	}
	if string(req.Body) != "hello" {
		t.Errorf("Body = %q, want hello", req.Body)
	}
}

func TestParser_PipelinedRequestsLeaveSecondBuffered(t *testing.T) {
	p := NewParser()
	raw := "GET /a HTTP/1.1\r\n\r\nGET /b HTTP/1.1\r\n\r\n"
	first, ok, err := p.Feed([]byte(raw))
	if err != nil || !ok {
		t.Fatalf("first Feed() = (ok=%v, err=%v), want (true, nil)", ok, err)
	}
	if string(first.Path) != "/a" {
		t.Fatalf("first Path = %q, want /a", first.Path)
	}

	second, ok, err := p.Feed(nil)
	if err != nil || !ok {
		t.Fatalf("second Feed(nil) = (ok=%v, err=%v), want (true, nil)", ok, err)
	}
	if string(second.Path) != "/b" {
		t.Fatalf("second Path = %q, want /b", second.Path)
	}
}

func TestParser_RejectsContentLengthWithTransferEncoding(t *testing.T) {
	p := NewParser()
	raw := "POST /x HTTP/1.1\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\nhello"
	_, _, err := p.Feed([]byte(raw))
	if err != ErrContentLengthWithTransferEncoding {
		t.Fatalf("Feed() error = %v, want ErrContentLengthWithTransferEncoding", err)
	}
}

func TestParser_RejectsConflictingDuplicateContentLength(t *testing.T) {
	p := NewParser()
	raw := "POST /x HTTP/1.1\r\nContent-Length: 5\r\nContent-Length: 10\r\n\r\nhello12345"
	_, _, err := p.Feed([]byte(raw))
	if err != ErrDuplicateContentLength {
		t.Fatalf("Feed() error = %v, want ErrDuplicateContentLength", err)
	}
}

func TestParser_AllowsRepeatedIdenticalContentLength(t *testing.T) {
	p := NewParser()
	raw := "POST /x HTTP/1.1\r\nContent-Length: 5\r\nContent-Length: 5\r\n\r\nhello"
	req, ok, err := p.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if !ok {
		t.Fatal("Feed() ok = false, want true")
	}
	if string(req.Body) != "hello" {
		t.Fatalf("Body = %q, want hello", req.Body)
	}
}

func TestParser_RejectsMalformedRequestLine(t *testing.T) {
	p := NewParser()
	_, _, err := p.Feed([]byte("GET\r\n\r\n"))
	if err != ErrInvalidRequestLine {
		t.Fatalf("Feed() error = %v, want ErrInvalidRequestLine", err)
	}
}

func TestParser_RejectsNonHTTP11Protocol(t *testing.T) {
	p := NewParser()
	_, _, err := p.Feed([]byte("GET / HTTP/1.0\r\n\r\n"))
	if err != ErrInvalidProtocol {
		t.Fatalf("Feed() error = %v, want ErrInvalidProtocol", err)
	}
}

func TestParser_KeepAliveDefaultsTrue(t *testing.T) {
	p := NewParser()
	req, _, _ := p.Feed([]byte("GET / HTTP/1.1\r\n\r\n"))
	if !req.KeepAlive {
		t.Error("KeepAlive = false, want true by default under HTTP/1.1")
	}
}

func TestParser_ConnectionCloseDisablesKeepAlive(t *testing.T) {
	p := NewParser()
	req, _, _ := p.Feed([]byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n"))
	if req.KeepAlive {
		t.Error("KeepAlive = true, want false with Connection: close")
	}
}
