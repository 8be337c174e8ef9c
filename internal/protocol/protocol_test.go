package protocol

import (
	"errors"
	"strings"
	"testing"

	"authsrv-go/internal/model"
)

func TestSplit(t *testing.T) {
	f, err := Split([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\nbody\r\n\r\nmore"))
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if f.Header != "GET / HTTP/1.1\r\nHost: x" {
		t.Errorf("Header = %q", f.Header)
	}
	if f.Body != "body\r\n\r\nmore" {
		t.Errorf("Body = %q, want split on first separator only", f.Body)
	}
}

func TestSplit_Empty(t *testing.T) {
	_, err := Split(nil)
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("Split(nil) error = %v, want ErrEmpty", err)
	}
}

func TestSplit_NoSeparator(t *testing.T) {
	_, err := Split([]byte("GET / HTTP/1.1\r\nHost: x\r\n"))
	if !errors.Is(err, ErrMalformedRequest) {
		t.Errorf("Split() error = %v, want ErrMalformedRequest", err)
	}
}

func TestDecode(t *testing.T) {
	if err := Decode([]byte("GET /café HTTP/1.1\r\n\r\n")); err != nil {
		t.Errorf("Decode(valid) error = %v", err)
	}
	if err := Decode([]byte{'G', 0xff, 0xfe}); err == nil {
		t.Error("Decode(invalid) expected error, got nil")
	}
}

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name, method, target, protocol, wantPath string
	}{
		{"root", "GET", "/", "HTTP/1.1", "server.html"},
		{"file", "GET", "/picture.png", "HTTP/1.1", "picture.png"},
		{"nested with query", "GET", "/auth/login?user=a&password=b", "HTTP/1.0", "auth/login?user=a&password=b"},
		{"post", "POST", "/form", "HTTP/1.1", "form"},
	}

	p := NewParser("server.html")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.method + " " + tt.target + " " + tt.protocol + "\r\nHost: localhost\r\n\r\n"
			req, err := p.ParseBuffer([]byte(buf))
			if err != nil {
				t.Fatalf("ParseBuffer() error = %v", err)
			}
			if req.Method != tt.method {
				t.Errorf("Method = %q, want %q", req.Method, tt.method)
			}
			if req.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", req.Path, tt.wantPath)
			}
			if req.Protocol != tt.protocol {
				t.Errorf("Protocol = %q, want %q", req.Protocol, tt.protocol)
			}
		})
	}
}

func TestParse_Headers(t *testing.T) {
	p := NewParser("server.html")
	req, err := p.ParseBuffer([]byte("GET / HTTP/1.1\r\nHost: localhost:8000\r\nX-Raw:value\r\nCookie: user=a; password=b\r\n\r\nhello"))
	if err != nil {
		t.Fatalf("ParseBuffer() error = %v", err)
	}

	tests := []struct{ key, want string }{
		{"Host", "localhost:8000"},
		{"X-Raw", "value"},
		{"Cookie", "user=a; password=b"},
	}
	for _, tt := range tests {
		if got, _ := req.Headers.Get(tt.key); got != tt.want {
			t.Errorf("header %q = %q, want %q", tt.key, got, tt.want)
		}
	}
	if req.Headers[0].Key != "Host" || req.Headers[2].Key != "Cookie" {
		t.Errorf("header order not preserved: %+v", req.Headers)
	}
	if req.Body != "hello" {
		t.Errorf("Body = %q, want %q", req.Body, "hello")
	}
	if !strings.HasPrefix(req.RawHeaders, "GET / HTTP/1.1\r\nHost") {
		t.Errorf("RawHeaders = %q", req.RawHeaders)
	}
}

func TestParse_EmptyBuffer(t *testing.T) {
	req, err := NewParser("server.html").ParseBuffer(nil)
	if err != nil {
		t.Fatalf("ParseBuffer(nil) error = %v", err)
	}
	if !req.Empty {
		t.Error("expected Empty request")
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		buf  string
	}{
		{"two tokens", "GET /\r\n\r\n"},
		{"header without colon", "GET / HTTP/1.1\r\nbroken header\r\n\r\n"},
		{"no separator", "GET / HTTP/1.1\r\n"},
	}

	p := NewParser("server.html")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseBuffer([]byte(tt.buf))
			if !errors.Is(err, ErrMalformedRequest) {
				t.Errorf("ParseBuffer() error = %v, want ErrMalformedRequest", err)
			}
		})
	}
}

func TestSerialize(t *testing.T) {
	resp := model.NewResponse(200)
	resp.AddHeader("Set-Cookie", "user=arsel; Path=/")
	resp.SetContent([]byte("PNGDATA"), "image/png")

	head, body := Serialize(resp)
	want := "HTTP/1.1 200\r\nSet-Cookie: user=arsel; Path=/\r\nContent-type: image/png\r\nContent-size: 7\r\n\r\n"
	if string(head) != want {
		t.Errorf("head = %q, want %q", head, want)
	}
	if string(body) != "PNGDATA" {
		t.Errorf("body = %q, want %q", body, "PNGDATA")
	}
}

func TestEncode_NoContent(t *testing.T) {
	resp := model.NewResponse(401)
	resp.AddHeader("WWW-Authenticate", `Basic realm="test"`)

	got := string(Encode(resp))
	want := "HTTP/1.1 401\r\nWWW-Authenticate: Basic realm=\"test\"\r\n\r\n"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncode_WithContent(t *testing.T) {
	resp := model.NewResponse(200)
	resp.SetContent([]byte("ok"), "text/plain")

	head, body := Serialize(resp)
	if got, want := string(Join(head, body)), string(Encode(resp)); got != want {
		t.Errorf("Join() = %q, Encode() = %q", got, want)
	}
	if got := string(Encode(resp)); got != "HTTP/1.1 200\r\nContent-type: text/plain\r\nContent-size: 2\r\n\r\nok" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestFlattenHeaders(t *testing.T) {
	got := FlattenHeaders("HTTP/1.1 200\r\nContent-size: 3\r\n\r\n")
	if got != "HTTP/1.1 200 | Content-size: 3" {
		t.Errorf("FlattenHeaders() = %q", got)
	}
}
