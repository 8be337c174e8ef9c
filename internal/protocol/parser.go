package protocol

import (
	"errors"
	"fmt"
	"strings"

	"authsrv-go/internal/model"
)

// Parser turns a framed header block into a Request.
type Parser struct {
	// RootPage replaces the "/" target so the resolver can special-case it.
	RootPage string
}

// NewParser creates a Parser that maps "/" to rootPage.
func NewParser(rootPage string) *Parser {
	return &Parser{RootPage: rootPage}
}

// ParseBuffer frames and parses a received buffer. A zero-length buffer yields
// an Empty request and no error.
func (p *Parser) ParseBuffer(buf []byte) (*model.Request, error) {
	f, err := Split(buf)
	if errors.Is(err, ErrEmpty) {
		return &model.Request{Empty: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return p.Parse(f)
}

// Parse builds a Request from a frame.
func (p *Parser) Parse(f Frame) (*model.Request, error) {
	lines := strings.Split(f.Header, crlf)

	parts := strings.Split(lines[0], " ")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: request line %q", ErrMalformedRequest, lines[0])
	}

	req := &model.Request{
		Method:     parts[0],
		Path:       p.target(parts[1]),
		Protocol:   parts[2],
		RawHeaders: f.Header,
		Body:       f.Body,
	}

	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header line %q", ErrMalformedRequest, line)
		}
		req.Headers = append(req.Headers, model.HeaderField{
			Key:   key,
			Value: strings.TrimLeft(value, " \t"),
		})
	}

	return req, nil
}

func (p *Parser) target(raw string) string {
	if raw == "/" {
		return p.RootPage
	}
	return strings.TrimPrefix(raw, "/")
}
