// Package protocol implements the text framing of requests and responses.
package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

var (
	// ErrEmpty means the peer sent nothing; there is no request to answer.
	ErrEmpty = errors.New("empty request")

	// ErrMalformedRequest is terminal for the connection: nothing is sent back.
	ErrMalformedRequest = errors.New("malformed request")
)

const (
	crlf      = "\r\n"
	separator = "\r\n\r\n"
)

// Frame holds the two halves of a received buffer.
type Frame struct {
	Header string
	Body   string
}

// Split splits buf on the first blank line.
func Split(buf []byte) (Frame, error) {
	if len(buf) == 0 {
		return Frame{}, ErrEmpty
	}
	head, body, ok := bytes.Cut(buf, []byte(separator))
	if !ok {
		return Frame{}, fmt.Errorf("%w: no header terminator in %d bytes", ErrMalformedRequest, len(buf))
	}
	return Frame{Header: string(head), Body: string(body)}, nil
}

// Decode checks that buf is valid UTF-8 text.
func Decode(buf []byte) error {
	if _, _, err := transform.Bytes(encoding.UTF8Validator, buf); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
