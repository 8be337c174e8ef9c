package protocol

import (
	"bytes"
	"strconv"
	"strings"

	"authsrv-go/internal/model"
)

const statusLinePrefix = "HTTP/1.1 "

// Serialize renders resp into its header block and content.
func Serialize(resp *model.Response) (head, body []byte) {
	var b bytes.Buffer
	b.WriteString(statusLinePrefix)
	b.WriteString(strconv.Itoa(resp.StatusCode))
	b.WriteString(crlf)
	for _, h := range resp.Headers {
		b.WriteString(h.Key)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString(crlf)
	}
	b.WriteString(crlf)
	return b.Bytes(), resp.Content
}

// Encode renders resp as a single buffer ready for one write.
func Encode(resp *model.Response) []byte {
	return Join(Serialize(resp))
}

// Join concatenates a serialized header block and its content.
func Join(head, body []byte) []byte {
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	return append(out, body...)
}

// FlattenHeaders joins header lines with " | " for single-line logging.
func FlattenHeaders(raw string) string {
	return strings.ReplaceAll(strings.TrimRight(raw, crlf), crlf, " | ")
}
