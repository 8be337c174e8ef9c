package model

import "strconv"

// Header names set by the response builder.
const (
	HeaderContentType     = "Content-type"
	HeaderContentSize     = "Content-size"
	HeaderSetCookie       = "Set-Cookie"
	HeaderWWWAuthenticate = "WWW-Authenticate"
)

// Response is built once per request and serialized immediately.
type Response struct {
	StatusCode int
	Headers    []HeaderField
	Content    []byte // nil means no content
}

// NewResponse creates a Response with the given status code and no headers.
func NewResponse(statusCode int) *Response {
	return &Response{StatusCode: statusCode}
}

// AddHeader appends a header line. Repeated keys are kept.
func (r *Response) AddHeader(key, value string) {
	r.Headers = append(r.Headers, HeaderField{Key: key, Value: value})
}

// SetContent attaches content and records its type and exact size.
// An empty contentType means no MIME mapping matched; no Content-type is emitted then.
func (r *Response) SetContent(data []byte, contentType string) {
	if data == nil {
		data = []byte{}
	}
	r.Content = data
	if contentType != "" {
		r.AddHeader(HeaderContentType, contentType)
	}
	r.AddHeader(HeaderContentSize, strconv.Itoa(len(data)))
}

// Header returns the first value set for key.
func (r *Response) Header(key string) (string, bool) {
	for _, h := range r.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}
