// Package model defines shared types for the request/response engine.
package model

// HeaderField is a single header line as received or as emitted.
type HeaderField struct {
	Key   string
	Value string
}

// Headers keeps header fields in wire order. Keys are case-sensitive.
type Headers []HeaderField

// Get returns the value of the last field named key.
func (h Headers) Get(key string) (string, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Key == key {
			return h[i].Value, true
		}
	}
	return "", false
}

// Request is a parsed client request. All other fields are unset when Empty is true.
type Request struct {
	Method   string
	Path     string // target without the leading '/'; the root page name for "/"
	Protocol string
	Headers  Headers

	RawHeaders string
	Body       string
	Empty      bool
}
