// Package auth checks requests against the credential store using either
// HTTP Basic or cookie credentials.
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"authsrv-go/internal/model"
	"authsrv-go/internal/protocol"
)

// Store maps user names to plaintext passwords. It is read-only once built.
type Store map[string]string

// NewStore copies users into a Store.
func NewStore(users map[string]string) Store {
	s := make(Store, len(users))
	for u, p := range users {
		s[u] = p
	}
	return s
}

// Verify reports whether user exists and password matches exactly.
func (s Store) Verify(user, password string) bool {
	want, ok := s[user]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(password)) == 1
}

// Scheme selects where credentials are read from.
type Scheme int

const (
	SchemeBasic Scheme = iota
	SchemeCookie
)

func (s Scheme) String() string {
	switch s {
	case SchemeBasic:
		return "basic"
	case SchemeCookie:
		return "cookie"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// ParseScheme accepts "basic" or "cookie".
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(s) {
	case "basic":
		return SchemeBasic, nil
	case "cookie":
		return SchemeCookie, nil
	}
	return 0, fmt.Errorf("unknown auth scheme %q", s)
}

// Credentials is a user/password pair presented by a client.
type Credentials struct {
	User     string
	Password string
}

// BasicCredentials extracts credentials from the Authorization header.
func BasicCredentials(req *model.Request) (Credentials, bool) {
	value, ok := req.Headers.Get("Authorization")
	if !ok {
		return Credentials{}, false
	}
	fields := strings.Fields(value)
	if len(fields) < 2 {
		return Credentials{}, false
	}
	kind, encoded := fields[len(fields)-2], fields[len(fields)-1]
	if kind != "Basic" {
		return Credentials{}, false
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || protocol.Decode(raw) != nil {
		return Credentials{}, false
	}
	user, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Credentials{}, false
	}
	return Credentials{User: user, Password: password}, true
}

// CookieCredentials extracts the user and password cookies.
func CookieCredentials(req *model.Request) (Credentials, bool) {
	value, ok := req.Headers.Get("Cookie")
	if !ok {
		return Credentials{}, false
	}
	cookies := make(map[string]string)
	for _, pair := range strings.Split(value, "; ") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return Credentials{}, false
		}
		cookies[k] = v
	}

	user, hasUser := cookies["user"]
	password, hasPassword := cookies["password"]
	if !hasUser || !hasPassword {
		return Credentials{}, false
	}
	return Credentials{User: user, Password: password}, true
}

// Authenticator evaluates requests with one configured scheme.
type Authenticator struct {
	scheme Scheme
	store  Store
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(scheme Scheme, store Store) *Authenticator {
	return &Authenticator{scheme: scheme, store: store}
}

// Scheme returns the configured scheme.
func (a *Authenticator) Scheme() Scheme {
	return a.scheme
}

// Authenticate reports whether req carries valid credentials. It has no side effects.
func (a *Authenticator) Authenticate(req *model.Request) bool {
	var (
		c  Credentials
		ok bool
	)
	switch a.scheme {
	case SchemeBasic:
		c, ok = BasicCredentials(req)
	case SchemeCookie:
		c, ok = CookieCredentials(req)
	}
	return ok && a.store.Verify(c.User, c.Password)
}
