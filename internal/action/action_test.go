package action

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"authsrv-go/internal/auth"
	"authsrv-go/internal/model"
)

var testStore = auth.NewStore(map[string]string{"arsel": "123"})

func TestRegistry_Lookup(t *testing.T) {
	r, err := NewDefaultRegistry(auth.SchemeCookie, testStore, time.Now)
	if err != nil {
		t.Fatalf("NewDefaultRegistry() error = %v", err)
	}

	tests := []struct {
		name, method, path string
		want               bool
	}{
		{"login", http.MethodGet, "auth/login", true},
		{"wrong method", http.MethodPost, "auth/login", false},
		{"unknown segment", http.MethodGet, "auth/logout", false},
		{"partial path", http.MethodGet, "auth", false},
		{"too deep", http.MethodGet, "auth/login/extra", false},
		{"dotted segment", http.MethodGet, "auth.login", false},
		{"trailing slash", http.MethodGet, "auth/login/", false},
		{"empty", http.MethodGet, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, fn, ok := r.Lookup(tt.method, tt.path)
			if ok != tt.want {
				t.Fatalf("Lookup(%q, %q) ok = %v, want %v", tt.method, tt.path, ok, tt.want)
			}
			if ok && (fn == nil || name != LoginName) {
				t.Errorf("Lookup() = %q, fn nil = %v", name, fn == nil)
			}
		})
	}
}

func TestNewDefaultRegistry_BasicHasNoLogin(t *testing.T) {
	r, err := NewDefaultRegistry(auth.SchemeBasic, testStore, time.Now)
	if err != nil {
		t.Fatalf("NewDefaultRegistry() error = %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if _, _, ok := r.Lookup(http.MethodGet, "auth/login"); ok {
		t.Error("Lookup(GET, auth/login) found the login action under basic")
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	noop := func(map[string]string) model.ActionResult { return model.ActionResult{} }

	if err := r.Register(http.MethodGet, "a.b", noop); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(http.MethodGet, "a.b", noop); err == nil {
		t.Error("Register() duplicate expected error, got nil")
	}
	if err := r.Register(http.MethodGet, "a..b", noop); err == nil {
		t.Error("Register() empty segment expected error, got nil")
	}
	if err := r.Register(http.MethodGet, "a/b", noop); err == nil {
		t.Error("Register() slash in name expected error, got nil")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestLogin_Success(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 30, 0, 0, time.UTC)
	login := Login(testStore, func() time.Time { return now })

	res := login(map[string]string{"user": "arsel", "password": "123"})
	if !res.Success {
		t.Fatal("Success = false, want true")
	}

	cookies := res.Directives[model.HeaderSetCookie]
	if len(cookies) != 2 {
		t.Fatalf("got %d Set-Cookie directives, want 2", len(cookies))
	}
	want := []string{
		"user=arsel; Expires=Fri, 15 Mar 2024 12:30:00 GMT; Path=/",
		"password=123; Expires=Fri, 15 Mar 2024 12:30:00 GMT; Path=/",
	}
	for i := range want {
		if cookies[i] != want[i] {
			t.Errorf("cookie[%d] = %q, want %q", i, cookies[i], want[i])
		}
	}
}

func TestLogin_ExpiresFourteenDaysAhead(t *testing.T) {
	res := Login(testStore, time.Now)(map[string]string{"user": "arsel", "password": "123"})
	if !res.Success {
		t.Fatal("Success = false, want true")
	}

	want := time.Now().Add(SessionLifetime)
	for _, c := range res.Directives[model.HeaderSetCookie] {
		_, rest, ok := strings.Cut(c, "Expires=")
		if !ok {
			t.Fatalf("cookie %q has no Expires", c)
		}
		stamp, _, _ := strings.Cut(rest, ";")
		got, err := time.Parse(http.TimeFormat, stamp)
		if err != nil {
			t.Fatalf("parse %q: %v", stamp, err)
		}
		if d := got.Sub(want); d < -5*time.Second || d > 5*time.Second {
			t.Errorf("Expires = %v, want within 5s of %v", got, want)
		}
	}
}

func TestLogin_Failure(t *testing.T) {
	login := Login(testStore, time.Now)

	tests := []struct {
		name   string
		params map[string]string
	}{
		{"wrong password", map[string]string{"user": "arsel", "password": "1234"}},
		{"unknown user", map[string]string{"user": "bob", "password": "123"}},
		{"missing password", map[string]string{"user": "arsel"}},
		{"missing user", map[string]string{"password": "123"}},
		{"no params", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := login(tt.params)
			if res.Success {
				t.Error("Success = true, want false")
			}
			if len(res.Directives) != 0 {
				t.Errorf("Directives = %v, want none", res.Directives)
			}
		})
	}
}

func TestFormatCookieTime(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	got := FormatCookieTime(time.Date(2024, time.January, 2, 3, 4, 5, 0, loc))
	if got != "Tue, 02 Jan 2024 00:04:05 GMT" {
		t.Errorf("FormatCookieTime() = %q", got)
	}
}
