package auth

import (
	"encoding/base64"
	"testing"

	"authsrv-go/internal/model"
)

var testStore = NewStore(map[string]string{
	"arsel": "123",
	"bob":   "alice",
})

func basicRequest(userpass string) *model.Request {
	return &model.Request{Headers: model.Headers{
		{Key: "Authorization", Value: "Basic " + base64.StdEncoding.EncodeToString([]byte(userpass))},
	}}
}

func cookieRequest(cookie string) *model.Request {
	return &model.Request{Headers: model.Headers{{Key: "Cookie", Value: cookie}}}
}

func TestStore_Verify(t *testing.T) {
	tests := []struct {
		name, user, password string
		want                 bool
	}{
		{"valid", "arsel", "123", true},
		{"wrong password", "arsel", "wrong", false},
		{"unknown user", "mallory", "123", false},
		{"case sensitive", "Arsel", "123", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testStore.Verify(tt.user, tt.password); got != tt.want {
				t.Errorf("Verify(%q, %q) = %v, want %v", tt.user, tt.password, got, tt.want)
			}
		})
	}
}

func TestAuthenticate_Basic(t *testing.T) {
	a := NewAuthenticator(SchemeBasic, testStore)

	tests := []struct {
		name string
		req  *model.Request
		want bool
	}{
		{"valid", basicRequest("arsel:123"), true},
		{"wrong password", basicRequest("arsel:wrong"), false},
		{"unknown user", basicRequest("nobody:123"), false},
		{"password with colon", basicRequest("bob:alice:x"), false},
		{"no colon", basicRequest("arsel"), false},
		{"no header", &model.Request{}, false},
		{"bearer", &model.Request{Headers: model.Headers{{Key: "Authorization", Value: "Bearer abc"}}}, false},
		{"single token", &model.Request{Headers: model.Headers{{Key: "Authorization", Value: "Basic"}}}, false},
		{"bad base64", &model.Request{Headers: model.Headers{{Key: "Authorization", Value: "Basic !!!"}}}, false},
		{"invalid utf8", &model.Request{Headers: model.Headers{
			{Key: "Authorization", Value: "Basic " + base64.StdEncoding.EncodeToString([]byte{0xff, ':', '1'})},
		}}, false},
		{"extra leading tokens", &model.Request{Headers: model.Headers{
			{Key: "Authorization", Value: "x Basic " + base64.StdEncoding.EncodeToString([]byte("arsel:123"))},
		}}, true},
		{"cookie ignored", cookieRequest("user=arsel; password=123"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Authenticate(tt.req); got != tt.want {
				t.Errorf("Authenticate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthenticate_Cookie(t *testing.T) {
	a := NewAuthenticator(SchemeCookie, testStore)

	tests := []struct {
		name string
		req  *model.Request
		want bool
	}{
		{"valid", cookieRequest("user=arsel; password=123"), true},
		{"extra cookies", cookieRequest("theme=dark; user=bob; password=alice"), true},
		{"wrong password", cookieRequest("user=arsel; password=1234"), false},
		{"missing password", cookieRequest("user=arsel"), false},
		{"missing user", cookieRequest("password=123"), false},
		{"pair without equals", cookieRequest("user=arsel; password=123; broken"), false},
		{"no header", &model.Request{}, false},
		{"basic ignored", basicRequest("arsel:123"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Authenticate(tt.req); got != tt.want {
				t.Errorf("Authenticate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthenticate_Pure(t *testing.T) {
	a := NewAuthenticator(SchemeBasic, testStore)
	req := basicRequest("arsel:123")
	first := a.Authenticate(req)
	second := a.Authenticate(req)
	if first != second || !first {
		t.Errorf("Authenticate() = %v then %v, want true twice", first, second)
	}
}

func TestParseScheme(t *testing.T) {
	tests := []struct {
		in      string
		want    Scheme
		wantErr bool
	}{
		{"basic", SchemeBasic, false},
		{"Cookie", SchemeCookie, false},
		{"digest", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScheme(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScheme(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseScheme(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
