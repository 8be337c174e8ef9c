package action

import (
	"fmt"
	"net/http"
	"time"

	"authsrv-go/internal/auth"
	"authsrv-go/internal/model"
)

// SessionLifetime is how long login cookies stay valid.
const SessionLifetime = 14 * 24 * time.Hour

// LoginName is the registry name of the login action.
const LoginName = "auth.login"

// FormatCookieTime renders t in the cookie-date form "Mon, 02 Jan 2006 15:04:05 GMT".
func FormatCookieTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// Login checks the submitted user and password against store and, on success,
// sets both as cookies expiring SessionLifetime after now().
func Login(store auth.Store, now func() time.Time) model.ActionFunc {
	return func(params map[string]string) model.ActionResult {
		user, hasUser := params["user"]
		password, hasPassword := params["password"]
		if !hasUser || !hasPassword || !store.Verify(user, password) {
			return model.ActionResult{}
		}

		expires := FormatCookieTime(now().Add(SessionLifetime))
		return model.ActionResult{
			Success: true,
			Directives: map[string][]string{
				model.HeaderSetCookie: {
					fmt.Sprintf("user=%s; Expires=%s; Path=/", user, expires),
					fmt.Sprintf("password=%s; Expires=%s; Path=/", password, expires),
				},
			},
		}
	}
}

// NewDefaultRegistry returns the actions served under scheme. The login
// action only exists for cookie sessions; Basic clients send credentials on
// every request and get an empty registry.
func NewDefaultRegistry(scheme auth.Scheme, store auth.Store, now func() time.Time) (*Registry, error) {
	r := NewRegistry()
	if scheme != auth.SchemeCookie {
		return r, nil
	}
	if err := r.Register(http.MethodGet, LoginName, Login(store, now)); err != nil {
		return nil, err
	}
	return r, nil
}
