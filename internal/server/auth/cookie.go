package auth

import (
	"net/http"
	"time"
)

// SessionCookie carries the session token: Secure (unless disabled for local
// HTTP), HttpOnly and SameSite=Strict.
func SessionCookie(name, token string, expiresAt, now time.Time, secure bool) *http.Cookie {
	maxAge := int(expiresAt.Sub(now) / time.Second)
	if maxAge < 1 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearedSessionCookie tells the browser to drop the session cookie.
func ClearedSessionCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
