package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const authorizationKey ctxKey = "authorization"

// sessionToken reads the session credential from the cookie, falling back
// to an Authorization: Bearer header.
func sessionToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(h, "Bearer "); found {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthorizationFrom returns the admin authorization stored by RequireAdmin.
func AuthorizationFrom(ctx context.Context) (authz.Authorization, bool) {
	a, ok := ctx.Value(authorizationKey).(authz.Authorization)
	return a, ok
}

// RequireAdmin lets a request through only when its session verifies
// against the stored one and the owner holds at least minLevel.
func RequireAdmin(svc AuthService, cookieName string, minLevel authz.Level, l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cookieName)
			if token == "" {
				writeError(w, common.ErrInvalidSession)
				return
			}

			authz, err := svc.AdminSession(r.Context(), token)
			if err != nil {
				if statusFor(err) >= http.StatusInternalServerError {
					l.Error(r.Context(), "admin session check failed", "error", err)
				}
				writeError(w, err)
				return
			}
			if !authz.IsAdmin || authz.AdminLevel < minLevel {
				writeError(w, common.ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), authorizationKey, authz)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs one line per request.
func RequestLogger(l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			l.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Recoverer turns a panic into a redacted 500.
func Recoverer(l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					l.Error(r.Context(), "panic in handler", "panic", p, "path", r.URL.Path)
					writeError(w, common.ErrorInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
