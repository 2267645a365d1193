package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/logging"
	"github.com/dmitrijs2005/lootshop/internal/timex"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	Service     AuthService
	Cookie      CookieConfig
	CORSOrigins []string

	// Limiter is optional; nil disables per-IP rate limiting.
	Limiter         Counter
	RateLimitMax    int
	RateLimitWindow time.Duration

	Now    timex.Clock
	Logger logging.Logger
}

// NewRouter wires the routes:
//
//	GET  /health
//	POST /api/auth       action dispatch
//	GET  /api/admin/me   admins only
func NewRouter(c RouterConfig) http.Handler {
	l := c.Logger
	if l == nil {
		l = logging.Nop{}
	}
	l = l.With("module", "http_api")
	if c.Now == nil {
		c.Now = timex.UTCNow
	}

	h := &authHandler{svc: c.Service, cookie: c.Cookie, now: c.Now, logger: l}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(l))
	r.Use(Recoverer(l))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   c.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		ok(w, envelope{Message: "OK"})
	})

	r.Route("/api", func(r chi.Router) {
		limited := r.With()
		if c.Limiter != nil {
			limited = r.With(RateLimit(c.Limiter, c.RateLimitMax, c.RateLimitWindow, l))
		}
		limited.Method(http.MethodPost, "/auth", h)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(c.Service, c.Cookie.Name, authz.LevelBasic, l))
			r.Get("/me", adminMe)
		})
	})

	return r
}

func adminMe(w http.ResponseWriter, r *http.Request) {
	authz, _ := AuthorizationFrom(r.Context())
	ok(w, envelope{Authorization: &authz})
}
