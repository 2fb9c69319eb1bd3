package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tryon-server/internal/http/handlers"
	"tryon-server/internal/middleware"
)

// RouterConfig carries the transport-level knobs the router needs.
type RouterConfig struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLocale   string
	Verifier        middleware.SessionVerifier
	CountryLookup   middleware.CountryLookup
}

// NewRouter assembles the HTTP surface: a public health check and the
// authenticated /api routes.
func NewRouter(app *handlers.App, cfg RouterConfig) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Logger(app.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.I18N(cfg.DefaultLocale, cfg.CountryLookup))

	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
		}
		r.Use(middleware.Auth(cfg.Verifier))
		r.Post("/generate", app.Generate)
		r.Get("/credits", app.CreditsBalance)
	})

	return r
}
