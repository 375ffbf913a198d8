package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Knouxai/Knoux-versa-sub002/internal/http/handlers"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
	"github.com/Knouxai/Knoux-versa-sub002/internal/middleware"
)

// RouterOptions carries the middleware settings.
type RouterOptions struct {
	Logger          infra.Logger
	CORSOrigins     []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	StaticDir       string
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/tools", app.Tools)
		r.With(middleware.RateLimit(max(opts.RateLimitPerMin/6, 1), time.Minute)).Post("/vip/auth", app.VIPAuth)
		r.Group(func(r chi.Router) {
			r.Use(middleware.VIPSession(app.JWTSecret))
			r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/transform", app.Transform)
			r.Get("/transform/{jobId}/events", app.TransformEvents)
		})
		r.Get("/jobs", app.ListJobs)
		r.Get("/jobs/{jobId}", app.GetJob)
		r.Get("/stats", app.UsageStats)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)
	})

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	return r
}
