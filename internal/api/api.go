package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "reggie/docs"
	"reggie/internal/auth"
	"reggie/internal/config"
	"reggie/internal/documents"
	"reggie/internal/metrics"
	"reggie/internal/playback"
	"reggie/internal/publish"
	"reggie/internal/registry"
)

// Check is a named readiness probe, typically a backend's Ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type API struct {
	Publisher *publish.Service
	Documents *documents.Service
	Player    *playback.Player
	Registry  *registry.Registry
	Auth      *auth.Authenticator
	Checks    []Check
	Cfg       config.ServerConfig
	Log       zerolog.Logger
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(a.Log))
	r.Use(recoverer(a.Log))
	r.Use(cors(a.Cfg.CORSOrigins))

	// Ops
	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Readyz)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Group(func(r chi.Router) {
		if a.Cfg.BodyLimit > 0 {
			r.Use(bodyLimit(a.Cfg.BodyLimit))
		}
		if a.Cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(a.Cfg.RequestTimeout))
		}

		r.Post("/publish", a.Publish)
		r.Get("/types", a.ListTypes)
		r.Get("/users", a.ListUsers)

		r.Route("/message-samples", func(r chi.Router) {
			r.Get("/", a.ListMessageSamples)
			r.Put("/", a.UpsertMessageSample)
			r.Get("/{messageId}", a.GetMessageSample)
			r.Delete("/{messageId}", a.DeleteMessageSample)
		})

		// Secured when a JWT secret is configured
		r.Route("/users/{userId}/scenarios", func(r chi.Router) {
			r.Use(a.Auth.Middleware, a.Auth.RequireUserParam("userId"))

			r.Get("/", a.ListScenarios)
			r.Put("/", a.UpsertScenario)
			r.Get("/{scenarioId}", a.GetScenario)
			r.Delete("/{scenarioId}", a.DeleteScenario)
			r.Post("/{scenarioId}/play", a.PlayScenario)
		})
	})

	if a.Cfg.StaticDir != "" {
		r.Handle("/*", staticFiles(a.Cfg.StaticDir))
	}

	return otelhttp.NewHandler(r, "reggie",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
