// Package http provides the HTTP delivery layer of the link API.
// It decodes and validates requests, maps use case errors to statuses and
// serves the redirect endpoint.
package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/linkly/url-shortener/docs"
	"github.com/linkly/url-shortener/pkg/middleware/metrics"
	"github.com/linkly/url-shortener/pkg/middleware/recoverer"
)

type RouterConfig struct {
	Version        string
	StartedAt      time.Time
	AllowedOrigins []string
}

// NewRouter returns the API router. The catch-all redirect route is mounted
// last so it never shadows the API.
func NewRouter(cfg RouterConfig, logger *httplog.Logger, linkUseCase linkUseCase) *chi.Mux {
	r := chi.NewRouter()

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(metrics.New("api"))
	r.Use(recoverer.New(logger.Logger))

	r.Get("/healthz", handleHealth(cfg.Version, cfg.StartedAt))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))
	r.Get("/docs/swagger.yml", handleDocument(logger.Logger, "application/yaml", docs.Swagger))

	h := newLinkHandler(linkUseCase, newValidator())

	r.Route("/api/links", func(r chi.Router) {
		r.Post("/", h.createLink)
		r.Get("/", h.listLinks)

		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", h.getLinkStats)
			r.Delete("/", h.deleteLink)
		})
	})

	r.Get("/{code}", h.redirect)

	return r
}
