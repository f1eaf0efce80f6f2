// Package web serves the dashboard: server-rendered pages that manage links
// through the link API and the client-side redirect page.
package web

import (
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"

	"github.com/linkly/url-shortener/internal/session"
	"github.com/linkly/url-shortener/pkg/middleware/metrics"
	"github.com/linkly/url-shortener/pkg/middleware/recoverer"
)

type RouterConfig struct {
	Version   string
	StartedAt time.Time
}

func NewRouter(cfg RouterConfig, logger *httplog.Logger, links linkClient, sessions *session.Store) (*chi.Mux, error) {
	const op = "web.NewRouter"

	rd, err := newRenderer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	h := &handler{
		version:  cfg.Version,
		links:    links,
		sessions: sessions,
		rd:       rd,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(metrics.New("dashboard"))
	r.Use(recoverer.New(logger.Logger))

	r.Get("/healthz", handleHealth(cfg.Version, cfg.StartedAt))

	r.Get("/", h.dashboard)
	r.Post("/links", h.createLink)
	r.Post("/links/{code}/delete", h.deleteLink)
	r.Get("/code/{code}", h.stats)

	r.Get("/{code}", h.redirect)

	return r, nil
}
