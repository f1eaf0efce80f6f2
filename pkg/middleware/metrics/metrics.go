// Package metrics records Prometheus request metrics for chi routers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/linkly/url-shortener/pkg/middleware"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"server", "method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"server", "method", "route", "status"},
	)

	httpInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
		[]string{"server"},
	)
)

// New labels metrics with the matched chi route pattern, not the raw path,
// so short codes do not blow up label cardinality.
func New(server string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inFlight := httpInFlight.WithLabelValues(server)
			inFlight.Inc()
			defer inFlight.Dec()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			labels := prometheus.Labels{
				"server": server,
				"method": r.Method,
				"route":  route,
				"status": strconv.Itoa(status),
			}
			httpRequestsTotal.With(labels).Inc()
			httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}
