package recoverer

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"

	"github.com/linkly/url-shortener/pkg/middleware"
	"github.com/linkly/url-shortener/pkg/response"
)

// New recovers from panics in next and answers with the internal error body.
// http.ErrAbortHandler is re-raised so the server can abort the response.
func New(logger *slog.Logger) middleware.Middleware {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error(
					"something went wrong, panic occurred",
					slog.Group(op, slog.Any("err", rvr), slog.String("stack", string(debug.Stack()))),
				)
				httplog.LogEntrySetField(r.Context(), "panic", slog.AnyValue(rvr))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.InternalError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
