package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"arbor/internal/domain"
	"arbor/internal/httputil"
)

// Recovery turns handler panics into a 500 problem response. http.ErrAbortHandler
// is re-raised so net/http can abort the connection as intended.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				httputil.RespondError(w, http.StatusInternalServerError, string(domain.CodeInternal), "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
