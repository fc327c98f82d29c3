package middlewares

import (
	"net/http"
	"runtime/debug"

	"github.com/staffdeck/staffdeck/internal/http/errors"
	"github.com/staffdeck/staffdeck/internal/observability/logger"
)

// WithRecover converts a handler panic into a 500 instead of killing the
// connection.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("handler panic",
						logger.Any("panic", rec),
						logger.String("stack", string(debug.Stack())),
					)
					errors.WriteError(w, errors.ErrInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
