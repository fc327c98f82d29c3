package middlewares

import (
	"net/http"
	"strings"

	"github.com/staffdeck/staffdeck/internal/http/errors"
	"github.com/staffdeck/staffdeck/internal/observability/logger"
	"github.com/staffdeck/staffdeck/internal/token"
)

// WithAuthentication verifies the bearer credential and attaches the
// resulting principal. A present-but-invalid credential is rejected; an
// absent one passes through unauthenticated and downstream steps decide
// whether that is acceptable.
func WithAuthentication(v token.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			p, err := v.Verify(r.Context(), raw)
			if err != nil {
				logger.From(r.Context()).Warn("token rejected", logger.Err(err))
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			l := logger.From(ctx).With(logger.String("subject", p.Subject))
			if p.TenantCode != "" {
				l = l.With(logger.TenantCode(p.TenantCode))
			}
			next.ServeHTTP(w, r.WithContext(logger.ToContext(ctx, l)))
		})
	}
}

func bearerToken(authorization string) string {
	raw := strings.TrimSpace(authorization)
	if l := strings.ToLower(raw); !strings.HasPrefix(l, "bearer ") {
		return ""
	}
	return strings.TrimSpace(raw[len("bearer "):])
}
