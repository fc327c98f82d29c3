package middlewares

import (
	stderrors "errors"
	"net/http"

	"github.com/staffdeck/staffdeck/internal/directory"
	"github.com/staffdeck/staffdeck/internal/http/errors"
	"github.com/staffdeck/staffdeck/internal/metrics"
	"github.com/staffdeck/staffdeck/internal/observability/logger"
	"github.com/staffdeck/staffdeck/internal/tenant"
	"github.com/staffdeck/staffdeck/internal/token"
)

// WithRouting classifies every request and prepares the matching data plane.
//
// Control routes get the control store attached eagerly; they are served from
// the shared database and must fail fast when it is unreachable. Tenant
// routes only get annotated here (class plus the unverified tenant hint for
// logs): the per-tenant pool is attached later, after authentication, so a
// request can never reach tenant data on unverified input. Unknown routes
// pass through untouched.
func WithRouting(cl *Classifier, dir *directory.Directory) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := cl.Classify(r.URL.Path)
			metrics.RouteClassified.WithLabelValues(class.String()).Inc()

			ctx := withRouteClass(r.Context(), class)
			l := logger.From(ctx).With(logger.RouteClass(class.String()))

			switch class {
			case RouteControl:
				store, err := dir.EnsureControl(ctx)
				if err != nil {
					l.Error("control store unavailable", logger.Err(err))
					errors.WriteError(w, mapStoreError(err, false))
					return
				}
				ctx = withControlStore(ctx, store)

			case RouteTenant:
				// Prefer a principal verified upstream; otherwise decode the
				// untrusted hint for log enrichment only.
				if p := GetPrincipal(ctx); p != nil && p.TenantCode != "" {
					l = l.With(logger.TenantCode(p.TenantCode))
				} else if hint := token.TenantHint(r.Header.Get("Authorization")); hint != "" {
					ctx = withTenantHint(ctx, hint)
					l = l.With(logger.TenantHint(hint))
				}
			}

			ctx = logger.ToContext(ctx, l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// mapStoreError translates directory/registry failures to the HTTP surface.
// tenantSide selects the tenant-facing catalog entries; the cause is kept for
// logging and never rendered to the client.
func mapStoreError(err error, tenantSide bool) *errors.AppError {
	switch {
	case stderrors.Is(err, tenant.ErrNotFound):
		return errors.ErrTenantNotFound.WithCause(err)
	case stderrors.Is(err, tenant.ErrConfigMissing):
		return errors.ErrInternalServerError.WithCause(err)
	case stderrors.Is(err, tenant.ErrConnectFailed):
		if tenantSide {
			return errors.ErrTenantStoreUnavailable.WithCause(err)
		}
		return errors.ErrControlStoreUnavailable.WithCause(err)
	default:
		return errors.FromError(err)
	}
}
