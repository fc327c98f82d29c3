package middlewares

import (
	"context"

	"github.com/staffdeck/staffdeck/internal/directory"
	"github.com/staffdeck/staffdeck/internal/registry"
	"github.com/staffdeck/staffdeck/internal/token"
)

type ctxKey string

const (
	ctxRouteClassKey   ctxKey = "route_class"
	ctxTenantHintKey   ctxKey = "tenant_hint"
	ctxPrincipalKey    ctxKey = "principal"
	ctxControlStoreKey ctxKey = "control_store"
	ctxTenantHandleKey ctxKey = "tenant_handle"
	ctxRequestIDKey    ctxKey = "request_id"
)

// ---- setters (internal, used by the middlewares) ----

func withRouteClass(ctx context.Context, c RouteClass) context.Context {
	return context.WithValue(ctx, ctxRouteClassKey, c)
}

func withTenantHint(ctx context.Context, hint string) context.Context {
	return context.WithValue(ctx, ctxTenantHintKey, hint)
}

// WithPrincipal attaches a verified principal. Exported for tests and for
// service wiring that authenticates out of band.
func WithPrincipal(ctx context.Context, p *token.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

func withControlStore(ctx context.Context, s directory.ControlStore) context.Context {
	return context.WithValue(ctx, ctxControlStoreKey, s)
}

func withTenantHandle(ctx context.Context, h *registry.Handle) context.Context {
	return context.WithValue(ctx, ctxTenantHandleKey, h)
}

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, rid)
}

// ---- getters (public, used by handlers/services) ----

// GetRouteClass returns the classification recorded by the routing
// middleware, RouteUnknown when it did not run.
func GetRouteClass(ctx context.Context) RouteClass {
	if v, ok := ctx.Value(ctxRouteClassKey).(RouteClass); ok {
		return v
	}
	return RouteUnknown
}

// GetTenantHint returns the unverified tenant-code hint. Diagnostics only.
func GetTenantHint(ctx context.Context) string {
	if v, ok := ctx.Value(ctxTenantHintKey).(string); ok {
		return v
	}
	return ""
}

// GetPrincipal returns the verified principal, nil when the request is
// unauthenticated.
func GetPrincipal(ctx context.Context) *token.Principal {
	if v, ok := ctx.Value(ctxPrincipalKey).(*token.Principal); ok {
		return v
	}
	return nil
}

// GetControlStore returns the control store attached on control routes.
func GetControlStore(ctx context.Context) directory.ControlStore {
	if v, ok := ctx.Value(ctxControlStoreKey).(directory.ControlStore); ok {
		return v
	}
	return nil
}

// GetTenantHandle returns the tenant pool handle attached by the tenant
// authorization step, nil before it ran.
func GetTenantHandle(ctx context.Context) *registry.Handle {
	if v, ok := ctx.Value(ctxTenantHandleKey).(*registry.Handle); ok {
		return v
	}
	return nil
}

// MustGetTenantHandle panics when no handle is attached. Only for routes
// where the tenant authorization step always runs.
func MustGetTenantHandle(ctx context.Context) *registry.Handle {
	h := GetTenantHandle(ctx)
	if h == nil {
		panic("middlewares: no tenant handle in context")
	}
	return h
}

// GetRequestID returns the request ID, "" when absent.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return v
	}
	return ""
}
