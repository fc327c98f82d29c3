// Package router assembles the HTTP surface: the middleware chain that
// classifies and routes requests to the right data plane, the operator
// endpoints and the tenant-plane API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/staffdeck/staffdeck/internal/config"
	"github.com/staffdeck/staffdeck/internal/directory"
	"github.com/staffdeck/staffdeck/internal/http/handlers"
	"github.com/staffdeck/staffdeck/internal/http/middlewares"
	"github.com/staffdeck/staffdeck/internal/registry"
	"github.com/staffdeck/staffdeck/internal/token"
)

// Deps carries everything the router wires together.
type Deps struct {
	Config    *config.Config
	Directory *directory.Directory
	Registry  *registry.Registry
	Verifier  token.Verifier
}

// New builds the full handler tree.
//
// Middleware order matters: request id first so every log line carries it,
// then the access log, then panic recovery, then routing. Authentication and
// the tenant access step run only on the groups that need them.
func New(d Deps) http.Handler {
	classifier := middlewares.NewClassifier(
		d.Config.Routes.ControlPrefixes,
		d.Config.Routes.TenantPrefixes,
	)

	r := chi.NewRouter()
	r.Use(
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
		middlewares.WithRecover(),
		middlewares.WithRouting(classifier, d.Directory),
	)

	// Probes and metrics: classified Unknown, no database involved.
	health := handlers.NewHealth(d.Directory, d.Registry)
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Operator surface: control plane, gated by the admin key.
	admin := handlers.NewAdmin(d.Directory, d.Registry, d.Config.Server.AdminAPIKey)
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(admin.RequireKey)
		r.Get("/tenants", admin.ListTenants)
		r.Get("/pools", admin.ListPools)
		r.Delete("/tenants/{code}/pool", admin.EvictPool)
	})

	// Tenant plane: verified principal required, pool attached per request.
	employees := handlers.NewEmployees()
	r.Group(func(r chi.Router) {
		r.Use(
			middlewares.WithAuthentication(d.Verifier),
			middlewares.WithTenantAccess(d.Registry, d.Config.Server.Diagnostics),
		)
		r.Get("/api/employees/ping", employees.Ping)
	})

	return r
}
