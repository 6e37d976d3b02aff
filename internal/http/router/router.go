// Package router arma el árbol de rutas del API sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authorityctrl "github.com/dropDatabas3/cogmesh/internal/http/controllers/authority"
	consentctrl "github.com/dropDatabas3/cogmesh/internal/http/controllers/consent"
	decisionctrl "github.com/dropDatabas3/cogmesh/internal/http/controllers/decision"
	healthctrl "github.com/dropDatabas3/cogmesh/internal/http/controllers/health"
	registryctrl "github.com/dropDatabas3/cogmesh/internal/http/controllers/registry"
	mw "github.com/dropDatabas3/cogmesh/internal/http/middlewares"
)

// Deps contiene los controllers y middlewares que el router necesita.
type Deps struct {
	Health    *healthctrl.Controller
	Authority *authorityctrl.Controller
	Consent   *consentctrl.Controller
	Registry  *registryctrl.Controller
	Decision  *decisionctrl.Controller

	// Auth protege todo /v1 salvo la autenticación de agentes.
	Auth mw.Middleware

	// Metrics es el handler de /metrics (promhttp).
	Metrics http.Handler
}

// New construye el router completo.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Sin auth: health, metrics y autenticación de agentes.
	r.Get("/healthz", deps.Health.Live)
	r.Get("/readyz", deps.Health.Ready)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	r.Post("/v1/agents/authenticate", deps.Registry.Authenticate)

	r.Route("/v1", func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(func(next http.Handler) http.Handler { return deps.Auth(next) })
		}

		r.Route("/authority", func(r chi.Router) {
			r.Post("/validate", deps.Authority.Validate)
			r.Put("/scopes", deps.Authority.SetScope)
			r.Get("/scopes/{tenantID}/{agentID}", deps.Authority.GetScope)
			r.Post("/overrides", deps.Authority.GrantOverride)
			r.Post("/overrides/revoke", deps.Authority.RevokeOverride)
			r.Get("/audit/{tenantID}", deps.Authority.AuditTrail)
		})

		r.Route("/consent", func(r chi.Router) {
			r.Post("/validate", deps.Consent.Validate)
			r.Post("/grants", deps.Consent.Grant)
			r.Post("/grants/revoke", deps.Consent.Revoke)
			r.Post("/records", deps.Consent.Record)
			r.Post("/revoke-all", deps.Consent.RevokeAll)
			r.Get("/preferences/{tenantID}/{userID}", deps.Consent.GetPreferences)
			r.Put("/preferences", deps.Consent.UpdatePreferences)
			r.Post("/emergency", deps.Consent.GrantEmergency)
			r.Post("/emergency/revoke", deps.Consent.RevokeEmergency)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Post("/", deps.Registry.Register)
			r.Get("/{tenantID}", deps.Registry.List)
			r.Get("/{tenantID}/{agentID}", deps.Registry.Get)
			r.Delete("/{tenantID}/{agentID}", deps.Registry.Deactivate)
		})

		r.Post("/decisions", deps.Decision.Decide)

		r.Route("/compliance", func(r chi.Router) {
			r.Post("/assess", deps.Decision.Assess)
			r.Get("/assessments/{id}", deps.Decision.GetAssessment)
		})

		r.Post("/intelligence/insights", deps.Decision.GenerateInsight)
	})

	return r
}
