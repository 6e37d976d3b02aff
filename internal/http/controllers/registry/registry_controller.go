// Package registry contiene los controllers del API de agentes.
package registry

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/cogmesh/internal/http/dto/registry"
	httperrors "github.com/dropDatabas3/cogmesh/internal/http/errors"
	"github.com/dropDatabas3/cogmesh/internal/http/helpers"
	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
	registrysvc "github.com/dropDatabas3/cogmesh/internal/registry"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// Controller maneja los endpoints de agentes.
type Controller struct {
	service registrysvc.Service
}

// NewController crea el controller de agentes.
func NewController(service registrysvc.Service) *Controller {
	return &Controller{service: service}
}

// Register maneja POST /v1/agents
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Registry.Register"))

	var req dto.RegisterRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	agent, key, err := c.service.RegisterAgent(ctx, registrysvc.RegisterRequest{
		TenantID:     req.TenantID,
		Name:         req.Name,
		Description:  req.Description,
		Capabilities: req.Capabilities,
		Actor:        req.Actor,
	})
	if err != nil {
		log.Debug("agent registration failed", logger.Err(err))
		writeRegistryError(w, err)
		return
	}

	// La key en claro viaja una única vez; el cliente debe guardarla.
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusCreated, dto.RegisterResponse{
		Agent:  agentView(agent),
		APIKey: key,
	})
}

// Authenticate maneja POST /v1/agents/authenticate
func (c *Controller) Authenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.AuthenticateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	agent, err := c.service.Authenticate(ctx, req.TenantID, req.AgentID, req.APIKey)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, agentView(agent))
}

// Get maneja GET /v1/agents/{tenantID}/{agentID}
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agent, err := c.service.GetAgent(ctx, chi.URLParam(r, "tenantID"), chi.URLParam(r, "agentID"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, agentView(agent))
}

// List maneja GET /v1/agents/{tenantID}
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agents, err := c.service.ListAgents(ctx, chi.URLParam(r, "tenantID"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	views := make([]dto.AgentView, 0, len(agents))
	for i := range agents {
		views = append(views, agentView(&agents[i]))
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"agents": views, "count": len(views)})
}

// Deactivate maneja DELETE /v1/agents/{tenantID}/{agentID}
func (c *Controller) Deactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := r.URL.Query().Get("actor")
	err := c.service.DeactivateAgent(ctx, chi.URLParam(r, "tenantID"), chi.URLParam(r, "agentID"), actor)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func agentView(a *core.Agent) dto.AgentView {
	return dto.AgentView{
		ID:           a.ID,
		TenantID:     a.TenantID,
		Name:         a.Name,
		Description:  a.Description,
		Capabilities: a.Capabilities,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
		LastSeenAt:   a.LastSeenAt,
	}
}

func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registrysvc.ErrMissingTenant),
		errors.Is(err, registrysvc.ErrInvalidTenant),
		errors.Is(err, registrysvc.ErrMissingName):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
	case errors.Is(err, registrysvc.ErrAgentNotFound):
		httperrors.WriteError(w, httperrors.ErrAgentNotFound)
	case errors.Is(err, registrysvc.ErrInvalidCredential):
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
	case errors.Is(err, registrysvc.ErrAgentDeactivated):
		httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("agent is deactivated"))
	default:
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
	}
}
