// Package authority contiene los controllers del API de autoridad.
package authority

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/dropDatabas3/cogmesh/internal/authority"
	"github.com/dropDatabas3/cogmesh/internal/config"
	dto "github.com/dropDatabas3/cogmesh/internal/http/dto/authority"
	httperrors "github.com/dropDatabas3/cogmesh/internal/http/errors"
	"github.com/dropDatabas3/cogmesh/internal/http/helpers"
	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// Controller maneja los endpoints de autoridad.
type Controller struct {
	service authsvc.Service
}

// NewController crea el controller de autoridad.
func NewController(service authsvc.Service) *Controller {
	return &Controller{service: service}
}

// Validate maneja POST /v1/authority/validate
func (c *Controller) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Authority.Validate"))

	var req dto.ValidateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	decision, err := c.service.ValidateAuthority(ctx, core.ValidateAuthorityRequest{
		TenantID:       req.TenantID,
		AgentID:        req.AgentID,
		Action:         req.Action,
		Resource:       req.Resource,
		DataCategories: req.DataCategories,
		ResourceUnits:  req.ResourceUnits,
		EstimatedCost:  req.EstimatedCost,
		Parameters:     req.Parameters,
	})
	if err != nil {
		log.Debug("authority validation failed", logger.Err(err))
		writeAuthorityError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, decision)
}

// GetScope maneja GET /v1/authority/scopes/{tenantID}/{agentID}
func (c *Controller) GetScope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eff, err := c.service.GetAgentAuthority(ctx, chi.URLParam(r, "tenantID"), chi.URLParam(r, "agentID"))
	if err != nil {
		writeAuthorityError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, eff)
}

// SetScope maneja PUT /v1/authority/scopes
func (c *Controller) SetScope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.SetScopeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	sc := scopeFromDTO(req)
	if err := c.service.SetAuthorityScope(ctx, &sc); err != nil {
		writeAuthorityError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, sc)
}

// GrantOverride maneja POST /v1/authority/overrides
func (c *Controller) GrantOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Authority.GrantOverride"))

	var req dto.GrantOverrideRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	scope := scopeFromDTO(req.Scope)
	scope.TenantID = req.TenantID
	scope.AgentID = req.AgentID

	ov, err := c.service.GrantOverride(ctx, authsvc.GrantOverrideRequest{
		TenantID:  req.TenantID,
		AgentID:   req.AgentID,
		Scope:     scope,
		Reason:    req.Reason,
		GrantedBy: req.GrantedBy,
		TTL:       config.Dur(req.TTL, 0),
	})
	if err != nil {
		log.Debug("grant override failed", logger.Err(err))
		writeAuthorityError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.OverrideResponse{
		Token:     ov.Token,
		TenantID:  ov.TenantID,
		AgentID:   ov.AgentID,
		Status:    ov.Status(time.Now().UTC()),
		ExpiresAt: ov.ExpiresAt,
	})
}

// RevokeOverride maneja POST /v1/authority/overrides/revoke
func (c *Controller) RevokeOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.RevokeOverrideRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if err := c.service.RevokeOverride(ctx, req.Token, req.RevokedBy); err != nil {
		writeAuthorityError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuditTrail maneja GET /v1/authority/audit/{tenantID}?agent_id=&limit=
func (c *Controller) AuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	records, err := c.service.AuditTrail(ctx, chi.URLParam(r, "tenantID"), r.URL.Query().Get("agent_id"), limit)
	if err != nil {
		writeAuthorityError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
}

func scopeFromDTO(req dto.SetScopeRequest) core.AuthorityScope {
	return core.AuthorityScope{
		TenantID:             req.TenantID,
		AgentID:              req.AgentID,
		AllowedActions:       req.AllowedActions,
		DeniedActions:        req.DeniedActions,
		AllowedResources:     req.AllowedResources,
		MaxResourceUnits:     req.MaxResourceUnits,
		MaxBudget:            req.MaxBudget,
		DataPolicies:         req.DataPolicies,
		ComplianceFrameworks: req.ComplianceFrameworks,
		UpdatedAt:            time.Now().UTC(),
	}
}

func writeAuthorityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authsvc.ErrMissingTenant),
		errors.Is(err, authsvc.ErrMissingAgent),
		errors.Is(err, authsvc.ErrMissingAction),
		errors.Is(err, authsvc.ErrInvalidAction),
		errors.Is(err, authsvc.ErrInvalidActionPat):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
	case errors.Is(err, authsvc.ErrOverrideUnknown):
		httperrors.WriteError(w, httperrors.ErrOverrideNotFound)
	case errors.Is(err, authsvc.ErrOverrideRevoked):
		httperrors.WriteError(w, httperrors.ErrOverrideRevoked)
	case errors.Is(err, authsvc.ErrOverrideExpired):
		httperrors.WriteError(w, httperrors.ErrOverrideNotFound.WithDetail("override expired"))
	default:
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
	}
}
