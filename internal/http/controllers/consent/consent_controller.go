// Package consent contiene los controllers del API de consentimiento.
package consent

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/cogmesh/internal/config"
	consentsvc "github.com/dropDatabas3/cogmesh/internal/consent"
	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	dto "github.com/dropDatabas3/cogmesh/internal/http/dto/consent"
	httperrors "github.com/dropDatabas3/cogmesh/internal/http/errors"
	"github.com/dropDatabas3/cogmesh/internal/http/helpers"
	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// Controller maneja los endpoints de consentimiento.
type Controller struct {
	service consentsvc.Service
}

// NewController crea el controller de consentimiento.
func NewController(service consentsvc.Service) *Controller {
	return &Controller{service: service}
}

// Validate maneja POST /v1/consent/validate
func (c *Controller) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Consent.Validate"))

	var req dto.ValidateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	decision, err := c.service.ValidateAgentConsent(ctx, core.ValidateConsentRequest{
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		AgentID:     req.AgentID,
		ConsentType: types.ConsentType(req.ConsentType),
		Operation:   req.Operation,
		Context:     req.Context,
	})
	if err != nil {
		log.Debug("consent validation failed", logger.Err(err))
		writeConsentError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, decision)
}

// Grant maneja POST /v1/consent/grants
func (c *Controller) Grant(w http.ResponseWriter, r *http.Request) {
	c.appendConsent(w, r, true)
}

// Revoke maneja POST /v1/consent/grants/revoke
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	c.appendConsent(w, r, false)
}

func (c *Controller) appendConsent(w http.ResponseWriter, r *http.Request, granted bool) {
	ctx := r.Context()

	var req dto.GrantRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	greq := consentsvc.GrantRequest{
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		AgentID:     req.AgentID,
		ConsentType: types.ConsentType(req.ConsentType),
		Scope:       req.Scope,
		Operation:   req.Operation,
		Context:     req.Context,
		Actor:       req.Actor,
	}

	var rec *core.AgentConsentRecord
	var err error
	if granted {
		rec, err = c.service.GrantAgentConsent(ctx, greq)
	} else {
		rec, err = c.service.RevokeAgentConsent(ctx, greq)
	}
	if err != nil {
		writeConsentError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, rec)
}

// Record maneja POST /v1/consent/records
func (c *Controller) Record(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.RecordRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	rec, err := c.service.RecordGeneralConsent(ctx, consentsvc.RecordRequest{
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		ConsentType: types.ConsentType(req.ConsentType),
		Scope:       req.Scope,
		Granted:     req.Granted,
		Actor:       req.Actor,
	})
	if err != nil {
		writeConsentError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, rec)
}

// RevokeAll maneja POST /v1/consent/revoke-all
func (c *Controller) RevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.RevokeAllRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if err := c.service.RevokeAllConsents(ctx, req.TenantID, req.UserID, req.AgentID, req.Actor); err != nil {
		writeConsentError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPreferences maneja GET /v1/consent/preferences/{tenantID}/{userID}
func (c *Controller) GetPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prefs, err := c.service.GetPreferences(ctx, chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"))
	if err != nil {
		writeConsentError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences maneja PUT /v1/consent/preferences
func (c *Controller) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.PreferencesRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	prefs := &core.AgentConsentPreferences{
		TenantID:           req.TenantID,
		UserID:             req.UserID,
		AutoConsentLowRisk: req.AutoConsentLowRisk,
		TrustedAgents:      req.TrustedAgents,
		BlockedAgents:      req.BlockedAgents,
		UpdatedAt:          time.Now().UTC(),
	}
	for _, t := range req.PreApprovedTypes {
		ct := types.ConsentType(t)
		if !ct.IsValid() {
			httperrors.WriteError(w, httperrors.ErrInvalidConsent.WithDetail(t))
			return
		}
		prefs.PreApprovedTypes = append(prefs.PreApprovedTypes, ct)
	}
	if len(req.TypePreferences) > 0 {
		prefs.TypePreferences = make(map[types.ConsentType]bool, len(req.TypePreferences))
		for t, allow := range req.TypePreferences {
			ct := types.ConsentType(t)
			if !ct.IsValid() {
				httperrors.WriteError(w, httperrors.ErrInvalidConsent.WithDetail(t))
				return
			}
			prefs.TypePreferences[ct] = allow
		}
	}

	if err := c.service.UpdatePreferences(ctx, prefs); err != nil {
		writeConsentError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, prefs)
}

// GrantEmergency maneja POST /v1/consent/emergency
func (c *Controller) GrantEmergency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.EmergencyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	ov, err := c.service.GrantEmergencyOverride(ctx, consentsvc.EmergencyRequest{
		TenantID:     req.TenantID,
		AgentID:      req.AgentID,
		Reason:       req.Reason,
		AuthorizedBy: req.AuthorizedBy,
		TTL:          config.Dur(req.TTL, 0),
	})
	if err != nil {
		writeConsentError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, ov)
}

// RevokeEmergency maneja POST /v1/consent/emergency/revoke
func (c *Controller) RevokeEmergency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.EmergencyRevokeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if err := c.service.RevokeEmergencyOverride(ctx, req.TenantID, req.ID, req.Actor); err != nil {
		writeConsentError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeConsentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, consentsvc.ErrMissingTenant),
		errors.Is(err, consentsvc.ErrMissingUser),
		errors.Is(err, consentsvc.ErrMissingAgent),
		errors.Is(err, consentsvc.ErrMissingConsentType):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
	case errors.Is(err, consentsvc.ErrInvalidConsentType):
		httperrors.WriteError(w, httperrors.ErrInvalidConsent)
	case errors.Is(err, consentsvc.ErrAgentBlocked):
		httperrors.WriteError(w, httperrors.ErrAgentBlocked)
	case errors.Is(err, consentsvc.ErrOverrideUnknown):
		httperrors.WriteError(w, httperrors.ErrOverrideNotFound)
	default:
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
	}
}
