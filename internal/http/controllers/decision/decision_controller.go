// Package decision contiene los controllers de decisión combinada,
// compliance e intelligence.
package decision

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/dropDatabas3/cogmesh/internal/authority"
	compliancesvc "github.com/dropDatabas3/cogmesh/internal/compliance"
	decisionsvc "github.com/dropDatabas3/cogmesh/internal/decision"
	dto "github.com/dropDatabas3/cogmesh/internal/http/dto/decision"
	httperrors "github.com/dropDatabas3/cogmesh/internal/http/errors"
	"github.com/dropDatabas3/cogmesh/internal/http/helpers"
	intelligencesvc "github.com/dropDatabas3/cogmesh/internal/intelligence"
	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// Controller maneja los endpoints de decisión, compliance e insights.
type Controller struct {
	decision     decisionsvc.Service
	compliance   compliancesvc.Service
	intelligence intelligencesvc.Service
}

// NewController crea el controller de decisión.
func NewController(d decisionsvc.Service, c compliancesvc.Service, i intelligencesvc.Service) *Controller {
	return &Controller{decision: d, compliance: c, intelligence: i}
}

// Decide maneja POST /v1/decisions
func (c *Controller) Decide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Decision.Decide"))

	var req dto.DecideRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	result, err := c.decision.Decide(ctx, decisionsvc.Request{
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Authority: core.ValidateAuthorityRequest{
			TenantID:       req.TenantID,
			AgentID:        req.AgentID,
			Action:         req.Action,
			Resource:       req.Resource,
			DataCategories: req.DataCategories,
			ResourceUnits:  req.ResourceUnits,
			EstimatedCost:  req.EstimatedCost,
		},
		Compliance:    descriptorFromProps(req.TenantID, req.AgentID, req.Action, req.DataCategories, req.Compliance),
		WantRationale: req.WantRationale,
	})
	if err != nil {
		log.Debug("decision failed", logger.Err(err))
		writeDecisionError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// Assess maneja POST /v1/compliance/assess
func (c *Controller) Assess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.AssessRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	frameworks := make([]compliancesvc.Framework, 0, len(req.Frameworks))
	for _, f := range req.Frameworks {
		frameworks = append(frameworks, compliancesvc.Framework(f))
	}

	assessments, err := c.compliance.AssessAll(ctx, frameworks,
		descriptorFromProps(req.TenantID, req.AgentID, req.Operation, req.DataCategories, req.Props))
	if err != nil {
		writeComplianceError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"assessments": assessments})
}

// GetAssessment maneja GET /v1/compliance/assessments/{id}
func (c *Controller) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	a, err := c.compliance.GetAssessment(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeComplianceError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, a)
}

// GenerateInsight maneja POST /v1/intelligence/insights
func (c *Controller) GenerateInsight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Decision.GenerateInsight"))

	var req dto.InsightRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	signals := make([]intelligencesvc.Signal, 0, len(req.Signals))
	for _, s := range req.Signals {
		signals = append(signals, intelligencesvc.Signal{
			Kind:       s.Kind,
			Detail:     s.Detail,
			OccurredAt: s.OccurredAt,
		})
	}

	insight, err := c.intelligence.GenerateInsight(ctx, intelligencesvc.InsightRequest{
		TenantID:   req.TenantID,
		CustomerID: req.CustomerID,
		Signals:    signals,
	})
	if err != nil {
		log.Debug("insight generation failed", logger.Err(err))
		writeIntelligenceError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, insight)
}

func descriptorFromProps(tenantID, agentID, operation string, cats []string, p dto.ComplianceProps) compliancesvc.OperationDescriptor {
	return compliancesvc.OperationDescriptor{
		TenantID:          tenantID,
		AgentID:           agentID,
		Operation:         operation,
		DataCategories:    cats,
		HasLegalBasis:     p.HasLegalBasis,
		HasUserConsent:    p.HasUserConsent,
		CrossBorder:       p.CrossBorder,
		RetentionDays:     p.RetentionDays,
		SupportsErasure:   p.SupportsErasure,
		SupportsPortation: p.SupportsPortation,
		AutomatedDecision: p.AutomatedDecision,
		HumanOversight:    p.HumanOversight,
		RiskTier:          p.RiskTier,
		DisclosesAIUse:    p.DisclosesAIUse,
	}
}

// writeDecisionError mapea los sentinels de validación que Decide puede
// propagar desde los services que compone.
func writeDecisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, decisionsvc.ErrMissingTenant),
		errors.Is(err, authsvc.ErrMissingTenant),
		errors.Is(err, authsvc.ErrMissingAgent),
		errors.Is(err, authsvc.ErrMissingAction),
		errors.Is(err, authsvc.ErrInvalidAction):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
	case errors.Is(err, compliancesvc.ErrUnknownFramework):
		httperrors.WriteError(w, httperrors.ErrUnknownFramework)
	default:
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
	}
}

func writeComplianceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, compliancesvc.ErrMissingTenant),
		errors.Is(err, compliancesvc.ErrMissingOperation):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
	case errors.Is(err, compliancesvc.ErrUnknownFramework):
		httperrors.WriteError(w, httperrors.ErrUnknownFramework)
	case errors.Is(err, compliancesvc.ErrAssessmentNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

func writeIntelligenceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, intelligencesvc.ErrMissingTenant),
		errors.Is(err, intelligencesvc.ErrMissingCustomer),
		errors.Is(err, intelligencesvc.ErrNoSignals):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(err.Error()))
	case errors.Is(err, intelligencesvc.ErrLLMUnavailable):
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("llm not configured"))
	default:
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
	}
}
