// Package decision combina las evaluaciones de autoridad, consentimiento
// y compliance en una recomendación operable. Es la vista "qué hago con
// este pedido" que consumen los orquestadores de agentes.
package decision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/cogmesh/internal/authority"
	"github.com/dropDatabas3/cogmesh/internal/compliance"
	"github.com/dropDatabas3/cogmesh/internal/consent"
	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	"github.com/dropDatabas3/cogmesh/internal/intelligence"
	"github.com/dropDatabas3/cogmesh/internal/notify"
	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// ErrMissingTenant se devuelve antes de evaluar nada.
var ErrMissingTenant = fmt.Errorf("missing tenant id")

// Recommendation es la acción sugerida al orquestador.
type Recommendation string

const (
	RecommendProceed     Recommendation = "proceed"
	RecommendSeekConsent Recommendation = "seek_consent"
	RecommendReject      Recommendation = "reject"
	RecommendEscalate    Recommendation = "escalate"
)

// Request describe la operación a decidir.
type Request struct {
	TenantID string `json:"tenant_id"`
	// UserID es el usuario en cuyo nombre actúa el agente; se usa para
	// resolver consentimiento cuando la autoridad lo pide.
	UserID string `json:"user_id,omitempty"`

	Authority core.ValidateAuthorityRequest `json:"authority"`

	// Compliance describe las propiedades de manejo de datos de la
	// operación. Los frameworks salen del scope efectivo del agente.
	Compliance compliance.OperationDescriptor `json:"compliance"`

	// WantRationale pide una justificación en lenguaje natural vía LLM.
	WantRationale bool `json:"want_rationale,omitempty"`
}

// Result es la decisión combinada.
type Result struct {
	Recommendation Recommendation `json:"recommendation"`
	Reason         string         `json:"reason"`

	Authority   *core.AuthorityDecision `json:"authority"`
	Consent     *core.ConsentDecision   `json:"consent,omitempty"`
	Assessments []compliance.Assessment `json:"assessments,omitempty"`

	// Rationale es la explicación opcional generada por el LLM.
	Rationale string `json:"rationale,omitempty"`

	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Service produce recomendaciones combinadas.
type Service interface {
	Decide(ctx context.Context, req Request) (*Result, error)
}

// Deps contiene las dependencias del service. LLM y Notifier son
// opcionales: sin LLM no hay rationale, sin Notifier el escalamiento
// solo queda en el audit trail.
type Deps struct {
	Authority  authority.Service
	Consent    consent.Service
	Compliance compliance.Service
	LLM        intelligence.LLMClient
	Notifier   notify.Notifier
}

type service struct {
	deps Deps
}

// NewService crea el servicio de decisión.
func NewService(deps Deps) Service {
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	return &service{deps: deps}
}

// Decide evalúa en secuencia: autoridad, consentimiento (solo si la
// autoridad lo pide) y compliance; después colapsa a una recomendación:
//
//   - authority denied                        => reject
//   - compliance non_compliant                => reject
//   - requires_consent sin consentimiento     => seek_consent
//   - compliance needs_review                 => escalate (+ notificación)
//   - todo en orden                           => proceed
func (s *service) Decide(ctx context.Context, req Request) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("decision"),
		logger.Op("Decide"),
		logger.TenantID(req.TenantID),
		logger.AgentID(req.Authority.AgentID),
		logger.Action(req.Authority.Action),
	)

	if strings.TrimSpace(req.TenantID) == "" {
		return nil, ErrMissingTenant
	}
	req.Authority.TenantID = req.TenantID
	req.Compliance.TenantID = req.TenantID
	req.Compliance.AgentID = req.Authority.AgentID
	if req.Compliance.Operation == "" {
		req.Compliance.Operation = req.Authority.Action
	}
	if len(req.Compliance.DataCategories) == 0 {
		req.Compliance.DataCategories = req.Authority.DataCategories
	}

	res := &Result{EvaluatedAt: time.Now().UTC()}

	// 1. Autoridad
	authDecision, err := s.deps.Authority.ValidateAuthority(ctx, req.Authority)
	if err != nil {
		return nil, err
	}
	res.Authority = authDecision

	if authDecision.Outcome == types.OutcomeDenied {
		res.Recommendation = RecommendReject
		res.Reason = authDecision.Reason
		return s.finish(ctx, log, req, res)
	}

	// 2. Consentimiento, solo cuando la autoridad lo pide.
	if authDecision.Outcome == types.OutcomeRequiresConsent {
		if req.UserID == "" {
			res.Recommendation = RecommendSeekConsent
			res.Reason = "consent required but no user in context"
			return s.finish(ctx, log, req, res)
		}
		cd, err := s.deps.Consent.ValidateAgentConsent(ctx, core.ValidateConsentRequest{
			TenantID:    req.TenantID,
			UserID:      req.UserID,
			AgentID:     req.Authority.AgentID,
			ConsentType: authDecision.ConsentType,
			Operation:   req.Authority.Action,
			Context:     authDecision.Context,
		})
		if err != nil {
			return nil, err
		}
		res.Consent = cd
		if !cd.HasConsent {
			res.Recommendation = RecommendSeekConsent
			res.Reason = fmt.Sprintf("consent %q not granted (%s)", authDecision.ConsentType, cd.Source)
			return s.finish(ctx, log, req, res)
		}
	}

	// 3. Compliance contra los frameworks del scope efectivo.
	frameworks, err := s.effectiveFrameworks(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(frameworks) > 0 {
		assessments, err := s.deps.Compliance.AssessAll(ctx, frameworks, req.Compliance)
		if err != nil {
			return nil, err
		}
		res.Assessments = assessments

		worst := compliance.VerdictCompliant
		var why string
		for _, a := range assessments {
			switch a.Verdict {
			case compliance.VerdictNonCompliant:
				worst = compliance.VerdictNonCompliant
				why = firstFindingMessage(a)
			case compliance.VerdictNeedsReview:
				if worst != compliance.VerdictNonCompliant {
					worst = compliance.VerdictNeedsReview
					why = firstFindingMessage(a)
				}
			}
		}
		switch worst {
		case compliance.VerdictNonCompliant:
			res.Recommendation = RecommendReject
			res.Reason = "compliance violation: " + why
			return s.finish(ctx, log, req, res)
		case compliance.VerdictNeedsReview:
			res.Recommendation = RecommendEscalate
			res.Reason = "compliance review required: " + why
			return s.finish(ctx, log, req, res)
		}
	}

	res.Recommendation = RecommendProceed
	res.Reason = "authority, consent and compliance checks passed"
	return s.finish(ctx, log, req, res)
}

// effectiveFrameworks resuelve los frameworks aplicables desde el scope
// efectivo del agente. Sin scope configurado no hay frameworks.
func (s *service) effectiveFrameworks(ctx context.Context, req Request) ([]compliance.Framework, error) {
	eff, err := s.deps.Authority.GetAgentAuthority(ctx, req.TenantID, req.Authority.AgentID)
	if err != nil {
		return nil, err
	}
	out := make([]compliance.Framework, 0, len(eff.Scope.ComplianceFrameworks))
	for _, f := range eff.Scope.ComplianceFrameworks {
		out = append(out, compliance.Framework(f))
	}
	return out, nil
}

// finish aplica los efectos colaterales de la recomendación final:
// notificación de escalamiento y rationale opcional.
func (s *service) finish(ctx context.Context, log *zap.Logger, req Request, res *Result) (*Result, error) {
	if res.Recommendation == RecommendEscalate {
		// Best-effort: un fallo de notificación no cambia la decisión.
		err := s.deps.Notifier.NotifyEscalation(notify.Escalation{
			TenantID: req.TenantID,
			AgentID:  req.Authority.AgentID,
			Action:   req.Authority.Action,
			Reason:   res.Reason,
			Outcome:  string(res.Recommendation),
		})
		if err != nil {
			log.Warn("escalation notification failed", logger.Err(err))
		}
	}

	if req.WantRationale && s.deps.LLM != nil {
		rationale, err := s.deps.LLM.Generate(ctx,
			"You explain agent authorization decisions in one short paragraph for a human operator.",
			rationalePrompt(req, res))
		if err != nil {
			log.Warn("rationale generation failed", logger.Err(err))
		} else {
			res.Rationale = strings.TrimSpace(rationale)
		}
	}

	log.Info("decision made",
		logger.Decision(string(res.Recommendation)),
		logger.String("reason", res.Reason),
	)
	return res, nil
}

func rationalePrompt(req Request, res *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agent %s requested action %q.\n", req.Authority.AgentID, req.Authority.Action)
	fmt.Fprintf(&b, "Authority outcome: %s (%s).\n", res.Authority.Outcome, res.Authority.Reason)
	if res.Consent != nil {
		fmt.Fprintf(&b, "Consent: granted=%v via %s.\n", res.Consent.HasConsent, res.Consent.Source)
	}
	for _, a := range res.Assessments {
		fmt.Fprintf(&b, "Compliance %s: %s.\n", a.Framework, a.Verdict)
	}
	fmt.Fprintf(&b, "Final recommendation: %s. Explain why.", res.Recommendation)
	return b.String()
}

func firstFindingMessage(a compliance.Assessment) string {
	for _, f := range a.Findings {
		if f.Severity == compliance.SeverityCritical {
			return f.Message
		}
	}
	if len(a.Findings) > 0 {
		return a.Findings[0].Message
	}
	return string(a.Verdict)
}
