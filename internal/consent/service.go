package consent

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/cogmesh/internal/audit"
	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	"github.com/dropDatabas3/cogmesh/internal/metrics"
	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
	"github.com/dropDatabas3/cogmesh/internal/resilience"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// Service es el evaluador de consentimiento de agentes.
type Service interface {
	// ValidateAgentConsent corre la cadena de prioridades y audita el resultado.
	ValidateAgentConsent(ctx context.Context, req core.ValidateConsentRequest) (*core.ConsentDecision, error)

	// GrantAgentConsent agrega un grant al log. Falla con ErrAgentBlocked
	// si el agente está bloqueado en las preferencias del usuario.
	GrantAgentConsent(ctx context.Context, req GrantRequest) (*core.AgentConsentRecord, error)

	// RevokeAgentConsent agrega un revoke al log.
	RevokeAgentConsent(ctx context.Context, req GrantRequest) (*core.AgentConsentRecord, error)

	// RecordGeneralConsent agrega al log un registro general (sin agente):
	// el fallback de la cadena cuando no hay registro agente-scoped.
	RecordGeneralConsent(ctx context.Context, req RecordRequest) (*core.ConsentRecord, error)

	// RevokeAllConsents revoca todo consentimiento vigente del agente para
	// el usuario y lo bloquea en preferencias.
	RevokeAllConsents(ctx context.Context, tenantID, userID, agentID, actor string) error

	// GetPreferences / UpdatePreferences administran los defaults por usuario.
	GetPreferences(ctx context.Context, tenantID, userID string) (*core.AgentConsentPreferences, error)
	UpdatePreferences(ctx context.Context, p *core.AgentConsentPreferences) error

	// GrantEmergencyOverride emite un bypass temporal de consentimiento.
	GrantEmergencyOverride(ctx context.Context, req EmergencyRequest) (*core.EmergencyOverride, error)

	// RevokeEmergencyOverride revoca un override de emergencia por id.
	RevokeEmergencyOverride(ctx context.Context, tenantID, id, actor string) error
}

// GrantRequest describe un grant/revoke de consentimiento agente-scoped.
type GrantRequest struct {
	TenantID    string
	UserID      string
	AgentID     string
	ConsentType types.ConsentType
	Scope       string
	Operation   string
	Context     map[string]string
	Actor       string
}

// RecordRequest describe un registro de consentimiento general, sin
// agente asociado.
type RecordRequest struct {
	TenantID    string
	UserID      string
	ConsentType types.ConsentType
	Scope       string
	Granted     bool
	Actor       string
}

// EmergencyRequest describe el pedido de un override de emergencia.
type EmergencyRequest struct {
	TenantID     string
	AgentID      string
	Reason       string
	AuthorizedBy string
	TTL          time.Duration
}

// Deps contiene las dependencias del service.
type Deps struct {
	Repo  core.Repository
	Exec  *resilience.Executor
	Trail *audit.Trail

	// DefaultEmergencyTTL se usa cuando EmergencyRequest.TTL es 0.
	DefaultEmergencyTTL time.Duration
}

type service struct {
	deps Deps
}

// NewService crea el evaluador de consentimiento.
func NewService(deps Deps) Service {
	if deps.Exec == nil {
		deps.Exec = resilience.New("consent", resilience.Options{})
	}
	if deps.DefaultEmergencyTTL == 0 {
		deps.DefaultEmergencyTTL = 15 * time.Minute
	}
	return &service{deps: deps}
}

// ValidateAgentConsent corta en el primer match, en orden de prioridad:
//
//  1. emergency override activo          => granted
//  2. agente bloqueado                   => denied
//  3. agente en lista de confianza       => granted
//  4. tipo pre-aprobado                  => granted
//  5. preferencia explícita por tipo     => granted/denied
//  6. auto-consent (solo tipos low-risk) => granted
//  7. registro agente-scoped más reciente
//  8. registro general (sin agente) más reciente
//  9. default deny
func (s *service) ValidateAgentConsent(ctx context.Context, req core.ValidateConsentRequest) (*core.ConsentDecision, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("consent"),
		logger.Op("ValidateAgentConsent"),
		logger.TenantID(req.TenantID),
		logger.UserID(req.UserID),
		logger.AgentID(req.AgentID),
		logger.ConsentType(string(req.ConsentType)),
	)

	if err := validateKey(req.TenantID, req.UserID, req.AgentID, req.ConsentType); err != nil {
		return nil, err
	}

	decision, err := s.decide(ctx, req)
	if err != nil {
		log.Error("consent validation failed", logger.Err(err))
		return nil, err
	}

	// Toda validación deja rastro, incluidas las concedidas por override.
	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  req.TenantID,
		AgentID:   req.AgentID,
		EventType: "consent_validation",
		Action:    req.Operation,
		Decision:  decisionLabel(decision.HasConsent),
		Reason:    decision.Source,
		Actor:     req.UserID,
		Metadata:  map[string]any{"consent_type": string(req.ConsentType)},
	})
	metrics.RecordConsentDecision(req.TenantID, decision.Source, decision.HasConsent)

	log.Info("consent validated",
		logger.Bool("has_consent", decision.HasConsent),
		logger.String("source", decision.Source),
	)
	return decision, nil
}

func (s *service) decide(ctx context.Context, req core.ValidateConsentRequest) (*core.ConsentDecision, error) {
	now := time.Now().UTC()
	result := func(has bool, source, reason string) *core.ConsentDecision {
		return &core.ConsentDecision{HasConsent: has, Source: source, Reason: reason, EvaluatedAt: now}
	}

	// 1. Emergency override activo: bypass total, pero queda auditado.
	var emergency *core.EmergencyOverride
	err := s.deps.Exec.Do(ctx, "GetActiveEmergencyOverride", func(ctx context.Context) error {
		var err error
		emergency, err = s.deps.Repo.GetActiveEmergencyOverride(ctx, req.TenantID, req.AgentID, now)
		if err == core.ErrNotFound {
			emergency = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, &ServiceError{Op: "GetActiveEmergencyOverride", Err: err}
	}
	if emergency.Active(now) {
		s.deps.Trail.RecordEmergency(ctx, emergency.ID, req.TenantID, req.AgentID, "used", req.Operation, req.UserID)
		metrics.RecordOverrideEvent("emergency", "used")
		return result(true, "emergency_override", "active emergency override "+emergency.ID), nil
	}

	// 2-6. Preferencias del usuario.
	prefs, err := s.loadPreferences(ctx, req.TenantID, req.UserID)
	if err != nil {
		return nil, err
	}
	if prefs != nil {
		if prefs.IsBlocked(req.AgentID) {
			return result(false, "blocked_agent", "agent is in the user's blocked list"), nil
		}
		if prefs.IsTrusted(req.AgentID) {
			return result(true, "trusted_agent", "agent is in the user's trusted list"), nil
		}
		if prefs.IsPreApproved(req.ConsentType) {
			return result(true, "pre_approved", "consent type is pre-approved"), nil
		}
		if allow, ok := prefs.TypePreferences[req.ConsentType]; ok {
			return result(allow, "type_preference", "explicit per-type preference"), nil
		}
		// Auto-consent aplica SOLO al conjunto cerrado de bajo riesgo:
		// nunca concede high_authority, sensitive_data ni escalation.
		if prefs.AutoConsentLowRisk && req.ConsentType.IsLowRisk() {
			return result(true, "auto_consent", "low-risk auto consent enabled"), nil
		}
	}

	// 7. Registro agente-scoped explícito (el más reciente gana).
	var agentRec *core.AgentConsentRecord
	err = s.deps.Exec.Do(ctx, "LatestAgentConsent", func(ctx context.Context) error {
		var err error
		agentRec, err = s.deps.Repo.LatestAgentConsent(ctx, req.TenantID, req.UserID, req.AgentID, req.ConsentType, scopeOf(req))
		if err == core.ErrNotFound {
			agentRec = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, &ServiceError{Op: "LatestAgentConsent", Err: err}
	}
	if agentRec != nil {
		return result(agentRec.Granted, "agent_record", "most recent agent-scoped record"), nil
	}

	// 8. Fallback: registro general (sin agente).
	var genRec *core.ConsentRecord
	err = s.deps.Exec.Do(ctx, "LatestConsent", func(ctx context.Context) error {
		var err error
		genRec, err = s.deps.Repo.LatestConsent(ctx, req.TenantID, req.UserID, req.ConsentType, scopeOf(req))
		if err == core.ErrNotFound {
			genRec = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, &ServiceError{Op: "LatestConsent", Err: err}
	}
	if genRec != nil {
		return result(genRec.Granted, "general_record", "most recent general record"), nil
	}

	// 9. Default deny.
	return result(false, "default_deny", "no applicable consent found"), nil
}

func (s *service) GrantAgentConsent(ctx context.Context, req GrantRequest) (*core.AgentConsentRecord, error) {
	return s.appendAgentConsent(ctx, req, true)
}

func (s *service) RevokeAgentConsent(ctx context.Context, req GrantRequest) (*core.AgentConsentRecord, error) {
	return s.appendAgentConsent(ctx, req, false)
}

func (s *service) appendAgentConsent(ctx context.Context, req GrantRequest, granted bool) (*core.AgentConsentRecord, error) {
	if err := validateKey(req.TenantID, req.UserID, req.AgentID, req.ConsentType); err != nil {
		return nil, err
	}

	if granted {
		// Un agente bloqueado no puede recibir nuevos grants hasta que
		// el usuario lo desbloquee en preferencias.
		prefs, err := s.loadPreferences(ctx, req.TenantID, req.UserID)
		if err != nil {
			return nil, err
		}
		if prefs.IsBlocked(req.AgentID) {
			return nil, ErrAgentBlocked
		}
	}

	rec := &core.AgentConsentRecord{
		ConsentRecord: core.ConsentRecord{
			ID:          uuid.NewString(),
			TenantID:    req.TenantID,
			UserID:      req.UserID,
			ConsentType: req.ConsentType,
			Scope:       req.Scope,
			Granted:     granted,
			GrantedBy:   req.Actor,
			Source:      "api",
			CreatedAt:   time.Now().UTC(),
		},
		AgentID:   req.AgentID,
		Operation: req.Operation,
		Context:   req.Context,
	}

	err := s.deps.Exec.Do(ctx, "AppendAgentConsent", func(ctx context.Context) error {
		return s.deps.Repo.AppendAgentConsent(ctx, rec)
	})
	if err != nil {
		return nil, &ServiceError{Op: "AppendAgentConsent", Err: err}
	}

	event := "consent_revoked"
	if granted {
		event = "consent_granted"
	}
	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  req.TenantID,
		AgentID:   req.AgentID,
		EventType: event,
		Action:    req.Operation,
		Actor:     req.Actor,
		Metadata:  map[string]any{"consent_type": string(req.ConsentType), "record_id": rec.ID},
	})
	return rec, nil
}

func (s *service) RecordGeneralConsent(ctx context.Context, req RecordRequest) (*core.ConsentRecord, error) {
	if strings.TrimSpace(req.TenantID) == "" {
		return nil, ErrMissingTenant
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrMissingUser
	}
	if req.ConsentType == "" {
		return nil, ErrMissingConsentType
	}
	if !req.ConsentType.IsValid() {
		return nil, ErrInvalidConsentType
	}

	rec := &core.ConsentRecord{
		ID:          uuid.NewString(),
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		ConsentType: req.ConsentType,
		Scope:       req.Scope,
		Granted:     req.Granted,
		GrantedBy:   req.Actor,
		Source:      "api",
		CreatedAt:   time.Now().UTC(),
	}

	err := s.deps.Exec.Do(ctx, "AppendConsent", func(ctx context.Context) error {
		return s.deps.Repo.AppendConsent(ctx, rec)
	})
	if err != nil {
		return nil, &ServiceError{Op: "AppendConsent", Err: err}
	}

	event := "consent_revoked"
	if req.Granted {
		event = "consent_granted"
	}
	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  req.TenantID,
		EventType: event,
		Actor:     req.Actor,
		Metadata: map[string]any{
			"consent_type": string(req.ConsentType),
			"record_id":    rec.ID,
			"general":      true,
		},
	})
	return rec, nil
}

// RevokeAllConsents revoca cada par (tipo, scope) con un grant vigente y
// bloquea al agente en las preferencias del usuario: los grants siguientes
// fallan hasta desbloquear.
func (s *service) RevokeAllConsents(ctx context.Context, tenantID, userID, agentID, actor string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("consent"),
		logger.Op("RevokeAllConsents"),
		logger.TenantID(tenantID),
		logger.UserID(userID),
		logger.AgentID(agentID),
	)

	if err := validateKey(tenantID, userID, agentID, types.ConsentTypeDataAccess); err != nil {
		return err
	}

	var records []core.AgentConsentRecord
	err := s.deps.Exec.Do(ctx, "ListAgentConsents", func(ctx context.Context) error {
		var err error
		records, err = s.deps.Repo.ListAgentConsents(ctx, tenantID, userID, agentID)
		return err
	})
	if err != nil {
		return &ServiceError{Op: "ListAgentConsents", Err: err}
	}

	// El log es append-only: revocar = agregar un registro granted=false
	// por cada clave (tipo, scope) distinta.
	now := time.Now().UTC()
	seen := map[string]struct{}{}
	for _, r := range records {
		key := string(r.ConsentType) + "|" + r.Scope
		if _, done := seen[key]; done {
			continue
		}
		seen[key] = struct{}{}

		revoke := &core.AgentConsentRecord{
			ConsentRecord: core.ConsentRecord{
				ID:          uuid.NewString(),
				TenantID:    tenantID,
				UserID:      userID,
				ConsentType: r.ConsentType,
				Scope:       r.Scope,
				Granted:     false,
				GrantedBy:   actor,
				Source:      "revoke_all",
				CreatedAt:   now,
			},
			AgentID: agentID,
		}
		err := s.deps.Exec.Do(ctx, "AppendAgentConsent", func(ctx context.Context) error {
			return s.deps.Repo.AppendAgentConsent(ctx, revoke)
		})
		if err != nil {
			return &ServiceError{Op: "AppendAgentConsent", Err: err}
		}
	}

	// Bloquear al agente en preferencias.
	prefs, err := s.loadPreferences(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if prefs == nil {
		prefs = &core.AgentConsentPreferences{TenantID: tenantID, UserID: userID}
	}
	if !prefs.IsBlocked(agentID) {
		prefs.BlockedAgents = append(prefs.BlockedAgents, agentID)
	}
	// Si estaba en la lista de confianza, sale de ella.
	prefs.TrustedAgents = removeString(prefs.TrustedAgents, agentID)

	err = s.deps.Exec.Do(ctx, "UpsertPreferences", func(ctx context.Context) error {
		return s.deps.Repo.UpsertPreferences(ctx, prefs)
	})
	if err != nil {
		return &ServiceError{Op: "UpsertPreferences", Err: err}
	}

	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  tenantID,
		AgentID:   agentID,
		EventType: "consent_revoked_all",
		Actor:     actor,
		Metadata:  map[string]any{"revoked_pairs": len(seen)},
	})

	log.Info("all consents revoked, agent blocked", logger.Count(len(seen)))
	return nil
}

func (s *service) GetPreferences(ctx context.Context, tenantID, userID string) (*core.AgentConsentPreferences, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrMissingTenant
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	prefs, err := s.loadPreferences(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		// Defaults vacíos para usuarios sin preferencias guardadas.
		return &core.AgentConsentPreferences{TenantID: tenantID, UserID: userID}, nil
	}
	return prefs, nil
}

func (s *service) UpdatePreferences(ctx context.Context, p *core.AgentConsentPreferences) error {
	if p == nil || strings.TrimSpace(p.TenantID) == "" {
		return ErrMissingTenant
	}
	if strings.TrimSpace(p.UserID) == "" {
		return ErrMissingUser
	}
	err := s.deps.Exec.Do(ctx, "UpsertPreferences", func(ctx context.Context) error {
		return s.deps.Repo.UpsertPreferences(ctx, p)
	})
	if err != nil {
		return &ServiceError{Op: "UpsertPreferences", Err: err}
	}
	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  p.TenantID,
		EventType: "preferences_updated",
		Actor:     p.UserID,
	})
	return nil
}

func (s *service) GrantEmergencyOverride(ctx context.Context, req EmergencyRequest) (*core.EmergencyOverride, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("consent"),
		logger.Op("GrantEmergencyOverride"),
		logger.TenantID(req.TenantID),
		logger.AgentID(req.AgentID),
	)

	if strings.TrimSpace(req.TenantID) == "" {
		return nil, ErrMissingTenant
	}
	if strings.TrimSpace(req.AgentID) == "" {
		return nil, ErrMissingAgent
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.deps.DefaultEmergencyTTL
	}
	now := time.Now().UTC()

	ov := &core.EmergencyOverride{
		ID:           uuid.NewString(),
		TenantID:     req.TenantID,
		AgentID:      req.AgentID,
		Reason:       req.Reason,
		AuthorizedBy: req.AuthorizedBy,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	err := s.deps.Exec.Do(ctx, "CreateEmergencyOverride", func(ctx context.Context) error {
		return s.deps.Repo.CreateEmergencyOverride(ctx, ov)
	})
	if err != nil {
		return nil, &ServiceError{Op: "CreateEmergencyOverride", Err: err}
	}

	s.deps.Trail.RecordEmergency(ctx, ov.ID, req.TenantID, req.AgentID, "granted", req.Reason, req.AuthorizedBy)
	metrics.RecordOverrideEvent("emergency", "granted")

	log.Warn("emergency override granted",
		logger.String("override_id", ov.ID),
		logger.String("authorized_by", req.AuthorizedBy),
	)
	return ov, nil
}

func (s *service) RevokeEmergencyOverride(ctx context.Context, tenantID, id, actor string) error {
	if strings.TrimSpace(tenantID) == "" {
		return ErrMissingTenant
	}
	now := time.Now().UTC()
	var missing bool
	err := s.deps.Exec.Do(ctx, "RevokeEmergencyOverride", func(ctx context.Context) error {
		err := s.deps.Repo.RevokeEmergencyOverride(ctx, id, now)
		if err == core.ErrNotFound {
			// Not found no es un fallo del store: no se reintenta.
			missing = true
			return nil
		}
		return err
	})
	if err != nil {
		return &ServiceError{Op: "RevokeEmergencyOverride", Err: err}
	}
	if missing {
		return ErrOverrideUnknown
	}

	s.deps.Trail.RecordEmergency(ctx, id, tenantID, "", "revoked", "", actor)
	metrics.RecordOverrideEvent("emergency", "revoked")
	return nil
}

// loadPreferences retorna nil (sin error) cuando el usuario no tiene
// preferencias guardadas.
func (s *service) loadPreferences(ctx context.Context, tenantID, userID string) (*core.AgentConsentPreferences, error) {
	var prefs *core.AgentConsentPreferences
	err := s.deps.Exec.Do(ctx, "GetPreferences", func(ctx context.Context) error {
		var err error
		prefs, err = s.deps.Repo.GetPreferences(ctx, tenantID, userID)
		if err == core.ErrNotFound {
			prefs = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, &ServiceError{Op: "GetPreferences", Err: err}
	}
	return prefs, nil
}

func validateKey(tenantID, userID, agentID string, t types.ConsentType) error {
	if strings.TrimSpace(tenantID) == "" {
		return ErrMissingTenant
	}
	if strings.TrimSpace(userID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(agentID) == "" {
		return ErrMissingAgent
	}
	if t == "" {
		return ErrMissingConsentType
	}
	if !t.IsValid() {
		return ErrInvalidConsentType
	}
	return nil
}

func scopeOf(req core.ValidateConsentRequest) string {
	if req.Context != nil {
		if s, ok := req.Context["scope"]; ok {
			return s
		}
	}
	return ""
}

func decisionLabel(granted bool) string {
	if granted {
		return "granted"
	}
	return "denied"
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
