package core

import (
	"context"
	"time"

	"github.com/dropDatabas3/cogmesh/internal/domain/types"
)

// Repository es el contrato de persistencia del mesh. Los adapters (pg,
// memory) lo implementan completo; los services lo consumen detrás del
// wrapper de resiliencia.
type Repository interface {
	Ping(ctx context.Context) error
	Close()

	// ------- Authority -------
	GetAuthorityScope(ctx context.Context, tenantID, agentID string) (*AuthorityScope, error)
	UpsertAuthorityScope(ctx context.Context, s *AuthorityScope) error

	CreateOverride(ctx context.Context, o *AuthorityOverride) error
	GetOverrideByToken(ctx context.Context, token string) (*AuthorityOverride, error)
	// GetActiveOverride retorna el override vigente (no revocado, ExpiresAt > now)
	// más reciente para el par tenant+agent, o ErrNotFound.
	GetActiveOverride(ctx context.Context, tenantID, agentID string, now time.Time) (*AuthorityOverride, error)
	RevokeOverride(ctx context.Context, token, revokedBy string, at time.Time) error

	// ------- Consent log (append-only) -------
	AppendConsent(ctx context.Context, r *ConsentRecord) error
	AppendAgentConsent(ctx context.Context, r *AgentConsentRecord) error
	// LatestConsent retorna el registro más reciente para la clave
	// (tenant, user, consentType, scope), o ErrNotFound.
	LatestConsent(ctx context.Context, tenantID, userID string, t types.ConsentType, scope string) (*ConsentRecord, error)
	LatestAgentConsent(ctx context.Context, tenantID, userID, agentID string, t types.ConsentType, scope string) (*AgentConsentRecord, error)
	ListAgentConsents(ctx context.Context, tenantID, userID, agentID string) ([]AgentConsentRecord, error)

	// ------- Preferencias -------
	GetPreferences(ctx context.Context, tenantID, userID string) (*AgentConsentPreferences, error)
	UpsertPreferences(ctx context.Context, p *AgentConsentPreferences) error

	// ------- Emergency overrides -------
	CreateEmergencyOverride(ctx context.Context, e *EmergencyOverride) error
	GetActiveEmergencyOverride(ctx context.Context, tenantID, agentID string, now time.Time) (*EmergencyOverride, error)
	RevokeEmergencyOverride(ctx context.Context, id string, at time.Time) error

	// ------- Agent registry -------
	CreateAgent(ctx context.Context, a *Agent) error
	GetAgent(ctx context.Context, tenantID, agentID string) (*Agent, error)
	ListAgents(ctx context.Context, tenantID string) ([]Agent, error)
	UpdateAgentStatus(ctx context.Context, tenantID, agentID string, status AgentStatus) error
	TouchAgent(ctx context.Context, tenantID, agentID string, at time.Time) error

	// ------- Audit trail (append-only, nunca se muta ni borra) -------
	AppendAuthorityAudit(ctx context.Context, r *AuthorityAuditRecord) error
	AppendEmergencyAudit(ctx context.Context, r *EmergencyOverrideAuditRecord) error
	ListAuthorityAudit(ctx context.Context, tenantID, agentID string, limit int) ([]AuthorityAuditRecord, error)
}
