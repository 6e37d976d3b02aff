package core

import (
	"time"

	"github.com/dropDatabas3/cogmesh/internal/domain/types"
)

// ConsentRecord es una entrada del log append-only de consentimientos.
// El consentimiento "vigente" para una clave (user, tenant, consent_type,
// scope) es el registro más reciente. Nunca se muta ni se borra.
type ConsentRecord struct {
	ID          string            `json:"id"`
	TenantID    string            `json:"tenant_id"`
	UserID      string            `json:"user_id"`
	ConsentType types.ConsentType `json:"consent_type"`
	Scope       string            `json:"scope,omitempty"`
	Granted     bool              `json:"granted"`
	GrantedBy   string            `json:"granted_by,omitempty"`
	Source      string            `json:"source,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AgentConsentRecord extiende ConsentRecord con identidad de agente y
// contexto de operación. La clave vigente incluye también agent_id.
type AgentConsentRecord struct {
	ConsentRecord
	AgentID   string            `json:"agent_id"`
	Operation string            `json:"operation,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

// AgentConsentPreferences son los defaults por usuario consultados antes
// de caer al log de consentimientos.
type AgentConsentPreferences struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`

	// AutoConsentLowRisk habilita auto-consent SOLO para tipos del
	// conjunto cerrado de bajo riesgo (types.ConsentType.IsLowRisk).
	AutoConsentLowRisk bool `json:"auto_consent_low_risk"`

	TrustedAgents []string `json:"trusted_agents,omitempty"`
	BlockedAgents []string `json:"blocked_agents,omitempty"`

	// PreApprovedTypes se conceden sin consultar el log.
	PreApprovedTypes []types.ConsentType `json:"pre_approved_types,omitempty"`

	// TypePreferences es un allow/deny explícito por tipo, por encima
	// del auto-consent pero por debajo de las listas de agentes.
	TypePreferences map[types.ConsentType]bool `json:"type_preferences,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// IsTrusted reporta si el agente está en la lista de confianza.
func (p *AgentConsentPreferences) IsTrusted(agentID string) bool {
	return p != nil && containsString(p.TrustedAgents, agentID)
}

// IsBlocked reporta si el agente está bloqueado.
func (p *AgentConsentPreferences) IsBlocked(agentID string) bool {
	return p != nil && containsString(p.BlockedAgents, agentID)
}

// IsPreApproved reporta si el tipo está pre-aprobado.
func (p *AgentConsentPreferences) IsPreApproved(t types.ConsentType) bool {
	if p == nil {
		return false
	}
	for _, pt := range p.PreApprovedTypes {
		if pt == t {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// EmergencyOverride es un bypass temporal de todos los checks de
// consentimiento para un (tenant, agent). Siempre deja rastro en auditoría.
type EmergencyOverride struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	AgentID      string     `json:"agent_id"`
	Reason       string     `json:"reason"`
	AuthorizedBy string     `json:"authorized_by"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

// Active reporta si el override de emergencia está vigente.
func (e *EmergencyOverride) Active(now time.Time) bool {
	if e == nil || e.RevokedAt != nil {
		return false
	}
	return e.ExpiresAt.After(now)
}

// ValidateConsentRequest es el input del evaluador de consentimiento.
type ValidateConsentRequest struct {
	TenantID    string            `json:"tenant_id"`
	UserID      string            `json:"user_id"`
	AgentID     string            `json:"agent_id"`
	ConsentType types.ConsentType `json:"consent_type"`
	Operation   string            `json:"operation,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
}

// ConsentDecision es el resultado de una validación de consentimiento.
type ConsentDecision struct {
	HasConsent bool `json:"has_consent"`

	// Source indica qué regla decidió: emergency_override, blocked_agent,
	// trusted_agent, pre_approved, type_preference, auto_consent,
	// agent_record, general_record o default_deny.
	Source string `json:"source"`

	Reason      string    `json:"reason,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}
