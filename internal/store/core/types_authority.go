package core

import (
	"time"

	"github.com/dropDatabas3/cogmesh/internal/domain/types"
)

// AuthorityScope representa el conjunto de acciones/recursos/presupuestos
// que un agente puede usar dentro de un tenant. Es un snapshot inmutable
// por evaluación: el evaluador nunca lo muta.
type AuthorityScope struct {
	TenantID string `json:"tenant_id"`
	AgentID  string `json:"agent_id"`

	// AllowedActions acepta match exacto, wildcard total "*" o prefijo "path/*".
	AllowedActions []string `json:"allowed_actions"`

	// DeniedActions gana siempre sobre AllowedActions.
	DeniedActions []string `json:"denied_actions,omitempty"`

	AllowedResources []string `json:"allowed_resources,omitempty"`

	// MaxResourceUnits es el techo de consumo de recursos por acción.
	// 0 = sin límite.
	MaxResourceUnits float64 `json:"max_resource_units,omitempty"`

	// MaxBudget es el techo de gasto por acción. 0 = sin presupuesto
	// (todo costo positivo pide consentimiento); negativo = sin límite.
	// Exceder presupuesto rutea a requires_consent, nunca a denied.
	MaxBudget float64 `json:"max_budget,omitempty"`

	// DataPolicies mapea categoría de datos -> política de acceso
	// ("read", "read_write", "aggregate_only", ...). Una categoría que no
	// figura está denegada, salvo que sea sensible: en ese caso la
	// evaluación pide consentimiento.
	DataPolicies map[string]string `json:"data_policies,omitempty"`

	// ComplianceFrameworks lista los frameworks aplicables ("gdpr", "eu_ai_act").
	ComplianceFrameworks []string `json:"compliance_frameworks,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// AuthorityOverride es un override de scope acotado en el tiempo, identificado
// por un token único. Mientras esté activo y no expirado reemplaza al scope base.
//
// Máquina de estados: Requested -> Active (hasta expiry o revoke explícito)
// -> Expired/Revoked (terminal).
type AuthorityOverride struct {
	Token     string         `json:"token"`
	TenantID  string         `json:"tenant_id"`
	AgentID   string         `json:"agent_id"`
	Scope     AuthorityScope `json:"scope"`
	Reason    string         `json:"reason"`
	GrantedBy string         `json:"granted_by"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	RevokedAt *time.Time     `json:"revoked_at,omitempty"`
	RevokedBy string         `json:"revoked_by,omitempty"`
}

// Active reporta si el override está vigente en el instante dado.
// Un override es válido solo mientras ExpiresAt > now y no fue revocado.
func (o *AuthorityOverride) Active(now time.Time) bool {
	if o == nil {
		return false
	}
	if o.RevokedAt != nil {
		return false
	}
	return o.ExpiresAt.After(now)
}

// Status devuelve el estado derivado del override.
func (o *AuthorityOverride) Status(now time.Time) string {
	switch {
	case o.RevokedAt != nil:
		return "revoked"
	case !o.ExpiresAt.After(now):
		return "expired"
	default:
		return "active"
	}
}

// MinimalScope es el scope por defecto cuando un agente no tiene
// configuración ni override: solo acciones de lectura básicas, sin
// acceso a datos y sin presupuesto.
func MinimalScope(tenantID, agentID string) *AuthorityScope {
	return &AuthorityScope{
		TenantID:         tenantID,
		AgentID:          agentID,
		AllowedActions:   []string{"query/read"},
		MaxResourceUnits: 10,
		MaxBudget:        0,
		UpdatedAt:        time.Now().UTC(),
	}
}

// ValidateAuthorityRequest es el input del evaluador de autoridad.
type ValidateAuthorityRequest struct {
	TenantID       string            `json:"tenant_id"`
	AgentID        string            `json:"agent_id"`
	Action         string            `json:"action"`
	Resource       string            `json:"resource,omitempty"`
	DataCategories []string          `json:"data_categories,omitempty"`
	ResourceUnits  float64           `json:"resource_units,omitempty"`
	EstimatedCost  float64           `json:"estimated_cost,omitempty"`
	Parameters     map[string]string `json:"parameters,omitempty"`
}

// AuthorityDecision es el resultado de una validación de autoridad.
type AuthorityDecision struct {
	Outcome     types.Outcome     `json:"outcome"`
	Reason      string            `json:"reason,omitempty"`
	ConsentType types.ConsentType `json:"consent_type,omitempty"`
	Context     map[string]string `json:"context,omitempty"`

	// ScopeSource indica de dónde salió el scope efectivo:
	// "override", "configured" o "minimal_default".
	ScopeSource string    `json:"scope_source"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}
