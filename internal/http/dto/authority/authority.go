// Package authority define los DTOs del API de autoridad.
package authority

import "time"

// ValidateRequest es el body de POST /v1/authority/validate.
type ValidateRequest struct {
	TenantID       string            `json:"tenant_id" validate:"required"`
	AgentID        string            `json:"agent_id" validate:"required"`
	Action         string            `json:"action" validate:"required"`
	Resource       string            `json:"resource,omitempty"`
	DataCategories []string          `json:"data_categories,omitempty"`
	ResourceUnits  float64           `json:"resource_units,omitempty" validate:"gte=0"`
	EstimatedCost  float64           `json:"estimated_cost,omitempty" validate:"gte=0"`
	Parameters     map[string]string `json:"parameters,omitempty"`
}

// SetScopeRequest es el body de PUT /v1/authority/scopes.
type SetScopeRequest struct {
	TenantID             string            `json:"tenant_id" validate:"required"`
	AgentID              string            `json:"agent_id" validate:"required"`
	AllowedActions       []string          `json:"allowed_actions" validate:"required,min=1"`
	DeniedActions        []string          `json:"denied_actions,omitempty"`
	AllowedResources     []string          `json:"allowed_resources,omitempty"`
	MaxResourceUnits     float64           `json:"max_resource_units,omitempty" validate:"gte=0"`
	MaxBudget            float64           `json:"max_budget,omitempty"`
	DataPolicies         map[string]string `json:"data_policies,omitempty"`
	ComplianceFrameworks []string          `json:"compliance_frameworks,omitempty" validate:"dive,oneof=gdpr eu_ai_act"`
}

// GrantOverrideRequest es el body de POST /v1/authority/overrides.
type GrantOverrideRequest struct {
	TenantID  string          `json:"tenant_id" validate:"required"`
	AgentID   string          `json:"agent_id" validate:"required"`
	Scope     SetScopeRequest `json:"scope" validate:"required"`
	Reason    string          `json:"reason" validate:"required"`
	GrantedBy string          `json:"granted_by" validate:"required"`
	TTL       string          `json:"ttl,omitempty"` // duración tipo "30m"; default del server si falta
}

// OverrideResponse devuelve el override emitido con su token.
type OverrideResponse struct {
	Token     string    `json:"token"`
	TenantID  string    `json:"tenant_id"`
	AgentID   string    `json:"agent_id"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RevokeOverrideRequest es el body de POST /v1/authority/overrides/revoke.
type RevokeOverrideRequest struct {
	Token     string `json:"token" validate:"required"`
	RevokedBy string `json:"revoked_by" validate:"required"`
}
