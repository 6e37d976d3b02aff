// Package consent define los DTOs del API de consentimiento.
package consent

// ValidateRequest es el body de POST /v1/consent/validate.
type ValidateRequest struct {
	TenantID    string            `json:"tenant_id" validate:"required"`
	UserID      string            `json:"user_id" validate:"required"`
	AgentID     string            `json:"agent_id" validate:"required"`
	ConsentType string            `json:"consent_type" validate:"required"`
	Operation   string            `json:"operation,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
}

// GrantRequest es el body de POST /v1/consent/grants y .../revoke.
type GrantRequest struct {
	TenantID    string            `json:"tenant_id" validate:"required"`
	UserID      string            `json:"user_id" validate:"required"`
	AgentID     string            `json:"agent_id" validate:"required"`
	ConsentType string            `json:"consent_type" validate:"required"`
	Scope       string            `json:"scope,omitempty"`
	Operation   string            `json:"operation,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
	Actor       string            `json:"actor,omitempty"`
}

// RecordRequest es el body de POST /v1/consent/records.
type RecordRequest struct {
	TenantID    string `json:"tenant_id" validate:"required"`
	UserID      string `json:"user_id" validate:"required"`
	ConsentType string `json:"consent_type" validate:"required"`
	Scope       string `json:"scope,omitempty"`
	Granted     bool   `json:"granted"`
	Actor       string `json:"actor,omitempty"`
}

// RevokeAllRequest es el body de POST /v1/consent/revoke-all.
type RevokeAllRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	AgentID  string `json:"agent_id" validate:"required"`
	Actor    string `json:"actor,omitempty"`
}

// PreferencesRequest es el body de PUT /v1/consent/preferences.
type PreferencesRequest struct {
	TenantID           string          `json:"tenant_id" validate:"required"`
	UserID             string          `json:"user_id" validate:"required"`
	AutoConsentLowRisk bool            `json:"auto_consent_low_risk"`
	TrustedAgents      []string        `json:"trusted_agents,omitempty"`
	BlockedAgents      []string        `json:"blocked_agents,omitempty"`
	PreApprovedTypes   []string        `json:"pre_approved_types,omitempty"`
	TypePreferences    map[string]bool `json:"type_preferences,omitempty"`
}

// EmergencyRequest es el body de POST /v1/consent/emergency.
type EmergencyRequest struct {
	TenantID     string `json:"tenant_id" validate:"required"`
	AgentID      string `json:"agent_id" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
	AuthorizedBy string `json:"authorized_by" validate:"required"`
	TTL          string `json:"ttl,omitempty"`
}

// EmergencyRevokeRequest es el body de POST /v1/consent/emergency/revoke.
type EmergencyRevokeRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	ID       string `json:"id" validate:"required"`
	Actor    string `json:"actor,omitempty"`
}
