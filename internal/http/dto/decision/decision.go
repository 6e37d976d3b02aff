// Package decision define los DTOs de decisión combinada y de los
// servicios de compliance e intelligence.
package decision

import "time"

// DecideRequest es el body de POST /v1/decisions.
type DecideRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	UserID   string `json:"user_id,omitempty"`

	AgentID        string   `json:"agent_id" validate:"required"`
	Action         string   `json:"action" validate:"required"`
	Resource       string   `json:"resource,omitempty"`
	DataCategories []string `json:"data_categories,omitempty"`
	ResourceUnits  float64  `json:"resource_units,omitempty" validate:"gte=0"`
	EstimatedCost  float64  `json:"estimated_cost,omitempty" validate:"gte=0"`

	Compliance    ComplianceProps `json:"compliance,omitempty"`
	WantRationale bool            `json:"want_rationale,omitempty"`
}

// ComplianceProps describe las propiedades de manejo de datos declaradas.
type ComplianceProps struct {
	HasLegalBasis     bool   `json:"has_legal_basis,omitempty"`
	HasUserConsent    bool   `json:"has_user_consent,omitempty"`
	CrossBorder       bool   `json:"cross_border,omitempty"`
	RetentionDays     int    `json:"retention_days,omitempty" validate:"gte=0"`
	SupportsErasure   bool   `json:"supports_erasure,omitempty"`
	SupportsPortation bool   `json:"supports_portation,omitempty"`
	AutomatedDecision bool   `json:"automated_decision,omitempty"`
	HumanOversight    bool   `json:"human_oversight,omitempty"`
	RiskTier          string `json:"risk_tier,omitempty" validate:"omitempty,oneof=minimal limited high unacceptable"`
	DisclosesAIUse    bool   `json:"discloses_ai_use,omitempty"`
}

// AssessRequest es el body de POST /v1/compliance/assess.
type AssessRequest struct {
	TenantID       string          `json:"tenant_id" validate:"required"`
	AgentID        string          `json:"agent_id,omitempty"`
	Operation      string          `json:"operation" validate:"required"`
	Frameworks     []string        `json:"frameworks,omitempty" validate:"dive,oneof=gdpr eu_ai_act"`
	DataCategories []string        `json:"data_categories,omitempty"`
	Props          ComplianceProps `json:"props,omitempty"`
}

// InsightRequest es el body de POST /v1/intelligence/insights.
type InsightRequest struct {
	TenantID   string        `json:"tenant_id" validate:"required"`
	CustomerID string        `json:"customer_id" validate:"required"`
	Signals    []SignalInput `json:"signals" validate:"required,min=1,dive"`
}

// SignalInput es una interacción observada del cliente.
type SignalInput struct {
	Kind       string    `json:"kind" validate:"required,oneof=support_ticket purchase complaint review usage"`
	Detail     string    `json:"detail" validate:"required"`
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}
