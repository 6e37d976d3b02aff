package compliance

import (
	"time"

	"github.com/dropDatabas3/cogmesh/internal/domain/types"
)

// Framework identifica un marco regulatorio soportado.
type Framework string

const (
	FrameworkGDPR    Framework = "gdpr"
	FrameworkEUAIAct Framework = "eu_ai_act"
)

// Verdict es el resultado agregado de una evaluación.
type Verdict string

const (
	VerdictCompliant    Verdict = "compliant"
	VerdictNonCompliant Verdict = "non_compliant"
	VerdictNeedsReview  Verdict = "needs_review"
)

// Severity clasifica un hallazgo individual.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// OperationDescriptor describe la operación a evaluar contra las reglas.
type OperationDescriptor struct {
	TenantID  string `json:"tenant_id"`
	AgentID   string `json:"agent_id,omitempty"`
	Operation string `json:"operation"`

	// DataCategories son las categorías de datos tocadas (pii, financial,
	// health, behavioral, ...).
	DataCategories []string `json:"data_categories,omitempty"`

	// Propiedades de manejo de datos relevantes para GDPR.
	HasLegalBasis     bool `json:"has_legal_basis"`
	HasUserConsent    bool `json:"has_user_consent"`
	CrossBorder       bool `json:"cross_border"`
	RetentionDays     int  `json:"retention_days"`
	SupportsErasure   bool `json:"supports_erasure"`
	SupportsPortation bool `json:"supports_portation"`

	// Propiedades relevantes para el EU AI Act.
	AutomatedDecision bool   `json:"automated_decision"`
	HumanOversight    bool   `json:"human_oversight"`
	RiskTier          string `json:"risk_tier,omitempty"` // minimal|limited|high|unacceptable
	DisclosesAIUse    bool   `json:"discloses_ai_use"`
}

// Finding es un hallazgo puntual de una regla.
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Assessment es el resultado de evaluar un descriptor contra un framework.
type Assessment struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Framework Framework `json:"framework"`
	Operation string    `json:"operation"`
	Verdict   Verdict   `json:"verdict"`
	Findings  []Finding `json:"findings,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// sensitiveCategory reporta si la categoría requiere protección especial.
func sensitiveCategory(cat string) bool {
	return types.DataCategory(cat).IsSensitive()
}
