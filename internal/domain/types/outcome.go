package types

// Outcome es el resultado de una evaluación de autoridad.
type Outcome string

const (
	OutcomeAuthorized         Outcome = "authorized"
	OutcomeDenied             Outcome = "denied"
	OutcomeRequiresConsent    Outcome = "requires_consent"
	OutcomeRequiresEscalation Outcome = "requires_escalation"
)

// DataCategory clasifica los datos que una acción toca.
type DataCategory string

const (
	DataCategoryPII       DataCategory = "pii"
	DataCategoryFinancial DataCategory = "financial"
	DataCategoryHealth    DataCategory = "health"
)

// IsSensitive reporta si la categoría es sensible (PII, financiera o de salud).
// Las categorías sensibles no listadas en la política del scope se rutean a
// requires_consent en lugar de denegarse de plano.
func (c DataCategory) IsSensitive() bool {
	switch c {
	case DataCategoryPII, DataCategoryFinancial, DataCategoryHealth:
		return true
	}
	return false
}
