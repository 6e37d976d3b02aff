package types

// ConsentType clasifica el permiso que un agente necesita para operar.
type ConsentType string

const (
	// ConsentTypeDataAccess cubre lecturas de datos de negocio no sensibles.
	ConsentTypeDataAccess ConsentType = "data_access"

	// ConsentTypeDataSharing cubre compartir datos con terceros.
	ConsentTypeDataSharing ConsentType = "data_sharing"

	// ConsentTypeNotification cubre el envío de notificaciones al usuario.
	ConsentTypeNotification ConsentType = "notification"

	// ConsentTypeAutomation cubre automatizaciones rutinarias de bajo impacto.
	ConsentTypeAutomation ConsentType = "automation"

	// ConsentTypeSensitiveData cubre acceso a PII, datos financieros o de salud.
	ConsentTypeSensitiveData ConsentType = "sensitive_data"

	// ConsentTypeHighAuthority cubre acciones de alta autoridad (cambios
	// irreversibles, operaciones administrativas).
	ConsentTypeHighAuthority ConsentType = "high_authority"

	// ConsentTypeBudgetOverrun cubre operaciones que exceden el presupuesto
	// configurado del agente.
	ConsentTypeBudgetOverrun ConsentType = "budget_overrun"

	// ConsentTypeEscalation cubre escalamientos a un humano.
	ConsentTypeEscalation ConsentType = "escalation"
)

// lowRisk es el conjunto CERRADO de tipos elegibles para auto-consent.
// Excluye explícitamente high_authority, sensitive_data, budget_overrun
// y escalation: esos siempre requieren consentimiento explícito aunque
// el usuario tenga auto-consent habilitado.
var lowRisk = map[ConsentType]struct{}{
	ConsentTypeDataAccess:   {},
	ConsentTypeNotification: {},
	ConsentTypeAutomation:   {},
}

// IsLowRisk reporta si el tipo pertenece al conjunto cerrado de bajo riesgo.
func (t ConsentType) IsLowRisk() bool {
	_, ok := lowRisk[t]
	return ok
}

// IsValid reporta si el tipo es uno de los conocidos.
func (t ConsentType) IsValid() bool {
	switch t {
	case ConsentTypeDataAccess, ConsentTypeDataSharing, ConsentTypeNotification,
		ConsentTypeAutomation, ConsentTypeSensitiveData, ConsentTypeHighAuthority,
		ConsentTypeBudgetOverrun, ConsentTypeEscalation:
		return true
	}
	return false
}
