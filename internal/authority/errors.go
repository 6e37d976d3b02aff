package authority

import "fmt"

// Errores de validación (inputs faltantes, se detectan antes de tocar el store).
var (
	ErrMissingTenant    = fmt.Errorf("missing tenant id")
	ErrMissingAgent     = fmt.Errorf("missing agent id")
	ErrMissingAction    = fmt.Errorf("missing action")
	ErrInvalidAction    = fmt.Errorf("invalid action name")
	ErrInvalidActionPat = fmt.Errorf("invalid action pattern")
	ErrOverrideExpired  = fmt.Errorf("override expired")
	ErrOverrideRevoked  = fmt.Errorf("override already revoked")
	ErrOverrideUnknown  = fmt.Errorf("override not found")
)

// ServiceError envuelve fallos del data layer tras agotar los reintentos
// del wrapper de resiliencia.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("authority service: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
