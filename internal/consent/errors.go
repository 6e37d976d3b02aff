package consent

import "fmt"

var (
	ErrMissingTenant      = fmt.Errorf("missing tenant id")
	ErrMissingUser        = fmt.Errorf("missing user id")
	ErrMissingAgent       = fmt.Errorf("missing agent id")
	ErrMissingConsentType = fmt.Errorf("missing consent type")
	ErrInvalidConsentType = fmt.Errorf("invalid consent type")
	ErrAgentBlocked       = fmt.Errorf("agent is blocked for this user")
	ErrOverrideUnknown    = fmt.Errorf("emergency override not found")
)

// ServiceError envuelve fallos del data layer tras agotar los reintentos.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("consent service: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
