package registry

import "fmt"

var (
	ErrMissingTenant     = fmt.Errorf("missing tenant id")
	ErrInvalidTenant     = fmt.Errorf("invalid tenant id")
	ErrMissingName       = fmt.Errorf("missing agent name")
	ErrAgentNotFound     = fmt.Errorf("agent not found")
	ErrAgentDeactivated  = fmt.Errorf("agent is deactivated")
	ErrInvalidCredential = fmt.Errorf("invalid agent credentials")
)

// ServiceError envuelve fallos del data layer tras agotar los reintentos.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("registry service: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
