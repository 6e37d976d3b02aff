package core

import "time"

// AgentStatus es el estado de un agente en el registry.
type AgentStatus string

const (
	AgentStatusActive      AgentStatus = "active"
	AgentStatusDeactivated AgentStatus = "deactivated"
)

// Agent es un agente registrado en el mesh, propiedad de un tenant.
type Agent struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"tenant_id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Capabilities []string    `json:"capabilities,omitempty"`
	Status       AgentStatus `json:"status"`

	// APIKeyHash es el PHC string argon2id de la API key. La key en claro
	// solo se devuelve una vez, al registrar.
	APIKeyHash string `json:"-"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}
