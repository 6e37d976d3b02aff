// Package registry define los DTOs del API de agentes.
package registry

import "time"

// RegisterRequest es el body de POST /v1/agents.
type RegisterRequest struct {
	TenantID     string   `json:"tenant_id" validate:"required"`
	Name         string   `json:"name" validate:"required,min=1,max=128"`
	Description  string   `json:"description,omitempty" validate:"max=512"`
	Capabilities []string `json:"capabilities,omitempty"`
	Actor        string   `json:"actor,omitempty"`
}

// RegisterResponse incluye la API key en claro; es la ÚNICA vez que se
// devuelve.
type RegisterResponse struct {
	Agent  AgentView `json:"agent"`
	APIKey string    `json:"api_key"`
}

// AgentView es la proyección pública de un agente.
type AgentView struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Capabilities []string   `json:"capabilities,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

// AuthenticateRequest es el body de POST /v1/agents/authenticate.
type AuthenticateRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	AgentID  string `json:"agent_id" validate:"required"`
	APIKey   string `json:"api_key" validate:"required"`
}
