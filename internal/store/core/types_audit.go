package core

import "time"

// AuthorityAuditRecord es una fila inmutable del audit trail de autoridad.
// Se escribe una por cada acción que cambia estado o evalúa una decisión;
// nunca se muta ni se borra.
type AuthorityAuditRecord struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	AgentID  string `json:"agent_id"`

	// EventType: validation, override_granted, override_revoked,
	// consent_granted, consent_revoked, consent_validation, ...
	EventType string `json:"event_type"`

	Action   string         `json:"action,omitempty"`
	Decision string         `json:"decision,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Actor    string         `json:"actor,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// EmergencyOverrideAuditRecord registra el ciclo de vida de un override de
// emergencia. Inmutable, append-only.
type EmergencyOverrideAuditRecord struct {
	ID         string    `json:"id"`
	OverrideID string    `json:"override_id"`
	TenantID   string    `json:"tenant_id"`
	AgentID    string    `json:"agent_id"`
	EventType  string    `json:"event_type"` // granted | used | revoked | expired
	Reason     string    `json:"reason,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
