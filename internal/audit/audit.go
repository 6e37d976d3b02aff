// Package audit escribe el audit trail del mesh. Cada decisión de
// autorización/consentimiento y cada cambio de estado produce una entrada
// inmutable. La escritura es best-effort: un fallo de auditoría se loguea
// pero nunca voltea la operación de negocio.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// Trail escribe registros de auditoría contra el repositorio.
type Trail struct {
	repo core.Repository
}

// NewTrail crea un Trail sobre el repositorio dado.
func NewTrail(repo core.Repository) *Trail {
	return &Trail{repo: repo}
}

// Event describe una entrada del audit trail de autoridad.
type Event struct {
	TenantID  string
	AgentID   string
	EventType string
	Action    string
	Decision  string
	Reason    string
	Actor     string
	Metadata  map[string]any
}

// Record agrega la entrada al trail. Best-effort: nunca retorna error.
func (t *Trail) Record(ctx context.Context, ev Event) {
	rec := &core.AuthorityAuditRecord{
		ID:        uuid.NewString(),
		TenantID:  ev.TenantID,
		AgentID:   ev.AgentID,
		EventType: ev.EventType,
		Action:    ev.Action,
		Decision:  ev.Decision,
		Reason:    ev.Reason,
		Actor:     ev.Actor,
		Metadata:  ev.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.repo.AppendAuthorityAudit(ctx, rec); err != nil {
		logger.From(ctx).Error("failed to append audit record",
			logger.Component("audit"),
			logger.String("event_type", ev.EventType),
			logger.TenantID(ev.TenantID),
			logger.AgentID(ev.AgentID),
			logger.Err(err),
		)
	}
}

// RecordEmergency agrega una entrada al trail de overrides de emergencia.
func (t *Trail) RecordEmergency(ctx context.Context, overrideID, tenantID, agentID, eventType, reason, actor string) {
	rec := &core.EmergencyOverrideAuditRecord{
		ID:         uuid.NewString(),
		OverrideID: overrideID,
		TenantID:   tenantID,
		AgentID:    agentID,
		EventType:  eventType,
		Reason:     reason,
		Actor:      actor,
		CreatedAt:  time.Now().UTC(),
	}
	if err := t.repo.AppendEmergencyAudit(ctx, rec); err != nil {
		logger.From(ctx).Error("failed to append emergency audit record",
			logger.Component("audit"),
			logger.String("event_type", eventType),
			logger.TenantID(tenantID),
			logger.AgentID(agentID),
			logger.Err(err),
		)
	}
}
