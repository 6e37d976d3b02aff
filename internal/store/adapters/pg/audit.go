package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// Las tablas de auditoría son append-only: solo INSERT y SELECT.

func (s *Store) AppendAuthorityAudit(ctx context.Context, r *core.AuthorityAuditRecord) error {
	const q = `
		INSERT INTO authority_audit
			(id, tenant_id, agent_id, event_type, action, decision, reason, actor, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	meta, err := jsonb(r.Metadata)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, q,
		r.ID, r.TenantID, r.AgentID, r.EventType, r.Action, r.Decision,
		r.Reason, r.Actor, meta, r.CreatedAt,
	)
	return err
}

func (s *Store) AppendEmergencyAudit(ctx context.Context, r *core.EmergencyOverrideAuditRecord) error {
	const q = `
		INSERT INTO emergency_override_audit
			(id, override_id, tenant_id, agent_id, event_type, reason, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, q,
		r.ID, r.OverrideID, r.TenantID, r.AgentID, r.EventType, r.Reason, r.Actor, r.CreatedAt,
	)
	return err
}

func (s *Store) ListAuthorityAudit(ctx context.Context, tenantID, agentID string, limit int) ([]core.AuthorityAuditRecord, error) {
	q := `
		SELECT id, tenant_id, agent_id, event_type, COALESCE(action, ''),
		       COALESCE(decision, ''), COALESCE(reason, ''), COALESCE(actor, ''),
		       metadata, created_at
		FROM authority_audit
		WHERE tenant_id = $1`
	args := []any{tenantID}
	if agentID != "" {
		q += ` AND agent_id = $2`
		args = append(args, agentID)
	}
	q += ` ORDER BY created_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.AuthorityAuditRecord
	for rows.Next() {
		var r core.AuthorityAuditRecord
		var meta []byte
		if err := rows.Scan(
			&r.ID, &r.TenantID, &r.AgentID, &r.EventType, &r.Action,
			&r.Decision, &r.Reason, &r.Actor, &meta, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Metadata); err != nil {
				return nil, fmt.Errorf("pg: decode audit metadata: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
