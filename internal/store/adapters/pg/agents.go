package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

func (s *Store) CreateAgent(ctx context.Context, a *core.Agent) error {
	const q = `
		INSERT INTO agents
			(id, tenant_id, name, description, capabilities, status, api_key_hash,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, q,
		a.ID, a.TenantID, a.Name, a.Description, a.Capabilities,
		string(a.Status), a.APIKeyHash, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (s *Store) GetAgent(ctx context.Context, tenantID, agentID string) (*core.Agent, error) {
	const q = `
		SELECT id, tenant_id, name, COALESCE(description, ''), capabilities, status,
		       api_key_hash, created_at, updated_at, last_seen_at
		FROM agents
		WHERE tenant_id = $1 AND id = $2`

	var a core.Agent
	err := s.pool.QueryRow(ctx, q, tenantID, agentID).Scan(
		&a.ID, &a.TenantID, &a.Name, &a.Description, &a.Capabilities, &a.Status,
		&a.APIKeyHash, &a.CreatedAt, &a.UpdatedAt, &a.LastSeenAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context, tenantID string) ([]core.Agent, error) {
	const q = `
		SELECT id, tenant_id, name, COALESCE(description, ''), capabilities, status,
		       api_key_hash, created_at, updated_at, last_seen_at
		FROM agents
		WHERE tenant_id = $1
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Agent
	for rows.Next() {
		var a core.Agent
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.Name, &a.Description, &a.Capabilities, &a.Status,
			&a.APIKeyHash, &a.CreatedAt, &a.UpdatedAt, &a.LastSeenAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAgentStatus(ctx context.Context, tenantID, agentID string, status core.AgentStatus) error {
	const q = `
		UPDATE agents SET status = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`

	tag, err := s.pool.Exec(ctx, q, tenantID, agentID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) TouchAgent(ctx context.Context, tenantID, agentID string, at time.Time) error {
	const q = `UPDATE agents SET last_seen_at = $3 WHERE tenant_id = $1 AND id = $2`

	tag, err := s.pool.Exec(ctx, q, tenantID, agentID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
