package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// El log de consentimientos es append-only: solo INSERT y SELECT, nunca
// UPDATE/DELETE. El consentimiento vigente es el registro más reciente.

func (s *Store) AppendConsent(ctx context.Context, r *core.ConsentRecord) error {
	const q = `
		INSERT INTO consent_records
			(id, tenant_id, user_id, consent_type, scope, granted, granted_by, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, q,
		r.ID, r.TenantID, r.UserID, string(r.ConsentType), r.Scope,
		r.Granted, r.GrantedBy, r.Source, r.CreatedAt,
	)
	return err
}

func (s *Store) AppendAgentConsent(ctx context.Context, r *core.AgentConsentRecord) error {
	const q = `
		INSERT INTO agent_consent_records
			(id, tenant_id, user_id, agent_id, consent_type, scope, granted,
			 granted_by, source, operation, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	cctx, err := jsonb(r.Context)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, q,
		r.ID, r.TenantID, r.UserID, r.AgentID, string(r.ConsentType), r.Scope,
		r.Granted, r.GrantedBy, r.Source, r.Operation, cctx, r.CreatedAt,
	)
	return err
}

func (s *Store) LatestConsent(ctx context.Context, tenantID, userID string, t types.ConsentType, scope string) (*core.ConsentRecord, error) {
	const q = `
		SELECT id, tenant_id, user_id, consent_type, scope, granted,
		       COALESCE(granted_by, ''), COALESCE(source, ''), created_at
		FROM consent_records
		WHERE tenant_id = $1 AND user_id = $2 AND consent_type = $3 AND scope = $4
		ORDER BY created_at DESC
		LIMIT 1`

	var r core.ConsentRecord
	err := s.pool.QueryRow(ctx, q, tenantID, userID, string(t), scope).Scan(
		&r.ID, &r.TenantID, &r.UserID, &r.ConsentType, &r.Scope,
		&r.Granted, &r.GrantedBy, &r.Source, &r.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func (s *Store) LatestAgentConsent(ctx context.Context, tenantID, userID, agentID string, t types.ConsentType, scope string) (*core.AgentConsentRecord, error) {
	const q = `
		SELECT id, tenant_id, user_id, agent_id, consent_type, scope, granted,
		       COALESCE(granted_by, ''), COALESCE(source, ''), COALESCE(operation, ''),
		       context, created_at
		FROM agent_consent_records
		WHERE tenant_id = $1 AND user_id = $2 AND agent_id = $3
		  AND consent_type = $4 AND scope = $5
		ORDER BY created_at DESC
		LIMIT 1`

	var r core.AgentConsentRecord
	var cctx []byte
	err := s.pool.QueryRow(ctx, q, tenantID, userID, agentID, string(t), scope).Scan(
		&r.ID, &r.TenantID, &r.UserID, &r.AgentID, &r.ConsentType, &r.Scope,
		&r.Granted, &r.GrantedBy, &r.Source, &r.Operation, &cctx, &r.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if len(cctx) > 0 {
		if err := json.Unmarshal(cctx, &r.Context); err != nil {
			return nil, fmt.Errorf("pg: decode consent context: %w", err)
		}
	}
	return &r, nil
}

func (s *Store) ListAgentConsents(ctx context.Context, tenantID, userID, agentID string) ([]core.AgentConsentRecord, error) {
	const q = `
		SELECT id, tenant_id, user_id, agent_id, consent_type, scope, granted,
		       COALESCE(granted_by, ''), COALESCE(source, ''), COALESCE(operation, ''),
		       context, created_at
		FROM agent_consent_records
		WHERE tenant_id = $1 AND user_id = $2 AND agent_id = $3
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, q, tenantID, userID, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.AgentConsentRecord
	for rows.Next() {
		var r core.AgentConsentRecord
		var cctx []byte
		if err := rows.Scan(
			&r.ID, &r.TenantID, &r.UserID, &r.AgentID, &r.ConsentType, &r.Scope,
			&r.Granted, &r.GrantedBy, &r.Source, &r.Operation, &cctx, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(cctx) > 0 {
			if err := json.Unmarshal(cctx, &r.Context); err != nil {
				return nil, fmt.Errorf("pg: decode consent context: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ------- Preferencias -------

func (s *Store) GetPreferences(ctx context.Context, tenantID, userID string) (*core.AgentConsentPreferences, error) {
	const q = `
		SELECT tenant_id, user_id, auto_consent_low_risk, trusted_agents, blocked_agents,
		       pre_approved_types, type_preferences, updated_at
		FROM agent_consent_preferences
		WHERE tenant_id = $1 AND user_id = $2`

	var p core.AgentConsentPreferences
	var preApproved []string
	var typePrefs []byte
	err := s.pool.QueryRow(ctx, q, tenantID, userID).Scan(
		&p.TenantID, &p.UserID, &p.AutoConsentLowRisk, &p.TrustedAgents, &p.BlockedAgents,
		&preApproved, &typePrefs, &p.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	for _, t := range preApproved {
		p.PreApprovedTypes = append(p.PreApprovedTypes, types.ConsentType(t))
	}
	if len(typePrefs) > 0 {
		if err := json.Unmarshal(typePrefs, &p.TypePreferences); err != nil {
			return nil, fmt.Errorf("pg: decode type_preferences: %w", err)
		}
	}
	return &p, nil
}

func (s *Store) UpsertPreferences(ctx context.Context, p *core.AgentConsentPreferences) error {
	const q = `
		INSERT INTO agent_consent_preferences
			(tenant_id, user_id, auto_consent_low_risk, trusted_agents, blocked_agents,
			 pre_approved_types, type_preferences, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET
			auto_consent_low_risk = EXCLUDED.auto_consent_low_risk,
			trusted_agents = EXCLUDED.trusted_agents,
			blocked_agents = EXCLUDED.blocked_agents,
			pre_approved_types = EXCLUDED.pre_approved_types,
			type_preferences = EXCLUDED.type_preferences,
			updated_at = NOW()`

	preApproved := make([]string, 0, len(p.PreApprovedTypes))
	for _, t := range p.PreApprovedTypes {
		preApproved = append(preApproved, string(t))
	}
	typePrefs, err := jsonb(p.TypePreferences)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, q,
		p.TenantID, p.UserID, p.AutoConsentLowRisk, p.TrustedAgents, p.BlockedAgents,
		preApproved, typePrefs,
	)
	return err
}

// ------- Emergency overrides -------

func (s *Store) CreateEmergencyOverride(ctx context.Context, e *core.EmergencyOverride) error {
	const q = `
		INSERT INTO emergency_overrides
			(id, tenant_id, agent_id, reason, authorized_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, q,
		e.ID, e.TenantID, e.AgentID, e.Reason, e.AuthorizedBy, e.CreatedAt, e.ExpiresAt,
	)
	return err
}

func (s *Store) GetActiveEmergencyOverride(ctx context.Context, tenantID, agentID string, now time.Time) (*core.EmergencyOverride, error) {
	const q = `
		SELECT id, tenant_id, agent_id, reason, authorized_by, created_at, expires_at, revoked_at
		FROM emergency_overrides
		WHERE tenant_id = $1 AND agent_id = $2 AND revoked_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`

	var e core.EmergencyOverride
	err := s.pool.QueryRow(ctx, q, tenantID, agentID, now).Scan(
		&e.ID, &e.TenantID, &e.AgentID, &e.Reason, &e.AuthorizedBy,
		&e.CreatedAt, &e.ExpiresAt, &e.RevokedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

func (s *Store) RevokeEmergencyOverride(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE emergency_overrides
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL`

	tag, err := s.pool.Exec(ctx, q, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
