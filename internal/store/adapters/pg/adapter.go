// Package pg implementa core.Repository sobre PostgreSQL usando pgxpool.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

type Store struct {
	pool *pgxpool.Pool
}

// Config controla el pool de conexiones.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// New abre el pool y verifica la conexión.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pcfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
func (s *Store) Close()                         { s.pool.Close() }

// Pool expone el pool para métricas.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// jsonb serializa v a bytes para columnas jsonb; nil si v está vacío.
func jsonb(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// ------- Authority scopes -------

func (s *Store) GetAuthorityScope(ctx context.Context, tenantID, agentID string) (*core.AuthorityScope, error) {
	const q = `
		SELECT tenant_id, agent_id, allowed_actions, denied_actions, allowed_resources,
		       max_resource_units, max_budget, data_policies, compliance_frameworks, updated_at
		FROM authority_scopes
		WHERE tenant_id = $1 AND agent_id = $2`

	var sc core.AuthorityScope
	var policies []byte
	err := s.pool.QueryRow(ctx, q, tenantID, agentID).Scan(
		&sc.TenantID, &sc.AgentID, &sc.AllowedActions, &sc.DeniedActions, &sc.AllowedResources,
		&sc.MaxResourceUnits, &sc.MaxBudget, &policies, &sc.ComplianceFrameworks, &sc.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if len(policies) > 0 {
		if err := json.Unmarshal(policies, &sc.DataPolicies); err != nil {
			return nil, fmt.Errorf("pg: decode data_policies: %w", err)
		}
	}
	return &sc, nil
}

func (s *Store) UpsertAuthorityScope(ctx context.Context, sc *core.AuthorityScope) error {
	const q = `
		INSERT INTO authority_scopes
			(tenant_id, agent_id, allowed_actions, denied_actions, allowed_resources,
			 max_resource_units, max_budget, data_policies, compliance_frameworks, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (tenant_id, agent_id) DO UPDATE SET
			allowed_actions = EXCLUDED.allowed_actions,
			denied_actions = EXCLUDED.denied_actions,
			allowed_resources = EXCLUDED.allowed_resources,
			max_resource_units = EXCLUDED.max_resource_units,
			max_budget = EXCLUDED.max_budget,
			data_policies = EXCLUDED.data_policies,
			compliance_frameworks = EXCLUDED.compliance_frameworks,
			updated_at = NOW()`

	policies, err := jsonb(sc.DataPolicies)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, q,
		sc.TenantID, sc.AgentID, sc.AllowedActions, sc.DeniedActions, sc.AllowedResources,
		sc.MaxResourceUnits, sc.MaxBudget, policies, sc.ComplianceFrameworks,
	)
	return err
}

// ------- Authority overrides -------

func (s *Store) CreateOverride(ctx context.Context, o *core.AuthorityOverride) error {
	const q = `
		INSERT INTO authority_overrides
			(token, tenant_id, agent_id, scope, reason, granted_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	scope, err := jsonb(o.Scope)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, q,
		o.Token, o.TenantID, o.AgentID, scope, o.Reason, o.GrantedBy, o.CreatedAt, o.ExpiresAt,
	)
	return err
}

const overrideCols = `token, tenant_id, agent_id, scope, reason, granted_by,
	created_at, expires_at, revoked_at, COALESCE(revoked_by, '')`

func scanOverride(row pgx.Row) (*core.AuthorityOverride, error) {
	var o core.AuthorityOverride
	var scope []byte
	err := row.Scan(
		&o.Token, &o.TenantID, &o.AgentID, &scope, &o.Reason, &o.GrantedBy,
		&o.CreatedAt, &o.ExpiresAt, &o.RevokedAt, &o.RevokedBy,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if len(scope) > 0 {
		if err := json.Unmarshal(scope, &o.Scope); err != nil {
			return nil, fmt.Errorf("pg: decode override scope: %w", err)
		}
	}
	return &o, nil
}

func (s *Store) GetOverrideByToken(ctx context.Context, token string) (*core.AuthorityOverride, error) {
	q := `SELECT ` + overrideCols + ` FROM authority_overrides WHERE token = $1`
	return scanOverride(s.pool.QueryRow(ctx, q, token))
}

func (s *Store) GetActiveOverride(ctx context.Context, tenantID, agentID string, now time.Time) (*core.AuthorityOverride, error) {
	q := `SELECT ` + overrideCols + `
		FROM authority_overrides
		WHERE tenant_id = $1 AND agent_id = $2 AND revoked_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`
	return scanOverride(s.pool.QueryRow(ctx, q, tenantID, agentID, now))
}

func (s *Store) RevokeOverride(ctx context.Context, token, revokedBy string, at time.Time) error {
	const q = `
		UPDATE authority_overrides
		SET revoked_at = $2, revoked_by = $3
		WHERE token = $1 AND revoked_at IS NULL`

	tag, err := s.pool.Exec(ctx, q, token, at, revokedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
