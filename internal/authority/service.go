package authority

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/cogmesh/internal/audit"
	"github.com/dropDatabas3/cogmesh/internal/cache"
	"github.com/dropDatabas3/cogmesh/internal/metrics"
	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
	"github.com/dropDatabas3/cogmesh/internal/resilience"
	tokens "github.com/dropDatabas3/cogmesh/internal/security/tokens"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
	"github.com/dropDatabas3/cogmesh/internal/validation"
)

// Service es el evaluador de autoridad: resuelve el scope efectivo de un
// agente y valida acciones contra él.
type Service interface {
	// GetAgentAuthority resuelve el scope efectivo: override activo no
	// expirado > scope configurado > default mínimo.
	GetAgentAuthority(ctx context.Context, tenantID, agentID string) (*EffectiveAuthority, error)

	// ValidateAuthority aplica los checks ordenados y audita la decisión.
	ValidateAuthority(ctx context.Context, req core.ValidateAuthorityRequest) (*core.AuthorityDecision, error)

	// SetAuthorityScope configura el scope base de un agente.
	SetAuthorityScope(ctx context.Context, sc *core.AuthorityScope) error

	// GrantOverride emite un override temporal identificado por token.
	// El token se persiste hasheado; el claro se devuelve SOLO acá.
	GrantOverride(ctx context.Context, req GrantOverrideRequest) (*core.AuthorityOverride, error)

	// RevokeOverride revoca un override activo por token.
	RevokeOverride(ctx context.Context, token, revokedBy string) error

	// AuditTrail lista las entradas de auditoría del tenant (y agente opcional).
	AuditTrail(ctx context.Context, tenantID, agentID string, limit int) ([]core.AuthorityAuditRecord, error)
}

// EffectiveAuthority es el scope resuelto junto con su origen.
type EffectiveAuthority struct {
	Scope core.AuthorityScope `json:"scope"`
	// Source: "override" | "configured" | "minimal_default"
	Source string `json:"source"`
	// ExpiresAt acota la vigencia cuando el scope viene de un override;
	// nil para scopes configurados o default.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// GrantOverrideRequest describe un pedido de override de autoridad.
type GrantOverrideRequest struct {
	TenantID  string
	AgentID   string
	Scope     core.AuthorityScope
	Reason    string
	GrantedBy string
	TTL       time.Duration
}

// Deps contiene las dependencias del service.
type Deps struct {
	Repo  core.Repository
	Exec  *resilience.Executor
	Cache cache.Client
	Trail *audit.Trail

	// ScopeTTL controla el cache del scope efectivo. 0 = sin cache.
	ScopeTTL time.Duration
	// DefaultOverrideTTL se usa cuando GrantOverrideRequest.TTL es 0.
	DefaultOverrideTTL time.Duration
}

type service struct {
	deps Deps
}

// NewService crea el evaluador de autoridad.
func NewService(deps Deps) Service {
	if deps.Exec == nil {
		deps.Exec = resilience.New("authority", resilience.Options{})
	}
	if deps.DefaultOverrideTTL == 0 {
		deps.DefaultOverrideTTL = time.Hour
	}
	return &service{deps: deps}
}

func scopeCacheKey(tenantID, agentID string) string {
	return "authority:scope:" + tenantID + ":" + agentID
}

func (s *service) GetAgentAuthority(ctx context.Context, tenantID, agentID string) (*EffectiveAuthority, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrMissingTenant
	}
	if strings.TrimSpace(agentID) == "" {
		return nil, ErrMissingAgent
	}

	// Fast path: cache del scope efectivo. Una entrada con origen override
	// solo vale mientras el override no haya expirado.
	if s.deps.Cache != nil && s.deps.ScopeTTL > 0 {
		var eff EffectiveAuthority
		if err := cache.GetJSON(ctx, s.deps.Cache, scopeCacheKey(tenantID, agentID), &eff); err == nil {
			if eff.ExpiresAt == nil || eff.ExpiresAt.After(time.Now().UTC()) {
				return &eff, nil
			}
		}
	}

	eff, err := s.resolveAuthority(ctx, tenantID, agentID)
	if err != nil {
		return nil, err
	}

	if s.deps.Cache != nil && s.deps.ScopeTTL > 0 {
		// Best effort: un fallo de cache no voltea la resolución. El TTL
		// nunca supera lo que le queda de vida al override que originó
		// el scope.
		ttl := s.deps.ScopeTTL
		if eff.ExpiresAt != nil {
			if left := time.Until(*eff.ExpiresAt); left < ttl {
				ttl = left
			}
		}
		if ttl > 0 {
			_ = cache.SetJSON(ctx, s.deps.Cache, scopeCacheKey(tenantID, agentID), eff, ttl)
		}
	}
	return eff, nil
}

// resolveAuthority consulta el store (con resiliencia) en orden:
// override activo, scope configurado, default mínimo.
func (s *service) resolveAuthority(ctx context.Context, tenantID, agentID string) (*EffectiveAuthority, error) {
	now := time.Now().UTC()

	var ov *core.AuthorityOverride
	err := s.deps.Exec.Do(ctx, "GetActiveOverride", func(ctx context.Context) error {
		var err error
		ov, err = s.deps.Repo.GetActiveOverride(ctx, tenantID, agentID, now)
		if err == core.ErrNotFound {
			ov = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, &ServiceError{Op: "GetActiveOverride", Err: err}
	}
	if ov != nil && ov.Active(now) {
		exp := ov.ExpiresAt
		return &EffectiveAuthority{Scope: ov.Scope, Source: "override", ExpiresAt: &exp}, nil
	}

	var sc *core.AuthorityScope
	err = s.deps.Exec.Do(ctx, "GetAuthorityScope", func(ctx context.Context) error {
		var err error
		sc, err = s.deps.Repo.GetAuthorityScope(ctx, tenantID, agentID)
		if err == core.ErrNotFound {
			sc = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, &ServiceError{Op: "GetAuthorityScope", Err: err}
	}
	if sc != nil {
		return &EffectiveAuthority{Scope: *sc, Source: "configured"}, nil
	}

	return &EffectiveAuthority{Scope: *core.MinimalScope(tenantID, agentID), Source: "minimal_default"}, nil
}

func (s *service) ValidateAuthority(ctx context.Context, req core.ValidateAuthorityRequest) (*core.AuthorityDecision, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("authority"),
		logger.Op("ValidateAuthority"),
		logger.TenantID(req.TenantID),
		logger.AgentID(req.AgentID),
		logger.Action(req.Action),
	)

	req.TenantID = strings.TrimSpace(req.TenantID)
	req.AgentID = strings.TrimSpace(req.AgentID)
	req.Action = strings.TrimSpace(req.Action)
	if req.TenantID == "" {
		return nil, ErrMissingTenant
	}
	if req.AgentID == "" {
		return nil, ErrMissingAgent
	}
	if req.Action == "" {
		return nil, ErrMissingAction
	}
	if !validation.ValidActionName(req.Action) {
		return nil, ErrInvalidAction
	}

	eff, err := s.GetAgentAuthority(ctx, req.TenantID, req.AgentID)
	if err != nil {
		log.Error("failed to resolve authority scope", logger.Err(err))
		return nil, err
	}

	decision := evaluate(&eff.Scope, eff.Source, req, time.Now().UTC())

	// Toda validación deja rastro en el audit trail.
	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  req.TenantID,
		AgentID:   req.AgentID,
		EventType: "validation",
		Action:    req.Action,
		Decision:  string(decision.Outcome),
		Reason:    decision.Reason,
		Metadata: map[string]any{
			"scope_source": decision.ScopeSource,
			"resource":     req.Resource,
		},
	})
	metrics.RecordAuthorityDecision(req.TenantID, string(decision.Outcome))

	log.Info("authority validated", logger.Decision(string(decision.Outcome)))
	return &decision, nil
}

func (s *service) SetAuthorityScope(ctx context.Context, sc *core.AuthorityScope) error {
	if sc == nil || strings.TrimSpace(sc.TenantID) == "" {
		return ErrMissingTenant
	}
	if strings.TrimSpace(sc.AgentID) == "" {
		return ErrMissingAgent
	}
	if !validation.ValidActionPatterns(sc.AllowedActions) || !validation.ValidActionPatterns(sc.DeniedActions) {
		return ErrInvalidActionPat
	}

	err := s.deps.Exec.Do(ctx, "UpsertAuthorityScope", func(ctx context.Context) error {
		return s.deps.Repo.UpsertAuthorityScope(ctx, sc)
	})
	if err != nil {
		return &ServiceError{Op: "UpsertAuthorityScope", Err: err}
	}

	s.invalidateScope(ctx, sc.TenantID, sc.AgentID)
	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  sc.TenantID,
		AgentID:   sc.AgentID,
		EventType: "scope_configured",
	})
	return nil
}

func (s *service) GrantOverride(ctx context.Context, req GrantOverrideRequest) (*core.AuthorityOverride, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("authority"),
		logger.Op("GrantOverride"),
		logger.TenantID(req.TenantID),
		logger.AgentID(req.AgentID),
	)

	if strings.TrimSpace(req.TenantID) == "" {
		return nil, ErrMissingTenant
	}
	if strings.TrimSpace(req.AgentID) == "" {
		return nil, ErrMissingAgent
	}
	if !validation.ValidActionPatterns(req.Scope.AllowedActions) || !validation.ValidActionPatterns(req.Scope.DeniedActions) {
		return nil, ErrInvalidActionPat
	}

	token, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		log.Error("failed to generate override token", logger.Err(err))
		return nil, err
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.deps.DefaultOverrideTTL
	}
	now := time.Now().UTC()

	// En el store solo vive el hash del token; el claro viaja una única
	// vez en la respuesta.
	tokenHash := tokens.SHA256Base64URL(token)
	ov := &core.AuthorityOverride{
		Token:     tokenHash,
		TenantID:  req.TenantID,
		AgentID:   req.AgentID,
		Scope:     req.Scope,
		Reason:    req.Reason,
		GrantedBy: req.GrantedBy,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	ov.Scope.TenantID = req.TenantID
	ov.Scope.AgentID = req.AgentID

	err = s.deps.Exec.Do(ctx, "CreateOverride", func(ctx context.Context) error {
		return s.deps.Repo.CreateOverride(ctx, ov)
	})
	if err != nil {
		return nil, &ServiceError{Op: "CreateOverride", Err: err}
	}

	s.invalidateScope(ctx, req.TenantID, req.AgentID)
	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  req.TenantID,
		AgentID:   req.AgentID,
		EventType: "override_granted",
		Reason:    req.Reason,
		Actor:     req.GrantedBy,
		Metadata:  map[string]any{"token_hash": tokenHash, "expires_at": ov.ExpiresAt},
	})
	metrics.RecordOverrideEvent("authority", "granted")

	log.Info("override granted", logger.OverrideToken(tokenHash))
	ov.Token = token
	return ov, nil
}

func (s *service) RevokeOverride(ctx context.Context, token, revokedBy string) error {
	tokenHash := tokens.SHA256Base64URL(token)
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("authority"),
		logger.Op("RevokeOverride"),
		logger.OverrideToken(tokenHash),
	)

	var ov *core.AuthorityOverride
	err := s.deps.Exec.Do(ctx, "GetOverrideByToken", func(ctx context.Context) error {
		var err error
		ov, err = s.deps.Repo.GetOverrideByToken(ctx, tokenHash)
		if err == core.ErrNotFound {
			// Not found no es un fallo del store: no se reintenta.
			ov = nil
			return nil
		}
		return err
	})
	if err != nil {
		return &ServiceError{Op: "GetOverrideByToken", Err: err}
	}
	if ov == nil {
		return ErrOverrideUnknown
	}
	if ov.RevokedAt != nil {
		return ErrOverrideRevoked
	}

	now := time.Now().UTC()
	if !ov.ExpiresAt.After(now) {
		return ErrOverrideExpired
	}
	err = s.deps.Exec.Do(ctx, "RevokeOverride", func(ctx context.Context) error {
		return s.deps.Repo.RevokeOverride(ctx, tokenHash, revokedBy, now)
	})
	if err != nil {
		return &ServiceError{Op: "RevokeOverride", Err: err}
	}

	s.invalidateScope(ctx, ov.TenantID, ov.AgentID)
	s.deps.Trail.Record(ctx, audit.Event{
		TenantID:  ov.TenantID,
		AgentID:   ov.AgentID,
		EventType: "override_revoked",
		Actor:     revokedBy,
		Metadata:  map[string]any{"token_hash": tokenHash},
	})
	metrics.RecordOverrideEvent("authority", "revoked")

	log.Info("override revoked")
	return nil
}

func (s *service) AuditTrail(ctx context.Context, tenantID, agentID string, limit int) ([]core.AuthorityAuditRecord, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrMissingTenant
	}
	var out []core.AuthorityAuditRecord
	err := s.deps.Exec.Do(ctx, "ListAuthorityAudit", func(ctx context.Context) error {
		var err error
		out, err = s.deps.Repo.ListAuthorityAudit(ctx, tenantID, agentID, limit)
		return err
	})
	if err != nil {
		return nil, &ServiceError{Op: "ListAuthorityAudit", Err: err}
	}
	return out, nil
}

func (s *service) invalidateScope(ctx context.Context, tenantID, agentID string) {
	if s.deps.Cache != nil {
		_ = s.deps.Cache.Delete(ctx, scopeCacheKey(tenantID, agentID))
	}
}
