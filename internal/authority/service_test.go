package authority

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/cogmesh/internal/audit"
	"github.com/dropDatabas3/cogmesh/internal/cache"
	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	"github.com/dropDatabas3/cogmesh/internal/resilience"
	"github.com/dropDatabas3/cogmesh/internal/security/tokens"
	"github.com/dropDatabas3/cogmesh/internal/store/adapters/memory"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

func newTestService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	svc := NewService(Deps{
		Repo:  repo,
		Exec:  resilience.New("authority-test", resilience.Options{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
		Trail: audit.NewTrail(repo),
	})
	return svc, repo
}

func TestGetAgentAuthority_MinimalDefault(t *testing.T) {
	svc, _ := newTestService(t)

	eff, err := svc.GetAgentAuthority(context.Background(), "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, "minimal_default", eff.Source)
	require.Equal(t, []string{"query/read"}, eff.Scope.AllowedActions)
}

func TestGetAgentAuthority_ConfiguredScope(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetAuthorityScope(ctx, &core.AuthorityScope{
		TenantID:       "t1",
		AgentID:        "a1",
		AllowedActions: []string{"report/*"},
		MaxBudget:      100,
	}))

	eff, err := svc.GetAgentAuthority(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, "configured", eff.Source)
	require.Equal(t, []string{"report/*"}, eff.Scope.AllowedActions)
}

func TestGetAgentAuthority_ActiveOverrideWins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetAuthorityScope(ctx, &core.AuthorityScope{
		TenantID:       "t1",
		AgentID:        "a1",
		AllowedActions: []string{"report/*"},
	}))

	ov, err := svc.GrantOverride(ctx, GrantOverrideRequest{
		TenantID:  "t1",
		AgentID:   "a1",
		Scope:     core.AuthorityScope{AllowedActions: []string{"*"}, MaxBudget: -1},
		Reason:    "incident response",
		GrantedBy: "oncall",
		TTL:       time.Minute,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ov.Token)

	eff, err := svc.GetAgentAuthority(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, "override", eff.Source)
	require.Equal(t, []string{"*"}, eff.Scope.AllowedActions)
}

func TestGetAgentAuthority_ExpiredOverrideFallsBack(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetAuthorityScope(ctx, &core.AuthorityScope{
		TenantID:       "t1",
		AgentID:        "a1",
		AllowedActions: []string{"report/*"},
	}))

	now := time.Now().UTC()
	require.NoError(t, repo.CreateOverride(ctx, &core.AuthorityOverride{
		Token:     "tok-expired",
		TenantID:  "t1",
		AgentID:   "a1",
		Scope:     core.AuthorityScope{TenantID: "t1", AgentID: "a1", AllowedActions: []string{"*"}},
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}))

	eff, err := svc.GetAgentAuthority(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, "configured", eff.Source)
}

func TestGetAgentAuthority_CacheNeverOutlivesOverride(t *testing.T) {
	repo := memory.New()
	svc := NewService(Deps{
		Repo:     repo,
		Exec:     resilience.New("authority-test", resilience.Options{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
		Cache:    cache.NewMemory(""),
		Trail:    audit.NewTrail(repo),
		ScopeTTL: time.Hour,
	})
	ctx := context.Background()

	require.NoError(t, svc.SetAuthorityScope(ctx, &core.AuthorityScope{
		TenantID:       "t1",
		AgentID:        "a1",
		AllowedActions: []string{"report/*"},
	}))

	_, err := svc.GrantOverride(ctx, GrantOverrideRequest{
		TenantID:  "t1",
		AgentID:   "a1",
		Scope:     core.AuthorityScope{AllowedActions: []string{"*"}},
		Reason:    "incident response",
		GrantedBy: "oncall",
		TTL:       50 * time.Millisecond,
	})
	require.NoError(t, err)

	// Primera resolución: el override manda y queda cacheado.
	eff, err := svc.GetAgentAuthority(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, "override", eff.Source)

	time.Sleep(80 * time.Millisecond)

	// Expirado el override, el cache no puede seguir sirviéndolo aunque
	// el TTL de scope sea mucho más largo.
	eff, err = svc.GetAgentAuthority(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, "configured", eff.Source)
	require.Equal(t, []string{"report/*"}, eff.Scope.AllowedActions)
}

func TestGrantOverride_TokenStoredHashed(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	ov, err := svc.GrantOverride(ctx, GrantOverrideRequest{
		TenantID: "t1", AgentID: "a1",
		Scope: core.AuthorityScope{AllowedActions: []string{"*"}},
		TTL:   time.Minute,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ov.Token)

	// El token en claro nunca se persiste: en el store vive su hash.
	_, err = repo.GetOverrideByToken(ctx, ov.Token)
	require.ErrorIs(t, err, core.ErrNotFound)

	stored, err := repo.GetOverrideByToken(ctx, tokens.SHA256Base64URL(ov.Token))
	require.NoError(t, err)
	require.Equal(t, "a1", stored.AgentID)

	// Revocar con el token en claro sigue funcionando.
	require.NoError(t, svc.RevokeOverride(ctx, ov.Token, "admin"))
}

func TestRevokeOverride_Expired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ov, err := svc.GrantOverride(ctx, GrantOverrideRequest{
		TenantID: "t1", AgentID: "a1",
		Scope: core.AuthorityScope{AllowedActions: []string{"*"}},
		TTL:   time.Millisecond,
	})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.ErrorIs(t, svc.RevokeOverride(ctx, ov.Token, "admin"), ErrOverrideExpired)
}

func TestRevokeOverride(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ov, err := svc.GrantOverride(ctx, GrantOverrideRequest{
		TenantID: "t1", AgentID: "a1",
		Scope: core.AuthorityScope{AllowedActions: []string{"*"}},
		TTL:   time.Minute,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeOverride(ctx, ov.Token, "admin"))

	// Revocado: el scope efectivo vuelve al default.
	eff, err := svc.GetAgentAuthority(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, "minimal_default", eff.Source)

	// Doble revoke y token desconocido.
	require.ErrorIs(t, svc.RevokeOverride(ctx, ov.Token, "admin"), ErrOverrideRevoked)
	require.ErrorIs(t, svc.RevokeOverride(ctx, "nope", "admin"), ErrOverrideUnknown)
}

func TestValidateAuthority_AuditsEveryDecision(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	dec, err := svc.ValidateAuthority(ctx, core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read",
	})
	require.NoError(t, err)
	require.Equal(t, types.OutcomeAuthorized, dec.Outcome)
	require.Equal(t, "minimal_default", dec.ScopeSource)

	trail, err := svc.AuditTrail(ctx, "t1", "a1", 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	require.Equal(t, "validation", trail[0].EventType)
	require.Equal(t, "query/read", trail[0].Action)
	require.Equal(t, string(types.OutcomeAuthorized), trail[0].Decision)
}

func TestValidateAuthority_MissingFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ValidateAuthority(ctx, core.ValidateAuthorityRequest{AgentID: "a1", Action: "x"})
	require.ErrorIs(t, err, ErrMissingTenant)

	_, err = svc.ValidateAuthority(ctx, core.ValidateAuthorityRequest{TenantID: "t1", Action: "x"})
	require.ErrorIs(t, err, ErrMissingAgent)

	_, err = svc.ValidateAuthority(ctx, core.ValidateAuthorityRequest{TenantID: "t1", AgentID: "a1"})
	require.ErrorIs(t, err, ErrMissingAction)

	_, err = svc.ValidateAuthority(ctx, core.ValidateAuthorityRequest{TenantID: "t1", AgentID: "a1", Action: "Query/Read"})
	require.ErrorIs(t, err, ErrInvalidAction)
}

func TestSetAuthorityScope_RejectsBadPatterns(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.SetAuthorityScope(ctx, &core.AuthorityScope{
		TenantID:       "t1",
		AgentID:        "a1",
		AllowedActions: []string{"query/"},
	})
	require.ErrorIs(t, err, ErrInvalidActionPat)
}
