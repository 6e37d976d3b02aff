package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

func TestAuthorityScope_Roundtrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.GetAuthorityScope(ctx, "t1", "a1")
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.UpsertAuthorityScope(ctx, &core.AuthorityScope{
		TenantID: "t1", AgentID: "a1", AllowedActions: []string{"query/*"},
	}))

	sc, err := s.GetAuthorityScope(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, []string{"query/*"}, sc.AllowedActions)
	require.False(t, sc.UpdatedAt.IsZero())

	// Upsert reemplaza.
	require.NoError(t, s.UpsertAuthorityScope(ctx, &core.AuthorityScope{
		TenantID: "t1", AgentID: "a1", AllowedActions: []string{"*"},
	}))
	sc, err = s.GetAuthorityScope(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, []string{"*"}, sc.AllowedActions)
}

func TestGetActiveOverride_FiltersAndPicksNewest(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(token string, createdAgo time.Duration, expiresIn time.Duration, revoked bool) *core.AuthorityOverride {
		o := &core.AuthorityOverride{
			Token: token, TenantID: "t1", AgentID: "a1",
			CreatedAt: now.Add(-createdAgo),
			ExpiresAt: now.Add(expiresIn),
		}
		if revoked {
			rv := now.Add(-time.Minute)
			o.RevokedAt = &rv
		}
		return o
	}

	require.NoError(t, s.CreateOverride(ctx, mk("expired", 3*time.Hour, -time.Hour, false)))
	require.NoError(t, s.CreateOverride(ctx, mk("revoked", 2*time.Hour, time.Hour, true)))
	require.NoError(t, s.CreateOverride(ctx, mk("old-active", time.Hour, time.Hour, false)))
	require.NoError(t, s.CreateOverride(ctx, mk("new-active", time.Minute, time.Hour, false)))

	got, err := s.GetActiveOverride(ctx, "t1", "a1", now)
	require.NoError(t, err)
	require.Equal(t, "new-active", got.Token)

	_, err = s.GetActiveOverride(ctx, "t1", "other", now)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateOverride_DuplicateToken(t *testing.T) {
	s := New()
	ctx := context.Background()

	o := &core.AuthorityOverride{Token: "tok", TenantID: "t1", AgentID: "a1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateOverride(ctx, o))
	require.ErrorIs(t, s.CreateOverride(ctx, o), core.ErrConflict)
}

func TestRevokeOverride(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateOverride(ctx, &core.AuthorityOverride{
		Token: "tok", TenantID: "t1", AgentID: "a1", ExpiresAt: now.Add(time.Hour),
	}))

	require.NoError(t, s.RevokeOverride(ctx, "tok", "admin", now))

	got, err := s.GetOverrideByToken(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, got.RevokedAt)
	require.Equal(t, "admin", got.RevokedBy)

	require.ErrorIs(t, s.RevokeOverride(ctx, "tok", "admin", now), core.ErrConflict)
	require.ErrorIs(t, s.RevokeOverride(ctx, "nope", "admin", now), core.ErrNotFound)
}

func TestLatestAgentConsent_MostRecentWins(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(id string, granted bool, ago time.Duration) *core.AgentConsentRecord {
		return &core.AgentConsentRecord{
			ConsentRecord: core.ConsentRecord{
				ID: id, TenantID: "t1", UserID: "u1",
				ConsentType: types.ConsentTypeDataAccess,
				Granted:     granted, CreatedAt: now.Add(-ago),
			},
			AgentID: "a1",
		}
	}

	require.NoError(t, s.AppendAgentConsent(ctx, mk("old-grant", true, 2*time.Hour)))
	require.NoError(t, s.AppendAgentConsent(ctx, mk("new-revoke", false, time.Minute)))

	got, err := s.LatestAgentConsent(ctx, "t1", "u1", "a1", types.ConsentTypeDataAccess, "")
	require.NoError(t, err)
	require.Equal(t, "new-revoke", got.ID)
	require.False(t, got.Granted)

	// Otro scope es otra clave.
	_, err = s.LatestAgentConsent(ctx, "t1", "u1", "a1", types.ConsentTypeDataAccess, "crm")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetActiveEmergencyOverride(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateEmergencyOverride(ctx, &core.EmergencyOverride{
		ID: "e1", TenantID: "t1", AgentID: "a1",
		CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Hour),
	}))

	got, err := s.GetActiveEmergencyOverride(ctx, "t1", "a1", now)
	require.NoError(t, err)
	require.Equal(t, "e1", got.ID)

	require.NoError(t, s.RevokeEmergencyOverride(ctx, "e1", now))
	_, err = s.GetActiveEmergencyOverride(ctx, "t1", "a1", now)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestListAuthorityAudit_NewestFirstWithLimit(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, s.AppendAuthorityAudit(ctx, &core.AuthorityAuditRecord{
			ID: id, TenantID: "t1", AgentID: "a1", EventType: "validation",
		}))
	}
	require.NoError(t, s.AppendAuthorityAudit(ctx, &core.AuthorityAuditRecord{
		ID: "other", TenantID: "t2", EventType: "validation",
	}))

	out, err := s.ListAuthorityAudit(ctx, "t1", "", 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "r3", out[0].ID)
	require.Equal(t, "r2", out[1].ID)

	out, err = s.ListAuthorityAudit(ctx, "t1", "a1", 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestAgents_Lifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	a := &core.Agent{ID: "a1", TenantID: "t1", Name: "bot", Status: core.AgentStatusActive, CreatedAt: now}
	require.NoError(t, s.CreateAgent(ctx, a))
	require.ErrorIs(t, s.CreateAgent(ctx, a), core.ErrConflict)

	require.NoError(t, s.UpdateAgentStatus(ctx, "t1", "a1", core.AgentStatusDeactivated))
	require.NoError(t, s.TouchAgent(ctx, "t1", "a1", now))

	got, err := s.GetAgent(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, core.AgentStatusDeactivated, got.Status)
	require.NotNil(t, got.LastSeenAt)

	require.ErrorIs(t, s.UpdateAgentStatus(ctx, "t1", "ghost", core.AgentStatusActive), core.ErrNotFound)
}
