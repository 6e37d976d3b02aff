package consent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/cogmesh/internal/audit"
	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	"github.com/dropDatabas3/cogmesh/internal/resilience"
	"github.com/dropDatabas3/cogmesh/internal/store/adapters/memory"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

func newTestService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	svc := NewService(Deps{
		Repo:  repo,
		Exec:  resilience.New("consent-test", resilience.Options{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
		Trail: audit.NewTrail(repo),
	})
	return svc, repo
}

func validateReq(consentType types.ConsentType) core.ValidateConsentRequest {
	return core.ValidateConsentRequest{
		TenantID:    "t1",
		UserID:      "u1",
		AgentID:     "a1",
		ConsentType: consentType,
		Operation:   "query/read",
	}
}

func TestValidate_DefaultDeny(t *testing.T) {
	svc, _ := newTestService(t)

	d, err := svc.ValidateAgentConsent(context.Background(), validateReq(types.ConsentTypeDataAccess))
	require.NoError(t, err)
	require.False(t, d.HasConsent)
	require.Equal(t, "default_deny", d.Source)
}

func TestValidate_EmergencyOverrideWinsOverEverything(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Incluso con el agente bloqueado, el override de emergencia gana.
	require.NoError(t, svc.UpdatePreferences(ctx, &core.AgentConsentPreferences{
		TenantID:      "t1",
		UserID:        "u1",
		BlockedAgents: []string{"a1"},
	}))

	_, err := svc.GrantEmergencyOverride(ctx, EmergencyRequest{
		TenantID:     "t1",
		AgentID:      "a1",
		Reason:       "prod incident",
		AuthorizedBy: "oncall",
	})
	require.NoError(t, err)

	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeSensitiveData))
	require.NoError(t, err)
	require.True(t, d.HasConsent)
	require.Equal(t, "emergency_override", d.Source)
}

func TestValidate_BlockedAgentDenied(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdatePreferences(ctx, &core.AgentConsentPreferences{
		TenantID:      "t1",
		UserID:        "u1",
		BlockedAgents: []string{"a1"},
		TrustedAgents: []string{"a1"}, // blocked gana sobre trusted
	}))

	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeDataAccess))
	require.NoError(t, err)
	require.False(t, d.HasConsent)
	require.Equal(t, "blocked_agent", d.Source)
}

func TestValidate_TrustedAgentGranted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdatePreferences(ctx, &core.AgentConsentPreferences{
		TenantID:      "t1",
		UserID:        "u1",
		TrustedAgents: []string{"a1"},
	}))

	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeHighAuthority))
	require.NoError(t, err)
	require.True(t, d.HasConsent)
	require.Equal(t, "trusted_agent", d.Source)
}

func TestValidate_PreApprovedType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdatePreferences(ctx, &core.AgentConsentPreferences{
		TenantID:         "t1",
		UserID:           "u1",
		PreApprovedTypes: []types.ConsentType{types.ConsentTypeNotification},
	}))

	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeNotification))
	require.NoError(t, err)
	require.True(t, d.HasConsent)
	require.Equal(t, "pre_approved", d.Source)
}

func TestValidate_TypePreference(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdatePreferences(ctx, &core.AgentConsentPreferences{
		TenantID: "t1",
		UserID:   "u1",
		TypePreferences: map[types.ConsentType]bool{
			types.ConsentTypeDataSharing: false,
			types.ConsentTypeAutomation:  true,
		},
	}))

	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeDataSharing))
	require.NoError(t, err)
	require.False(t, d.HasConsent)
	require.Equal(t, "type_preference", d.Source)

	d, err = svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeAutomation))
	require.NoError(t, err)
	require.True(t, d.HasConsent)
	require.Equal(t, "type_preference", d.Source)
}

func TestValidate_AutoConsentOnlyLowRisk(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdatePreferences(ctx, &core.AgentConsentPreferences{
		TenantID:           "t1",
		UserID:             "u1",
		AutoConsentLowRisk: true,
	}))

	// Tipos de bajo riesgo: concedidos por auto-consent.
	for _, ct := range []types.ConsentType{
		types.ConsentTypeDataAccess,
		types.ConsentTypeNotification,
		types.ConsentTypeAutomation,
	} {
		d, err := svc.ValidateAgentConsent(ctx, validateReq(ct))
		require.NoError(t, err)
		require.True(t, d.HasConsent, "type %s", ct)
		require.Equal(t, "auto_consent", d.Source, "type %s", ct)
	}

	// Tipos de alto riesgo: el auto-consent NUNCA los concede.
	for _, ct := range []types.ConsentType{
		types.ConsentTypeHighAuthority,
		types.ConsentTypeSensitiveData,
		types.ConsentTypeBudgetOverrun,
		types.ConsentTypeEscalation,
	} {
		d, err := svc.ValidateAgentConsent(ctx, validateReq(ct))
		require.NoError(t, err)
		require.False(t, d.HasConsent, "type %s", ct)
		require.Equal(t, "default_deny", d.Source, "type %s", ct)
	}
}

func TestValidate_AgentRecordMostRecentWins(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Grant viejo, revoke nuevo: gana el revoke.
	require.NoError(t, repo.AppendAgentConsent(ctx, &core.AgentConsentRecord{
		ConsentRecord: core.ConsentRecord{
			ID: "r1", TenantID: "t1", UserID: "u1",
			ConsentType: types.ConsentTypeDataAccess,
			Granted:     true, CreatedAt: now.Add(-time.Hour),
		},
		AgentID: "a1",
	}))
	require.NoError(t, repo.AppendAgentConsent(ctx, &core.AgentConsentRecord{
		ConsentRecord: core.ConsentRecord{
			ID: "r2", TenantID: "t1", UserID: "u1",
			ConsentType: types.ConsentTypeDataAccess,
			Granted:     false, CreatedAt: now,
		},
		AgentID: "a1",
	}))

	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeDataAccess))
	require.NoError(t, err)
	require.False(t, d.HasConsent)
	require.Equal(t, "agent_record", d.Source)
}

func TestValidate_GeneralRecordFallback(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// Sin registro agente-scoped: cae al registro general del usuario.
	require.NoError(t, repo.AppendConsent(ctx, &core.ConsentRecord{
		ID: "g1", TenantID: "t1", UserID: "u1",
		ConsentType: types.ConsentTypeDataSharing,
		Granted:     true, CreatedAt: time.Now().UTC(),
	}))

	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeDataSharing))
	require.NoError(t, err)
	require.True(t, d.HasConsent)
	require.Equal(t, "general_record", d.Source)
}

func TestRecordGeneralConsent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.RecordGeneralConsent(ctx, RecordRequest{
		TenantID:    "t1",
		UserID:      "u1",
		ConsentType: types.ConsentTypeDataSharing,
		Granted:     true,
		Actor:       "u1",
	})
	require.NoError(t, err)
	require.True(t, rec.Granted)
	require.Equal(t, "api", rec.Source)

	// Sin registro agente-scoped, la cadena cae al registro general.
	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeDataSharing))
	require.NoError(t, err)
	require.True(t, d.HasConsent)
	require.Equal(t, "general_record", d.Source)

	// Un revoke posterior gana por ser más reciente.
	time.Sleep(time.Millisecond)
	_, err = svc.RecordGeneralConsent(ctx, RecordRequest{
		TenantID:    "t1",
		UserID:      "u1",
		ConsentType: types.ConsentTypeDataSharing,
		Granted:     false,
		Actor:       "u1",
	})
	require.NoError(t, err)

	d, err = svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeDataSharing))
	require.NoError(t, err)
	require.False(t, d.HasConsent)
	require.Equal(t, "general_record", d.Source)
}

func TestRecordGeneralConsent_InvalidInputs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordGeneralConsent(ctx, RecordRequest{UserID: "u1", ConsentType: types.ConsentTypeDataAccess})
	require.ErrorIs(t, err, ErrMissingTenant)

	_, err = svc.RecordGeneralConsent(ctx, RecordRequest{TenantID: "t1", ConsentType: types.ConsentTypeDataAccess})
	require.ErrorIs(t, err, ErrMissingUser)

	_, err = svc.RecordGeneralConsent(ctx, RecordRequest{TenantID: "t1", UserID: "u1", ConsentType: "bogus"})
	require.ErrorIs(t, err, ErrInvalidConsentType)
}

func TestValidate_InvalidInputs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := validateReq(types.ConsentTypeDataAccess)
	req.TenantID = ""
	_, err := svc.ValidateAgentConsent(ctx, req)
	require.ErrorIs(t, err, ErrMissingTenant)

	req = validateReq("definitely_not_a_type")
	_, err = svc.ValidateAgentConsent(ctx, req)
	require.ErrorIs(t, err, ErrInvalidConsentType)
}

func TestGrantThenValidate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.GrantAgentConsent(ctx, GrantRequest{
		TenantID: "t1", UserID: "u1", AgentID: "a1",
		ConsentType: types.ConsentTypeDataAccess,
		Actor:       "u1",
	})
	require.NoError(t, err)
	require.True(t, rec.Granted)
	require.Equal(t, "api", rec.Source)

	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeDataAccess))
	require.NoError(t, err)
	require.True(t, d.HasConsent)
	require.Equal(t, "agent_record", d.Source)
}

func TestRevokeAllConsents_BlocksAgent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, ct := range []types.ConsentType{types.ConsentTypeDataAccess, types.ConsentTypeDataSharing} {
		_, err := svc.GrantAgentConsent(ctx, GrantRequest{
			TenantID: "t1", UserID: "u1", AgentID: "a1",
			ConsentType: ct, Actor: "u1",
		})
		require.NoError(t, err)
	}

	require.NoError(t, svc.RevokeAllConsents(ctx, "t1", "u1", "a1", "u1"))

	// Todo consentimiento vigente quedó revocado...
	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeDataAccess))
	require.NoError(t, err)
	require.False(t, d.HasConsent)
	require.Equal(t, "blocked_agent", d.Source)

	// ...y el agente bloqueado no puede recibir nuevos grants.
	_, err = svc.GrantAgentConsent(ctx, GrantRequest{
		TenantID: "t1", UserID: "u1", AgentID: "a1",
		ConsentType: types.ConsentTypeDataAccess, Actor: "u1",
	})
	require.ErrorIs(t, err, ErrAgentBlocked)

	prefs, err := svc.GetPreferences(ctx, "t1", "u1")
	require.NoError(t, err)
	require.Contains(t, prefs.BlockedAgents, "a1")
	require.NotContains(t, prefs.TrustedAgents, "a1")
}

func TestGetPreferences_EmptyDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	prefs, err := svc.GetPreferences(context.Background(), "t1", "nobody")
	require.NoError(t, err)
	require.Equal(t, "t1", prefs.TenantID)
	require.Equal(t, "nobody", prefs.UserID)
	require.False(t, prefs.AutoConsentLowRisk)
	require.Empty(t, prefs.TrustedAgents)
}

func TestRevokeEmergencyOverride(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ov, err := svc.GrantEmergencyOverride(ctx, EmergencyRequest{
		TenantID: "t1", AgentID: "a1", Reason: "drill", AuthorizedBy: "oncall",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeEmergencyOverride(ctx, "t1", ov.ID, "oncall"))

	d, err := svc.ValidateAgentConsent(ctx, validateReq(types.ConsentTypeDataAccess))
	require.NoError(t, err)
	require.False(t, d.HasConsent)
	require.Equal(t, "default_deny", d.Source)

	require.ErrorIs(t, svc.RevokeEmergencyOverride(ctx, "t1", "nope", "oncall"), ErrOverrideUnknown)
}
