package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/cogmesh/internal/audit"
	"github.com/dropDatabas3/cogmesh/internal/authority"
	"github.com/dropDatabas3/cogmesh/internal/compliance"
	"github.com/dropDatabas3/cogmesh/internal/consent"
	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	"github.com/dropDatabas3/cogmesh/internal/notify"
	"github.com/dropDatabas3/cogmesh/internal/resilience"
	"github.com/dropDatabas3/cogmesh/internal/store/adapters/memory"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

type fakeNotifier struct {
	sent []notify.Escalation
	err  error
}

func (f *fakeNotifier) NotifyEscalation(e notify.Escalation) error {
	f.sent = append(f.sent, e)
	return f.err
}

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Generate(context.Context, string, string) (string, error) {
	return f.response, f.err
}

type fixture struct {
	svc       Service
	authority authority.Service
	consent   consent.Service
	notifier  *fakeNotifier
	repo      *memory.Store
}

func newFixture(t *testing.T, llm *fakeLLM) *fixture {
	t.Helper()
	repo := memory.New()
	exec := resilience.New("decision-test", resilience.Options{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	trail := audit.NewTrail(repo)

	authSvc := authority.NewService(authority.Deps{Repo: repo, Exec: exec, Trail: trail})
	consentSvc := consent.NewService(consent.Deps{Repo: repo, Exec: exec, Trail: trail})
	complianceSvc := compliance.NewService(compliance.Deps{})
	notifier := &fakeNotifier{}

	deps := Deps{
		Authority:  authSvc,
		Consent:    consentSvc,
		Compliance: complianceSvc,
		Notifier:   notifier,
	}
	if llm != nil {
		deps.LLM = llm
	}
	return &fixture{
		svc:       NewService(deps),
		authority: authSvc,
		consent:   consentSvc,
		notifier:  notifier,
		repo:      repo,
	}
}

func (f *fixture) setScope(t *testing.T, sc core.AuthorityScope) {
	t.Helper()
	sc.TenantID = "t1"
	sc.AgentID = "a1"
	require.NoError(t, f.authority.SetAuthorityScope(context.Background(), &sc))
}

func decideReq() Request {
	return Request{
		TenantID: "t1",
		Authority: core.ValidateAuthorityRequest{
			AgentID: "a1",
			Action:  "query/read",
		},
	}
}

func TestDecide_RejectOnDeniedAuthority(t *testing.T) {
	f := newFixture(t, nil)

	req := decideReq()
	req.Authority.Action = "admin/delete" // fuera del scope mínimo

	res, err := f.svc.Decide(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, RecommendReject, res.Recommendation)
	require.Equal(t, types.OutcomeDenied, res.Authority.Outcome)
	require.Nil(t, res.Consent)
	require.Empty(t, res.Assessments)
}

func TestDecide_Proceed(t *testing.T) {
	f := newFixture(t, nil)
	f.setScope(t, core.AuthorityScope{
		AllowedActions: []string{"query/*"},
		MaxBudget:      -1,
	})

	res, err := f.svc.Decide(context.Background(), decideReq())
	require.NoError(t, err)
	require.Equal(t, RecommendProceed, res.Recommendation)
	require.Equal(t, types.OutcomeAuthorized, res.Authority.Outcome)
	require.Empty(t, f.notifier.sent)
}

func TestDecide_SeekConsentWithoutUser(t *testing.T) {
	f := newFixture(t, nil)
	f.setScope(t, core.AuthorityScope{
		AllowedActions: []string{"query/*"},
		MaxBudget:      10,
	})

	req := decideReq()
	req.Authority.EstimatedCost = 25 // excede presupuesto => requires_consent

	res, err := f.svc.Decide(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, RecommendSeekConsent, res.Recommendation)
	require.Equal(t, types.OutcomeRequiresConsent, res.Authority.Outcome)
	require.Contains(t, res.Reason, "no user in context")
}

func TestDecide_SeekConsentWhenDenied(t *testing.T) {
	f := newFixture(t, nil)
	f.setScope(t, core.AuthorityScope{
		AllowedActions: []string{"query/*"},
		MaxBudget:      10,
	})

	req := decideReq()
	req.UserID = "u1"
	req.Authority.EstimatedCost = 25

	res, err := f.svc.Decide(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, RecommendSeekConsent, res.Recommendation)
	require.NotNil(t, res.Consent)
	require.False(t, res.Consent.HasConsent)
	require.Equal(t, "default_deny", res.Consent.Source)
}

func TestDecide_ProceedWithConsent(t *testing.T) {
	f := newFixture(t, nil)
	f.setScope(t, core.AuthorityScope{
		AllowedActions: []string{"query/*"},
		MaxBudget:      10,
	})

	ctx := context.Background()
	require.NoError(t, f.consent.UpdatePreferences(ctx, &core.AgentConsentPreferences{
		TenantID:      "t1",
		UserID:        "u1",
		TrustedAgents: []string{"a1"},
	}))

	req := decideReq()
	req.UserID = "u1"
	req.Authority.EstimatedCost = 25

	res, err := f.svc.Decide(ctx, req)
	require.NoError(t, err)
	require.Equal(t, RecommendProceed, res.Recommendation)
	require.NotNil(t, res.Consent)
	require.True(t, res.Consent.HasConsent)
	require.Equal(t, "trusted_agent", res.Consent.Source)
}

func TestDecide_RejectOnComplianceViolation(t *testing.T) {
	f := newFixture(t, nil)
	f.setScope(t, core.AuthorityScope{
		AllowedActions:       []string{"query/*"},
		MaxBudget:            -1,
		ComplianceFrameworks: []string{"gdpr"},
	})

	req := decideReq()
	// Datos personales sin base legal ni consentimiento: violación crítica.
	req.Compliance = compliance.OperationDescriptor{
		Operation:      "customer/profile",
		DataCategories: []string{"sales"},
	}

	res, err := f.svc.Decide(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, RecommendReject, res.Recommendation)
	require.Contains(t, res.Reason, "compliance violation")
	require.Len(t, res.Assessments, 1)
	require.Equal(t, compliance.VerdictNonCompliant, res.Assessments[0].Verdict)
}

func TestDecide_EscalateNotifies(t *testing.T) {
	f := newFixture(t, nil)
	f.setScope(t, core.AuthorityScope{
		AllowedActions:       []string{"query/*"},
		MaxBudget:            -1,
		ComplianceFrameworks: []string{"gdpr"},
	})

	req := decideReq()
	// Transferencia cross-border con base legal: warning => needs_review.
	req.Compliance = compliance.OperationDescriptor{
		Operation:      "customer/export",
		DataCategories: []string{"sales"},
		HasLegalBasis:  true,
		CrossBorder:    true,
	}

	res, err := f.svc.Decide(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, RecommendEscalate, res.Recommendation)
	require.Contains(t, res.Reason, "compliance review required")

	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, "t1", f.notifier.sent[0].TenantID)
	require.Equal(t, "a1", f.notifier.sent[0].AgentID)
	require.Equal(t, string(RecommendEscalate), f.notifier.sent[0].Outcome)
}

func TestDecide_RationaleFromLLM(t *testing.T) {
	f := newFixture(t, &fakeLLM{response: "  The agent stayed within its scope.  "})
	f.setScope(t, core.AuthorityScope{
		AllowedActions: []string{"query/*"},
		MaxBudget:      -1,
	})

	req := decideReq()
	req.WantRationale = true

	res, err := f.svc.Decide(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, RecommendProceed, res.Recommendation)
	require.Equal(t, "The agent stayed within its scope.", res.Rationale)
}

func TestDecide_MissingTenant(t *testing.T) {
	f := newFixture(t, nil)
	req := decideReq()
	req.TenantID = ""
	_, err := f.svc.Decide(context.Background(), req)
	require.ErrorIs(t, err, ErrMissingTenant)
}
