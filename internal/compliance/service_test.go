package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func descriptor() OperationDescriptor {
	return OperationDescriptor{
		TenantID:  "t1",
		AgentID:   "a1",
		Operation: "customer/analyze",
	}
}

func findingRules(a *Assessment) []string {
	out := make([]string, 0, len(a.Findings))
	for _, f := range a.Findings {
		out = append(out, f.Rule)
	}
	return out
}

func TestAssess_GDPR_Compliant(t *testing.T) {
	svc := NewService(Deps{})

	op := descriptor()
	op.DataCategories = []string{"sales"}
	op.HasLegalBasis = true

	a, err := svc.Assess(context.Background(), FrameworkGDPR, op)
	require.NoError(t, err)
	require.Equal(t, VerdictCompliant, a.Verdict)
	require.Empty(t, a.Findings)
}

func TestAssess_GDPR_NoLawfulBasis(t *testing.T) {
	svc := NewService(Deps{})

	op := descriptor()
	op.DataCategories = []string{"sales"}

	a, err := svc.Assess(context.Background(), FrameworkGDPR, op)
	require.NoError(t, err)
	require.Equal(t, VerdictNonCompliant, a.Verdict)
	require.Contains(t, findingRules(a), "lawful_basis")
}

func TestAssess_GDPR_SpecialCategories(t *testing.T) {
	svc := NewService(Deps{})

	op := descriptor()
	op.DataCategories = []string{"health"}
	op.HasLegalBasis = true

	a, err := svc.Assess(context.Background(), FrameworkGDPR, op)
	require.NoError(t, err)
	require.Equal(t, VerdictNonCompliant, a.Verdict)
	require.Contains(t, findingRules(a), "special_categories")

	// El consentimiento explícito del usuario levanta el hallazgo.
	op.HasUserConsent = true
	a, err = svc.Assess(context.Background(), FrameworkGDPR, op)
	require.NoError(t, err)
	require.NotContains(t, findingRules(a), "special_categories")
}

func TestAssess_GDPR_RetentionAndErasure(t *testing.T) {
	svc := NewService(Deps{})

	op := descriptor()
	op.DataCategories = []string{"sales"}
	op.HasLegalBasis = true
	op.RetentionDays = 400
	op.SupportsErasure = true
	op.SupportsPortation = true

	// Solo storage_limitation (warning): needs_review.
	a, err := svc.Assess(context.Background(), FrameworkGDPR, op)
	require.NoError(t, err)
	require.Equal(t, VerdictNeedsReview, a.Verdict)
	require.Equal(t, []string{"storage_limitation"}, findingRules(a))

	// Sin soporte de borrado el verdict escala a non_compliant.
	op.SupportsErasure = false
	a, err = svc.Assess(context.Background(), FrameworkGDPR, op)
	require.NoError(t, err)
	require.Equal(t, VerdictNonCompliant, a.Verdict)
	require.Contains(t, findingRules(a), "right_to_erasure")
}

func TestAssess_AIAct_UnacceptableRisk(t *testing.T) {
	svc := NewService(Deps{})

	op := descriptor()
	op.RiskTier = "unacceptable"
	op.DisclosesAIUse = true

	a, err := svc.Assess(context.Background(), FrameworkEUAIAct, op)
	require.NoError(t, err)
	require.Equal(t, VerdictNonCompliant, a.Verdict)
	require.Contains(t, findingRules(a), "unacceptable_risk")
}

func TestAssess_AIAct_HumanOversight(t *testing.T) {
	svc := NewService(Deps{})

	op := descriptor()
	op.RiskTier = "high"
	op.AutomatedDecision = true
	op.DisclosesAIUse = true

	a, err := svc.Assess(context.Background(), FrameworkEUAIAct, op)
	require.NoError(t, err)
	require.Equal(t, VerdictNonCompliant, a.Verdict)
	require.Contains(t, findingRules(a), "human_oversight")

	op.HumanOversight = true
	a, err = svc.Assess(context.Background(), FrameworkEUAIAct, op)
	require.NoError(t, err)
	require.Equal(t, VerdictCompliant, a.Verdict)
}

func TestAssess_AIAct_TransparencyAndUnknownTier(t *testing.T) {
	svc := NewService(Deps{})

	op := descriptor()
	op.RiskTier = "limited"

	a, err := svc.Assess(context.Background(), FrameworkEUAIAct, op)
	require.NoError(t, err)
	require.Equal(t, VerdictNeedsReview, a.Verdict)
	require.Contains(t, findingRules(a), "transparency")

	// Decisión automatizada sin tier clasificado: needs_review.
	op = descriptor()
	op.AutomatedDecision = true
	a, err = svc.Assess(context.Background(), FrameworkEUAIAct, op)
	require.NoError(t, err)
	require.Contains(t, findingRules(a), "unknown_risk_tier")
}

func TestAssessAll_DefaultsToBothFrameworks(t *testing.T) {
	svc := NewService(Deps{})

	out, err := svc.AssessAll(context.Background(), nil, descriptor())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, FrameworkGDPR, out[0].Framework)
	require.Equal(t, FrameworkEUAIAct, out[1].Framework)
}

func TestGetAssessment(t *testing.T) {
	svc := NewService(Deps{TTL: time.Minute})
	ctx := context.Background()

	a, err := svc.Assess(ctx, FrameworkGDPR, descriptor())
	require.NoError(t, err)

	got, err := svc.GetAssessment(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
	require.Equal(t, a.Verdict, got.Verdict)

	_, err = svc.GetAssessment(ctx, "missing")
	require.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestAssess_InvalidInputs(t *testing.T) {
	svc := NewService(Deps{})
	ctx := context.Background()

	op := descriptor()
	op.TenantID = ""
	_, err := svc.Assess(ctx, FrameworkGDPR, op)
	require.ErrorIs(t, err, ErrMissingTenant)

	op = descriptor()
	op.Operation = ""
	_, err = svc.Assess(ctx, FrameworkGDPR, op)
	require.ErrorIs(t, err, ErrMissingOperation)

	_, err = svc.Assess(ctx, Framework("sox"), descriptor())
	require.ErrorIs(t, err, ErrUnknownFramework)
}
