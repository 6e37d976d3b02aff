package authority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

func TestMatchAction(t *testing.T) {
	cases := []struct {
		pattern string
		action  string
		want    bool
	}{
		{"*", "anything/at/all", true},
		{"query/read", "query/read", true},
		{"query/read", "query/write", false},
		{"query/*", "query/read", true},
		{"query/*", "query/deep/read", true},
		{"query/*", "admin/read", false},
		{"query", "query/read", false},
		{"", "query/read", false},
	}
	for _, c := range cases {
		if got := matchAction(c.pattern, c.action); got != c.want {
			t.Errorf("matchAction(%q, %q) = %v, want %v", c.pattern, c.action, got, c.want)
		}
	}
}

func baseScope() *core.AuthorityScope {
	return &core.AuthorityScope{
		TenantID:         "t1",
		AgentID:          "a1",
		AllowedActions:   []string{"query/*", "report/generate"},
		DeniedActions:    []string{"query/export"},
		MaxResourceUnits: 100,
		MaxBudget:        50,
		DataPolicies:     map[string]string{"sales": "read"},
	}
}

func TestEvaluate_DeniedWinsOverAllowed(t *testing.T) {
	// query/export matchea query/* pero está denegado explícitamente.
	d := evaluate(baseScope(), "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/export",
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeDenied, d.Outcome)
	require.Contains(t, d.Reason, "explicitly denied")
}

func TestEvaluate_ActionNotAllowed(t *testing.T) {
	d := evaluate(baseScope(), "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "admin/delete",
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeDenied, d.Outcome)
}

func TestEvaluate_Authorized(t *testing.T) {
	d := evaluate(baseScope(), "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read",
		DataCategories: []string{"sales"},
		ResourceUnits:  10,
		EstimatedCost:  5,
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeAuthorized, d.Outcome)
	require.Equal(t, "configured", d.ScopeSource)
}

func TestEvaluate_ResourceAllowList(t *testing.T) {
	sc := baseScope()
	sc.AllowedResources = []string{"crm/*"}

	d := evaluate(sc, "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read", Resource: "billing/accounts",
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeDenied, d.Outcome)

	d = evaluate(sc, "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read", Resource: "crm/contacts",
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeAuthorized, d.Outcome)
}

func TestEvaluate_EmptyResourceListMeansNoRestriction(t *testing.T) {
	d := evaluate(baseScope(), "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read", Resource: "anywhere",
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeAuthorized, d.Outcome)
}

func TestEvaluate_SensitiveCategoryRequiresConsent(t *testing.T) {
	// pii no está en DataPolicies: al ser sensible pide consentimiento
	// en lugar de denegarse.
	d := evaluate(baseScope(), "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read",
		DataCategories: []string{"pii"},
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeRequiresConsent, d.Outcome)
	require.Equal(t, types.ConsentTypeSensitiveData, d.ConsentType)
	require.Equal(t, "pii", d.Context["data_category"])
}

func TestEvaluate_UnlistedCategoryDenied(t *testing.T) {
	d := evaluate(baseScope(), "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read",
		DataCategories: []string{"marketing"},
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeDenied, d.Outcome)
}

func TestEvaluate_ResourceCeilingDenies(t *testing.T) {
	d := evaluate(baseScope(), "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read",
		ResourceUnits: 101,
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeDenied, d.Outcome)
	require.Contains(t, d.Reason, "exceeds ceiling")
}

func TestEvaluate_BudgetOverrunRequiresConsentNeverDenies(t *testing.T) {
	d := evaluate(baseScope(), "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read",
		EstimatedCost: 51,
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeRequiresConsent, d.Outcome)
	require.Equal(t, types.ConsentTypeBudgetOverrun, d.ConsentType)
	require.Equal(t, "51.00", d.Context["estimated_cost"])
}

func TestEvaluate_ZeroBudgetGatesAnyCost(t *testing.T) {
	sc := baseScope()
	sc.MaxBudget = 0
	d := evaluate(sc, "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read",
		EstimatedCost: 0.01,
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeRequiresConsent, d.Outcome)
	require.Equal(t, types.ConsentTypeBudgetOverrun, d.ConsentType)
}

func TestEvaluate_NegativeBudgetIsUnlimited(t *testing.T) {
	sc := baseScope()
	sc.MaxBudget = -1
	d := evaluate(sc, "configured", core.ValidateAuthorityRequest{
		TenantID: "t1", AgentID: "a1", Action: "query/read",
		EstimatedCost: 1e9,
	}, time.Now().UTC())
	require.Equal(t, types.OutcomeAuthorized, d.Outcome)
}
