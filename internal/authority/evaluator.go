package authority

import (
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/cogmesh/internal/domain/types"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// matchAction reporta si el pattern del scope cubre la acción solicitada.
// Acepta match exacto, wildcard total "*" y prefijo "segmento/*".
func matchAction(pattern, action string) bool {
	if pattern == "*" {
		return true
	}
	if pattern == action {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(action, prefix)
	}
	return false
}

func matchAny(patterns []string, action string) bool {
	for _, p := range patterns {
		if matchAction(p, action) {
			return true
		}
	}
	return false
}

// evaluate aplica los checks ordenados del evaluador de autoridad sobre un
// scope efectivo ya resuelto. El scope es un snapshot inmutable: evaluate
// no lo modifica.
//
// Orden de checks:
//  1. lista de acciones (denied gana; luego allow-list con wildcards)
//  2. política por categoría de datos (no listada => denied, salvo
//     categorías sensibles que rutean a requires_consent)
//  3. techo de consumo de recursos (exceso => denied)
//  4. techo de presupuesto (exceso => requires_consent, nunca denied)
func evaluate(sc *core.AuthorityScope, source string, req core.ValidateAuthorityRequest, now time.Time) core.AuthorityDecision {
	deny := func(reason string) core.AuthorityDecision {
		return core.AuthorityDecision{
			Outcome:     types.OutcomeDenied,
			Reason:      reason,
			ScopeSource: source,
			EvaluatedAt: now,
		}
	}
	needsConsent := func(t types.ConsentType, ctx map[string]string) core.AuthorityDecision {
		return core.AuthorityDecision{
			Outcome:     types.OutcomeRequiresConsent,
			ConsentType: t,
			Context:     ctx,
			ScopeSource: source,
			EvaluatedAt: now,
		}
	}

	// 1. Acciones
	if matchAny(sc.DeniedActions, req.Action) {
		return deny(fmt.Sprintf("action %q is explicitly denied", req.Action))
	}
	if !matchAny(sc.AllowedActions, req.Action) {
		return deny(fmt.Sprintf("action %q is not in the allowed list", req.Action))
	}

	// 1b. Recursos (allow-list opcional: vacía = sin restricción)
	if req.Resource != "" && len(sc.AllowedResources) > 0 && !matchAny(sc.AllowedResources, req.Resource) {
		return deny(fmt.Sprintf("resource %q is not in the allowed list", req.Resource))
	}

	// 2. Categorías de datos
	for _, cat := range req.DataCategories {
		if _, listed := sc.DataPolicies[cat]; listed {
			continue
		}
		if types.DataCategory(cat).IsSensitive() {
			// Las categorías sensibles no se deniegan de plano:
			// piden consentimiento del usuario.
			return needsConsent(types.ConsentTypeSensitiveData, map[string]string{
				"data_category": cat,
				"action":        req.Action,
			})
		}
		return deny(fmt.Sprintf("data category %q is not covered by scope policy", cat))
	}

	// 3. Techo de recursos
	if sc.MaxResourceUnits > 0 && req.ResourceUnits > sc.MaxResourceUnits {
		return deny(fmt.Sprintf("resource consumption %.2f exceeds ceiling %.2f",
			req.ResourceUnits, sc.MaxResourceUnits))
	}

	// 4. Presupuesto: exceder NUNCA deniega, rutea a consentimiento.
	if sc.MaxBudget >= 0 && req.EstimatedCost > sc.MaxBudget {
		return needsConsent(types.ConsentTypeBudgetOverrun, map[string]string{
			"estimated_cost": fmt.Sprintf("%.2f", req.EstimatedCost),
			"max_budget":     fmt.Sprintf("%.2f", sc.MaxBudget),
			"action":         req.Action,
		})
	}

	return core.AuthorityDecision{
		Outcome:     types.OutcomeAuthorized,
		ScopeSource: source,
		EvaluatedAt: now,
	}
}
