package compliance

// rule es una entrada de la tabla de reglas de un adapter: predicado
// sobre el descriptor + hallazgo que produce cuando aplica.
type rule struct {
	name     string
	severity Severity
	message  string
	applies  func(op OperationDescriptor) bool
}

// gdprRules es la tabla de chequeos GDPR. El orden no importa: se evalúan
// todas y el verdict sale de la peor severidad encontrada.
var gdprRules = []rule{
	{
		name:     "lawful_basis",
		severity: SeverityCritical,
		message:  "personal data processing requires a legal basis or explicit user consent (art. 6)",
		applies: func(op OperationDescriptor) bool {
			return touchesPersonalData(op) && !op.HasLegalBasis && !op.HasUserConsent
		},
	},
	{
		name:     "special_categories",
		severity: SeverityCritical,
		message:  "special-category data requires explicit consent (art. 9)",
		applies: func(op OperationDescriptor) bool {
			if op.HasUserConsent {
				return false
			}
			for _, c := range op.DataCategories {
				if sensitiveCategory(c) {
					return true
				}
			}
			return false
		},
	},
	{
		name:     "cross_border_transfer",
		severity: SeverityWarning,
		message:  "cross-border transfer needs an adequacy decision or safeguards (ch. V)",
		applies: func(op OperationDescriptor) bool {
			return touchesPersonalData(op) && op.CrossBorder
		},
	},
	{
		name:     "storage_limitation",
		severity: SeverityWarning,
		message:  "retention beyond 365 days needs a documented justification (art. 5.1.e)",
		applies: func(op OperationDescriptor) bool {
			return touchesPersonalData(op) && op.RetentionDays > 365
		},
	},
	{
		name:     "right_to_erasure",
		severity: SeverityCritical,
		message:  "stored personal data must support erasure on request (art. 17)",
		applies: func(op OperationDescriptor) bool {
			return touchesPersonalData(op) && op.RetentionDays > 0 && !op.SupportsErasure
		},
	},
	{
		name:     "data_portability",
		severity: SeverityInfo,
		message:  "consider supporting data portability for stored personal data (art. 20)",
		applies: func(op OperationDescriptor) bool {
			return touchesPersonalData(op) && op.RetentionDays > 0 && !op.SupportsPortation
		},
	},
}

// aiActRules es la tabla de chequeos del EU AI Act.
var aiActRules = []rule{
	{
		name:     "unacceptable_risk",
		severity: SeverityCritical,
		message:  "unacceptable-risk AI practices are prohibited (art. 5)",
		applies: func(op OperationDescriptor) bool {
			return op.RiskTier == "unacceptable"
		},
	},
	{
		name:     "human_oversight",
		severity: SeverityCritical,
		message:  "high-risk automated decisions require human oversight (art. 14)",
		applies: func(op OperationDescriptor) bool {
			return op.RiskTier == "high" && op.AutomatedDecision && !op.HumanOversight
		},
	},
	{
		name:     "transparency",
		severity: SeverityWarning,
		message:  "AI interaction must be disclosed to the user (art. 52)",
		applies: func(op OperationDescriptor) bool {
			return (op.RiskTier == "limited" || op.RiskTier == "high") && !op.DisclosesAIUse
		},
	},
	{
		name:     "sensitive_data_in_model",
		severity: SeverityWarning,
		message:  "high-risk systems processing sensitive categories need data governance (art. 10)",
		applies: func(op OperationDescriptor) bool {
			if op.RiskTier != "high" {
				return false
			}
			for _, c := range op.DataCategories {
				if sensitiveCategory(c) {
					return true
				}
			}
			return false
		},
	},
	{
		name:     "unknown_risk_tier",
		severity: SeverityWarning,
		message:  "risk tier not classified; classification is required before deployment",
		applies: func(op OperationDescriptor) bool {
			switch op.RiskTier {
			case "minimal", "limited", "high", "unacceptable":
				return false
			}
			return op.AutomatedDecision
		},
	},
}

func touchesPersonalData(op OperationDescriptor) bool {
	return len(op.DataCategories) > 0
}

// runRules evalúa la tabla completa y deriva el verdict de la peor
// severidad: critical => non_compliant, warning => needs_review,
// info o nada => compliant.
func runRules(table []rule, op OperationDescriptor) (Verdict, []Finding) {
	var findings []Finding
	verdict := VerdictCompliant
	for _, r := range table {
		if !r.applies(op) {
			continue
		}
		findings = append(findings, Finding{Rule: r.name, Severity: r.severity, Message: r.message})
		switch r.severity {
		case SeverityCritical:
			verdict = VerdictNonCompliant
		case SeverityWarning:
			if verdict != VerdictNonCompliant {
				verdict = VerdictNeedsReview
			}
		}
	}
	return verdict, findings
}
