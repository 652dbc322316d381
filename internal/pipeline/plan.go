package pipeline

import (
	"github.com/vyrodovalexey/avaxform/internal/config"
)

// ValidationPlan is the validation a rule asks for.
type ValidationPlan struct {
	Rules      []config.ValidationRule
	OnFail     config.OnFailPolicy
	StrictMode bool
}

// Enabled reports whether there is anything to validate.
func (p ValidationPlan) Enabled() bool {
	return len(p.Rules) > 0
}

// PlanValidation collects the inline rules of rule followed by the rules
// of its validator steps. The policy comes from the rule, else from the
// first validator step, else reject. Strict mode is on when the rule or
// any validator step turns it on.
func PlanValidation(rule *config.TransformationRule) ValidationPlan {
	plan := ValidationPlan{StrictMode: bool(rule.ValidationStrictMode)}
	plan.Rules = append(plan.Rules, rule.ValidationConfig...)

	policy := rule.ValidationOnFail
	firstValidator := true
	for _, step := range rule.PipelineConfig {
		if !step.IsValidator() {
			continue
		}
		plan.Rules = append(plan.Rules, step.Config.ValidationRules...)
		if firstValidator {
			if policy == "" {
				policy = step.Config.OnValidationFail
			}
			firstValidator = false
		}
		if step.Config.StrictMode {
			plan.StrictMode = true
		}
	}

	plan.OnFail = config.ParseOnFailPolicy(policy)
	return plan
}
