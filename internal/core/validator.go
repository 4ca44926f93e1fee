package core

import "github.com/workgraph-dev/workgraph/pkg/models"

// TransitionValidator decides whether a work item may move to a requested
// state. It is pure: it inspects only the inputs it is given and has no side
// effects. Checks run in a deterministic order: the static state graph
// first (with the emergency bypass as its only escape hatch), then the
// custom rules in registration order.
type TransitionValidator struct {
	rules []models.ValidationRule
	rank  map[models.Priority]int
}

// NewTransitionValidator creates a validator with the given custom rules and
// the configured priority ordering (ascending urgency).
func NewTransitionValidator(rules []models.ValidationRule, priorities []models.Priority) *TransitionValidator {
	rank := make(map[models.Priority]int, len(priorities))
	for i, p := range priorities {
		rank[p] = i
	}
	return &TransitionValidator{rules: rules, rank: rank}
}

// Validate returns nil when the transition is legal, or the typed error
// describing the first failing check.
func (v *TransitionValidator) Validate(item *models.WorkItem, target models.WorkflowState) error {
	if !target.IsValid() {
		return &ValidationError{Field: "target", Message: "unknown workflow state " + string(target)}
	}
	if item.State == target {
		return &InvalidTransitionError{ItemID: item.ID, From: item.State, To: target}
	}
	if !StaticAllowed(item.State, target) && !bypassAllowed(item, target) {
		return &InvalidTransitionError{ItemID: item.ID, From: item.State, To: target}
	}

	ctx := ruleContext{item: item, from: item.State, to: target, rank: v.rank}
	if failed := evaluateRules(v.rules, ctx); failed != nil {
		reason := failed.Reason
		if reason == "" {
			reason = "required condition not met"
		}
		return &RuleFailedError{ItemID: item.ID, Rule: failed.Name, Reason: reason}
	}
	return nil
}

// CanTransition reports whether the transition is legal along with the
// failure reason for the first failing check.
func (v *TransitionValidator) CanTransition(item *models.WorkItem, target models.WorkflowState) (bool, string) {
	if err := v.Validate(item, target); err != nil {
		return false, err.Error()
	}
	return true, ""
}
