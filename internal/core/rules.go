package core

import "github.com/workgraph-dev/workgraph/pkg/models"

// ruleContext is the fixed attribute set rule conditions are evaluated
// against: the item and the requested transition pair.
type ruleContext struct {
	item *models.WorkItem
	from models.WorkflowState
	to   models.WorkflowState
	// rank orders priorities for MinPriority comparisons; built from the
	// configured priority list.
	rank map[models.Priority]int
}

// condMatches evaluates a declarative condition against the context. Empty
// fields match anything; every non-empty field must match.
func condMatches(c models.RuleCond, ctx ruleContext) bool {
	if len(c.Types) > 0 {
		found := false
		for _, t := range c.Types {
			if ctx.item.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.MinPriority != "" {
		min, ok := ctx.rank[c.MinPriority]
		if !ok {
			return false
		}
		have, ok := ctx.rank[ctx.item.Priority]
		if !ok || have < min {
			return false
		}
	}
	if c.From != "" && ctx.from != c.From {
		return false
	}
	if c.To != "" && ctx.to != c.To {
		return false
	}
	if c.MetadataKey != "" {
		v := ctx.item.Metadata[c.MetadataKey]
		if v == "" {
			return false
		}
		if c.MetadataValue != "" && v != c.MetadataValue {
			return false
		}
	}
	return true
}

// evaluateRules applies the rules in registration order: for every rule
// whose When condition matches the transition, the Require condition must
// hold. The first failing rule is returned.
func evaluateRules(rules []models.ValidationRule, ctx ruleContext) *models.ValidationRule {
	for i := range rules {
		rule := &rules[i]
		if !condMatches(rule.When, ctx) {
			continue
		}
		if !condMatches(rule.Require, ctx) {
			return rule
		}
	}
	return nil
}
