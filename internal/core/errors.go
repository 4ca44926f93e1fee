package core

import (
	"fmt"
	"strings"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

// InvalidTransitionError reports a transition the static workflow graph
// disallows.
type InvalidTransitionError struct {
	ItemID string
	From   models.WorkflowState
	To     models.WorkflowState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("item %s: transition %s -> %s is not allowed", e.ItemID, e.From, e.To)
}

// BlockedTransitionError reports a transition rejected because a dependency
// or hierarchy constraint is unmet. Blocking names the items standing in the
// way.
type BlockedTransitionError struct {
	ItemID   string
	To       models.WorkflowState
	Blocking []string
	Reason   string
}

func (e *BlockedTransitionError) Error() string {
	return fmt.Sprintf("item %s cannot move to %s: %s (blocked by %s)",
		e.ItemID, e.To, e.Reason, strings.Join(e.Blocking, ", "))
}

// RuleFailedError reports a transition rejected by a custom validation rule.
type RuleFailedError struct {
	ItemID string
	Rule   string
	Reason string
}

func (e *RuleFailedError) Error() string {
	return fmt.Sprintf("item %s: rule %q rejected the transition: %s", e.ItemID, e.Rule, e.Reason)
}

// ValidationError reports invalid input to an engine operation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
