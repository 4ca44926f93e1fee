package core

import (
	"errors"
	"testing"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

func testItem(state models.WorkflowState) *models.WorkItem {
	return &models.WorkItem{
		ID:       "wi-1",
		Project:  "proj",
		Title:    "test item",
		Type:     models.TypeBug,
		Priority: models.PriorityMedium,
		State:    state,
	}
}

func newValidator(rules ...models.ValidationRule) *TransitionValidator {
	return NewTransitionValidator(rules, models.DefaultPriorities)
}

func TestStaticTransitionsExhaustive(t *testing.T) {
	allowed := map[[2]models.WorkflowState]bool{
		{models.StateFound, models.StateTriaged}:       true,
		{models.StateTriaged, models.StateToDo}:        true,
		{models.StateToDo, models.StateInProgress}:     true,
		{models.StateInProgress, models.StateInTest}:   true,
		{models.StateInTest, models.StateDone}:         true,
		{models.StateInTest, models.StateInProgress}:   true, // the sole loop
		{models.StateDone, models.StateReleased}:       true,
	}

	v := newValidator()
	for _, from := range models.AllStates {
		for _, to := range models.AllStates {
			err := v.Validate(testItem(from), to)
			if allowed[[2]models.WorkflowState{from, to}] {
				if err != nil {
					t.Errorf("Validate(%s -> %s) = %v, want allowed", from, to, err)
				}
				continue
			}
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Errorf("Validate(%s -> %s) = %v, want InvalidTransitionError", from, to, err)
			}
		}
	}
}

func TestValidateUnknownState(t *testing.T) {
	v := newValidator()
	err := v.Validate(testItem(models.StateFound), models.WorkflowState("bogus"))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for unknown state, got %v", err)
	}
}

func TestEmergencyBypass(t *testing.T) {
	// Found -> InProgress is not in the static graph.
	item := testItem(models.StateFound)
	v := newValidator()

	if err := v.Validate(item, models.StateInProgress); err == nil {
		t.Fatal("bypass granted without critical priority or approval")
	}

	item.Priority = models.PriorityCritical
	if err := v.Validate(item, models.StateInProgress); err == nil {
		t.Fatal("bypass granted without the approval marker")
	}

	item.Metadata = map[string]string{models.ApprovalEmergencyKey: "ops-lead"}
	if err := v.Validate(item, models.StateInProgress); err != nil {
		t.Fatalf("bypass rejected despite critical priority and approval: %v", err)
	}

	// The bypass only opens InProgress, never other states.
	if err := v.Validate(item, models.StateDone); err == nil {
		t.Fatal("bypass leaked to a non-InProgress target")
	}
}

func TestCustomRulesFirstFailureWins(t *testing.T) {
	rules := []models.ValidationRule{
		{
			Name:   "bugs-need-test-plan",
			Reason: "bugs entering test need a test plan",
			When: models.RuleCond{
				Types: []models.WorkItemType{models.TypeBug},
				To:    models.StateInTest,
			},
			Require: models.RuleCond{MetadataKey: "test_plan"},
		},
		{
			Name:   "second-rule",
			Reason: "should never be reached first",
			When: models.RuleCond{
				To: models.StateInTest,
			},
			Require: models.RuleCond{MetadataKey: "never_set"},
		},
	}
	v := newValidator(rules...)

	item := testItem(models.StateInProgress)
	err := v.Validate(item, models.StateInTest)
	var ruleErr *RuleFailedError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleFailedError, got %v", err)
	}
	if ruleErr.Rule != "bugs-need-test-plan" {
		t.Fatalf("first failing rule = %q, want bugs-need-test-plan (registration order)", ruleErr.Rule)
	}

	// Satisfying the first rule surfaces the second.
	item.Metadata = map[string]string{"test_plan": "TP-9"}
	err = v.Validate(item, models.StateInTest)
	if !errors.As(err, &ruleErr) || ruleErr.Rule != "second-rule" {
		t.Fatalf("expected second-rule failure, got %v", err)
	}
}

func TestCustomRuleScopedByTypeAndPriority(t *testing.T) {
	rules := []models.ValidationRule{
		{
			Name:   "critical-needs-reviewer",
			Reason: "critical items need a named reviewer before test",
			When: models.RuleCond{
				MinPriority: models.PriorityCritical,
				To:          models.StateInTest,
			},
			Require: models.RuleCond{MetadataKey: "reviewer"},
		},
	}
	v := newValidator(rules...)

	// Medium priority: rule does not match, transition is free.
	item := testItem(models.StateInProgress)
	if err := v.Validate(item, models.StateInTest); err != nil {
		t.Fatalf("rule applied outside its priority scope: %v", err)
	}

	// Critical priority without reviewer: rejected.
	item.Priority = models.PriorityCritical
	var ruleErr *RuleFailedError
	if err := v.Validate(item, models.StateInTest); !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleFailedError for critical item, got %v", err)
	}

	item.Metadata = map[string]string{"reviewer": "sam"}
	if err := v.Validate(item, models.StateInTest); err != nil {
		t.Fatalf("rule rejected despite reviewer set: %v", err)
	}
}

func TestCanTransitionContract(t *testing.T) {
	v := newValidator()
	ok, reason := v.CanTransition(testItem(models.StateFound), models.StateTriaged)
	if !ok || reason != "" {
		t.Fatalf("CanTransition(found -> triaged) = %v, %q", ok, reason)
	}
	ok, reason = v.CanTransition(testItem(models.StateFound), models.StateDone)
	if ok || reason == "" {
		t.Fatalf("CanTransition(found -> done) = %v, %q; want false with a reason", ok, reason)
	}
}
