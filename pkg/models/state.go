package models

// WorkflowState represents one of the fixed lifecycle stages a work item
// passes through, from initial discovery to release.
type WorkflowState string

const (
	StateFound      WorkflowState = "found"
	StateTriaged    WorkflowState = "triaged"
	StateToDo       WorkflowState = "to_do"
	StateInProgress WorkflowState = "in_progress"
	StateInTest     WorkflowState = "in_test"
	StateDone       WorkflowState = "done"
	StateReleased   WorkflowState = "released"
)

// AllStates lists every workflow state in lifecycle order.
var AllStates = []WorkflowState{
	StateFound,
	StateTriaged,
	StateToDo,
	StateInProgress,
	StateInTest,
	StateDone,
	StateReleased,
}

// IsValid reports whether the state is one of the fixed lifecycle stages.
func (s WorkflowState) IsValid() bool {
	switch s {
	case StateFound, StateTriaged, StateToDo, StateInProgress, StateInTest, StateDone, StateReleased:
		return true
	}
	return false
}

// IsTerminal reports whether the state ends the active lifecycle.
// Done items may still move to Released; Released items go nowhere.
func (s WorkflowState) IsTerminal() bool {
	return s == StateReleased
}
