// Package core contains the workflow engine: transition validation, the
// configurable rule set, and the orchestration that keeps state changes and
// graph changes consistent with each other.
package core

import "github.com/workgraph-dev/workgraph/pkg/models"

// staticTransitions is the fixed state graph. The primary sequence moves
// forward only; InTest -> InProgress is the sole permitted loop.
var staticTransitions = map[models.WorkflowState][]models.WorkflowState{
	models.StateFound:      {models.StateTriaged},
	models.StateTriaged:    {models.StateToDo},
	models.StateToDo:       {models.StateInProgress},
	models.StateInProgress: {models.StateInTest},
	models.StateInTest:     {models.StateDone, models.StateInProgress},
	models.StateDone:       {models.StateReleased},
	models.StateReleased:   nil,
}

// StaticAllowed reports whether the fixed state graph permits the move.
func StaticAllowed(from, to models.WorkflowState) bool {
	for _, s := range staticTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StaticTargets returns the states reachable from the given state through
// the fixed graph alone, in adjacency order.
func StaticTargets(from models.WorkflowState) []models.WorkflowState {
	return append([]models.WorkflowState(nil), staticTransitions[from]...)
}

// bypassAllowed reports whether the emergency bypass permits a move the
// static graph forbids: the target must be InProgress, the item critical,
// and an admin approval marker present in the metadata.
func bypassAllowed(item *models.WorkItem, to models.WorkflowState) bool {
	return to == models.StateInProgress &&
		item.Priority == models.PriorityCritical &&
		item.HasEmergencyApproval()
}
