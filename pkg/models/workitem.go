// Package models defines the data model shared by the workgraph engine and
// its consumers: work items, workflow states, dependency and relationship
// edges, transition history, validation rules, and the snapshot schema.
package models

import (
	"fmt"
	"time"
)

// WorkItemType categorizes the kind of work an item represents. The built-in
// set can be extended through engine configuration.
type WorkItemType string

const (
	TypeFeature WorkItemType = "feature"
	TypeBug     WorkItemType = "bug"
	TypeChore   WorkItemType = "chore"
	TypeTask    WorkItemType = "task"
	TypeEpic    WorkItemType = "epic"
	TypeStory   WorkItemType = "story"
)

// DefaultTypes lists the built-in work item types.
var DefaultTypes = []WorkItemType{TypeFeature, TypeBug, TypeChore, TypeTask, TypeEpic, TypeStory}

// Priority represents the urgency level of a work item, ordered from
// PriorityLow (least urgent) to PriorityCritical (most urgent).
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DefaultPriorities lists the built-in priorities in ascending order.
var DefaultPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Metadata bounds. Keys and values beyond these limits are rejected rather
// than truncated.
const (
	MaxMetadataKeys     = 64
	MaxMetadataKeyLen   = 256
	MaxMetadataValueLen = 4096
)

// ApprovalEmergencyKey is the metadata key whose presence (with a non-empty
// value) marks admin approval for an emergency bypass transition.
const ApprovalEmergencyKey = "approval.emergency"

// BlockedFlag is an orthogonal annotation attachable to a work item in any
// state. It is not a workflow state: it records why and since when the item
// is stalled without moving it through the lifecycle.
type BlockedFlag struct {
	Reason string    `yaml:"reason" json:"reason"`
	Since  time.Time `yaml:"since" json:"since"`
}

// WorkItem represents a unit of trackable work. Records are owned by the
// WorkItemStore and mutated only through WorkflowEngine operations so that
// state changes and edge changes stay consistent with each other.
type WorkItem struct {
	ID            string            `yaml:"id" json:"id"`
	Project       string            `yaml:"project" json:"project"`
	Title         string            `yaml:"title" json:"title"`
	Type          WorkItemType      `yaml:"type" json:"type"`
	Priority      Priority          `yaml:"priority" json:"priority"`
	State         WorkflowState     `yaml:"state" json:"state"`
	Assignee      string            `yaml:"assignee,omitempty" json:"assignee,omitempty"`
	EstimateHours *float64          `yaml:"estimate_hours,omitempty" json:"estimate_hours,omitempty"`
	Metadata      map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Blocked       *BlockedFlag      `yaml:"blocked,omitempty" json:"blocked,omitempty"`
	CreatedAt     time.Time         `yaml:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `yaml:"updated_at" json:"updated_at"`
}

// Validate checks structural constraints on the item: identifier presence,
// a valid state, and metadata within bounds. Type and priority membership is
// checked against engine configuration, not here, because both enumerations
// are extensible.
func (w *WorkItem) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("work item id is required")
	}
	if w.Project == "" {
		return fmt.Errorf("work item %s: project is required", w.ID)
	}
	if !w.State.IsValid() {
		return fmt.Errorf("work item %s: invalid state %q", w.ID, w.State)
	}
	if w.EstimateHours != nil && *w.EstimateHours < 0 {
		return fmt.Errorf("work item %s: estimate cannot be negative", w.ID)
	}
	return ValidateMetadata(w.Metadata)
}

// ValidateMetadata checks the bounded-count and bounded-size constraints on a
// metadata map.
func ValidateMetadata(md map[string]string) error {
	if len(md) > MaxMetadataKeys {
		return fmt.Errorf("metadata has %d keys, maximum is %d", len(md), MaxMetadataKeys)
	}
	for k, v := range md {
		if k == "" {
			return fmt.Errorf("metadata key cannot be empty")
		}
		if len(k) > MaxMetadataKeyLen {
			return fmt.Errorf("metadata key %q exceeds %d bytes", k[:MaxMetadataKeyLen], MaxMetadataKeyLen)
		}
		if len(v) > MaxMetadataValueLen {
			return fmt.Errorf("metadata value for key %q exceeds %d bytes", k, MaxMetadataValueLen)
		}
	}
	return nil
}

// HasEmergencyApproval reports whether the item carries the admin approval
// marker required for an emergency bypass transition.
func (w *WorkItem) HasEmergencyApproval() bool {
	return w.Metadata[ApprovalEmergencyKey] != ""
}
