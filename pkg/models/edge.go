package models

import "time"

// EdgeType tags a directed edge between two work items. Dependency types
// impose ordering or blocking constraints; relationship types organize items
// without constraining the schedule.
type EdgeType string

const (
	// Dependency edge types.

	// EdgeBlocks: the target cannot reach Done while the source is not Done.
	EdgeBlocks EdgeType = "blocks"
	// EdgeDependsOn: the source depends on the target; the source cannot
	// reach Done while the target is not Done.
	EdgeDependsOn EdgeType = "depends_on"
	// EdgeFollows: the source is scheduled after the target.
	EdgeFollows EdgeType = "follows"
	// EdgePrecedes: the source is scheduled before the target.
	EdgePrecedes EdgeType = "precedes"
	// EdgeConflictsWith: the two items should not be worked simultaneously.
	// Advisory only; it never gates transitions.
	EdgeConflictsWith EdgeType = "conflicts_with"

	// Relationship edge types.

	// EdgeParentChild: the source is the parent of the target. A node has at
	// most one parent, and a parent cannot reach Done while any child is not
	// Done.
	EdgeParentChild EdgeType = "parent_child"
	// EdgeDuplicate: the source is a duplicate of the target (the canonical
	// item). A duplicate cannot be independently completed.
	EdgeDuplicate EdgeType = "duplicate"
	// EdgeRelated: free-form association, no constraints.
	EdgeRelated EdgeType = "related"
)

// AllEdgeTypes lists every edge type.
var AllEdgeTypes = []EdgeType{
	EdgeBlocks, EdgeDependsOn, EdgeFollows, EdgePrecedes, EdgeConflictsWith,
	EdgeParentChild, EdgeDuplicate, EdgeRelated,
}

// SchedulingEdgeTypes lists the edge types that impose ordering constraints
// and therefore participate in the acyclicity invariant and in critical-path
// analysis.
var SchedulingEdgeTypes = []EdgeType{EdgeBlocks, EdgeDependsOn, EdgeFollows, EdgePrecedes}

// IsValid reports whether the edge type is one of the known tags.
func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeBlocks, EdgeDependsOn, EdgeFollows, EdgePrecedes, EdgeConflictsWith,
		EdgeParentChild, EdgeDuplicate, EdgeRelated:
		return true
	}
	return false
}

// IsScheduling reports whether the edge type imposes an ordering constraint.
func (t EdgeType) IsScheduling() bool {
	switch t {
	case EdgeBlocks, EdgeDependsOn, EdgeFollows, EdgePrecedes:
		return true
	}
	return false
}

// Edge is a directed, typed connection between two work items.
type Edge struct {
	Source       string    `yaml:"source" json:"source"`
	Target       string    `yaml:"target" json:"target"`
	Type         EdgeType  `yaml:"type" json:"type"`
	CrossProject bool      `yaml:"cross_project,omitempty" json:"cross_project,omitempty"`
	CreatedBy    string    `yaml:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
}
