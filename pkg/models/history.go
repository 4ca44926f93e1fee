package models

import "time"

// HistoryEntry records a single committed workflow transition. Entries are
// immutable and append-only.
type HistoryEntry struct {
	ID        string        `yaml:"id" json:"id"`
	ItemID    string        `yaml:"item_id" json:"item_id"`
	FromState WorkflowState `yaml:"from_state" json:"from_state"`
	ToState   WorkflowState `yaml:"to_state" json:"to_state"`
	Actor     string        `yaml:"actor" json:"actor"`
	Comment   string        `yaml:"comment,omitempty" json:"comment,omitempty"`
	Timestamp time.Time     `yaml:"timestamp" json:"timestamp"`
}

// Snapshot is the serializable form of one project's engine state: item
// records, the edge list, and the transition history. Restoring a snapshot
// reproduces an isomorphic graph.
type Snapshot struct {
	Version string         `yaml:"version" json:"version"`
	Project string         `yaml:"project" json:"project"`
	Items   []WorkItem     `yaml:"items" json:"items"`
	Edges   []Edge         `yaml:"edges" json:"edges"`
	History []HistoryEntry `yaml:"history,omitempty" json:"history,omitempty"`
}

// SnapshotVersion is the current snapshot schema version.
const SnapshotVersion = "1.0"
