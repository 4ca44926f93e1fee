package graph

import (
	"fmt"
	"strings"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

// CycleError reports that an edge insertion would close a cycle in the
// scheduling subgraph. Path holds the full would-be cycle, starting and
// ending at the same item, for diagnostic reporting.
type CycleError struct {
	Edge models.Edge
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("edge %s -[%s]-> %s would create a cycle: %s",
		e.Edge.Source, e.Edge.Type, e.Edge.Target, strings.Join(e.Path, " -> "))
}

// DuplicateParentError reports an attempt to give a node a second parent.
type DuplicateParentError struct {
	Child           string
	ExistingParent  string
	AttemptedParent string
}

func (e *DuplicateParentError) Error() string {
	return fmt.Sprintf("item %s already has parent %s; cannot add parent %s",
		e.Child, e.ExistingParent, e.AttemptedParent)
}

// EdgeNotFoundError reports a removal of an edge that does not exist.
type EdgeNotFoundError struct {
	Source string
	Target string
	Type   models.EdgeType
}

func (e *EdgeNotFoundError) Error() string {
	return fmt.Sprintf("edge %s -[%s]-> %s not found", e.Source, e.Type, e.Target)
}

// EdgeExistsError reports an insertion of an edge that is already present.
type EdgeExistsError struct {
	Source string
	Target string
	Type   models.EdgeType
}

func (e *EdgeExistsError) Error() string {
	return fmt.Sprintf("edge %s -[%s]-> %s already exists", e.Source, e.Type, e.Target)
}
