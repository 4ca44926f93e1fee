package core

import (
	"errors"
	"fmt"

	"github.com/workgraph-dev/workgraph/internal/graph"
	"github.com/workgraph-dev/workgraph/pkg/models"
)

// ExportSnapshot serializes one project's engine state: its item records,
// every edge touching them (cross-project edges included), and the
// transition history.
func (e *Engine) ExportSnapshot(project string) (*models.Snapshot, error) {
	unlock := e.lockProjects(project, project)
	defer unlock()

	items, err := e.store.List(project)
	if err != nil {
		return nil, err
	}
	inScope := make(map[string]struct{}, len(items))
	for _, it := range items {
		inScope[it.ID] = struct{}{}
	}

	e.graphMu.RLock()
	all := e.deps.Edges()
	e.graphMu.RUnlock()

	var edges []models.Edge
	for _, edge := range all {
		_, srcIn := inScope[edge.Source]
		_, dstIn := inScope[edge.Target]
		if srcIn || dstIn {
			edges = append(edges, edge)
		}
	}

	history, err := e.store.History("")
	if err != nil {
		return nil, err
	}
	var scoped []models.HistoryEntry
	for _, entry := range history {
		if _, ok := inScope[entry.ItemID]; ok {
			scoped = append(scoped, entry)
		}
	}

	return &models.Snapshot{
		Version: models.SnapshotVersion,
		Project: project,
		Items:   items,
		Edges:   edges,
		History: scoped,
	}, nil
}

// RestoreSnapshot loads a previously exported snapshot into the engine.
// Every edge is re-validated against the graph invariants as it is added: a
// snapshot whose edge set already contains a cycle indicates external data
// corruption, and restoring that project is aborted rather than operating on
// a known-inconsistent graph. On any failure the items and edges added so
// far are unwound, so a failed restore leaves the engine as it was.
func (e *Engine) RestoreSnapshot(snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}

	unlock := e.lockProjects(snap.Project, snap.Project)
	defer unlock()

	var created []string
	var added []models.Edge
	rollback := func() {
		e.graphMu.Lock()
		for _, edge := range added {
			_ = e.deps.RemoveEdge(edge.Source, edge.Target, edge.Type)
		}
		e.graphMu.Unlock()
		for _, id := range created {
			_ = e.store.Remove(id)
		}
	}

	for _, item := range snap.Items {
		if err := e.store.Create(item); err != nil {
			rollback()
			return fmt.Errorf("restoring item %s: %w", item.ID, err)
		}
		created = append(created, item.ID)
	}

	for _, edge := range snap.Edges {
		e.graphMu.Lock()
		err := e.deps.AddEdge(edge)
		e.graphMu.Unlock()
		if err != nil {
			rollback()
			var cycleErr *graph.CycleError
			if errors.As(err, &cycleErr) {
				return fmt.Errorf("snapshot for project %q is corrupt, edge set contains a cycle (%w); refusing to load", snap.Project, err)
			}
			return fmt.Errorf("restoring edge %s -[%s]-> %s: %w", edge.Source, edge.Type, edge.Target, err)
		}
		added = append(added, edge)
	}

	for _, entry := range snap.History {
		if err := e.store.AppendHistory(entry); err != nil {
			rollback()
			return fmt.Errorf("restoring history: %w", err)
		}
	}
	return nil
}
