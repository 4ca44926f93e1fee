package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/workgraph-dev/workgraph/internal/graph"
	"github.com/workgraph-dev/workgraph/internal/observability"
	"github.com/workgraph-dev/workgraph/internal/storage"
	"github.com/workgraph-dev/workgraph/pkg/models"
)

// Engine is the single entry point external callers use to create and
// transition work items, manage dependency edges, and run graph-derived
// reports. It coordinates the store, the graph, and the validator so state
// changes and edge changes never drift apart.
//
// Mutating operations are serialized per project: the project lock is held
// for the whole logical operation, including the cycle-detection traversal,
// so two concurrent edge insertions can never both pass the cycle check.
// Analytics queries run against a clone of the graph and do not block
// writers.
type Engine struct {
	cfg       *EngineConfig
	store     storage.WorkItemStore
	deps      *graph.Graph
	validator *TransitionValidator
	notifier  observability.Notifier
	now       func() time.Time

	// graphMu guards the shared edge set across projects: exclusive for
	// mutation, shared for clone/reads.
	graphMu sync.RWMutex

	mu       sync.Mutex
	projects map[string]*sync.Mutex
	lastPath map[string][]string
}

// NewEngine wires an engine from its collaborators. A nil notifier disables
// event emission.
func NewEngine(cfg *EngineConfig, store storage.WorkItemStore, deps *graph.Graph, validator *TransitionValidator, notifier observability.Notifier) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultEngineConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("engine requires a work item store")
	}
	if deps == nil {
		deps = graph.New()
	}
	if validator == nil {
		validator = NewTransitionValidator(cfg.Rules, cfg.Priorities)
	}
	return &Engine{
		cfg:       cfg,
		store:     store,
		deps:      deps,
		validator: validator,
		notifier:  notifier,
		now:       time.Now,
		projects:  make(map[string]*sync.Mutex),
		lastPath:  make(map[string][]string),
	}, nil
}

// projectLock returns the mutex serializing mutations for one project.
func (e *Engine) projectLock(project string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.projects[project]
	if !ok {
		l = &sync.Mutex{}
		e.projects[project] = l
	}
	return l
}

// lockProjects acquires the locks for the given projects in lexicographic
// order, so cross-project operations can never deadlock against each other.
// It returns the unlock function.
func (e *Engine) lockProjects(a, b string) func() {
	if a == b {
		l := e.projectLock(a)
		l.Lock()
		return l.Unlock
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	l1, l2 := e.projectLock(first), e.projectLock(second)
	l1.Lock()
	l2.Lock()
	return func() {
		l2.Unlock()
		l1.Unlock()
	}
}

func (e *Engine) emit(event observability.Event) {
	if e.notifier != nil {
		e.notifier.Notify(event)
	}
}

// CreateRequest carries the parameters for creating a work item.
type CreateRequest struct {
	ID            string
	Project       string
	Title         string
	Type          models.WorkItemType
	Priority      models.Priority
	Assignee      string
	EstimateHours *float64
	Metadata      map[string]string
}

// CreateWorkItem validates the request against the configured enumerations
// and creates the item in the initial Found state. An empty ID is replaced
// with a generated one.
func (e *Engine) CreateWorkItem(req CreateRequest) (*models.WorkItem, error) {
	if req.Project == "" {
		return nil, &ValidationError{Field: "project", Message: "project is required"}
	}
	if req.Title == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	if !e.cfg.HasType(req.Type) {
		return nil, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown work item type %q", req.Type)}
	}
	if !e.cfg.HasPriority(req.Priority) {
		return nil, &ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", req.Priority)}
	}
	if err := models.ValidateMetadata(req.Metadata); err != nil {
		return nil, &ValidationError{Field: "metadata", Message: err.Error()}
	}
	if req.EstimateHours != nil && *req.EstimateHours < 0 {
		return nil, &ValidationError{Field: "estimate_hours", Message: "estimate cannot be negative"}
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := e.now()
	item := models.WorkItem{
		ID:            id,
		Project:       req.Project,
		Title:         req.Title,
		Type:          req.Type,
		Priority:      req.Priority,
		State:         models.StateFound,
		Assignee:      req.Assignee,
		EstimateHours: req.EstimateHours,
		Metadata:      req.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	unlock := e.lockProjects(req.Project, req.Project)
	defer unlock()

	if err := e.store.Create(item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetWorkItem returns the current record for one item.
func (e *Engine) GetWorkItem(id string) (*models.WorkItem, error) {
	return e.store.Get(id)
}

// History returns the immutable transition history of one item.
func (e *Engine) History(id string) ([]models.HistoryEntry, error) {
	if _, err := e.store.Get(id); err != nil {
		return nil, err
	}
	return e.store.History(id)
}

// RequestTransition moves a work item to the target state. If the target is
// Done or Released, the dependency and hierarchy gates are checked first:
// every Blocks/DependsOn blocker must be Done, every child must be Done, and
// a duplicate may not complete ahead of its canonical item. The validator
// then decides legality. On success the new state is committed together with
// an immutable history entry and a transition event is emitted. No edge
// mutation happens as part of a transition.
func (e *Engine) RequestTransition(id string, target models.WorkflowState, actor, comment string) (*models.WorkItem, error) {
	item, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}

	unlock := e.lockProjects(item.Project, item.Project)
	defer unlock()

	// Reload inside the lock; the state may have moved since the first read.
	item, err = e.store.Get(id)
	if err != nil {
		return nil, err
	}

	if err := e.checkTransition(item, target); err != nil {
		return nil, err
	}

	from := item.State
	now := e.now()
	item.State = target
	item.UpdatedAt = now
	if err := e.store.Update(*item); err != nil {
		return nil, err
	}
	entry := models.HistoryEntry{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		FromState: from,
		ToState:   target,
		Actor:     actor,
		Comment:   comment,
		Timestamp: now,
	}
	if err := e.store.AppendHistory(entry); err != nil {
		return nil, err
	}

	e.emit(observability.TransitionOccurred(item.ID, from, target, actor, now))
	return item, nil
}

// checkTransition runs the completion gates and the validator for one
// candidate transition. Pure with respect to the engine's state.
func (e *Engine) checkTransition(item *models.WorkItem, target models.WorkflowState) error {
	if target == models.StateDone || target == models.StateReleased {
		if err := e.completionGate(item, target); err != nil {
			return err
		}
	}
	return e.validator.Validate(item, target)
}

// completionGate rejects Done/Released transitions while blocking
// dependencies, unfinished children, or an unfinished canonical item stand
// in the way.
func (e *Engine) completionGate(item *models.WorkItem, target models.WorkflowState) error {
	e.graphMu.RLock()
	blockers := e.deps.Blockers(item.ID)
	children := e.deps.Children(item.ID)
	canonical, isDuplicate := e.deps.DuplicateOf(item.ID)
	e.graphMu.RUnlock()

	var unresolved []string
	for _, b := range blockers {
		other, err := e.store.Get(b)
		if err != nil {
			return err
		}
		if !isComplete(other.State) {
			unresolved = append(unresolved, b)
		}
	}
	if len(unresolved) > 0 {
		return &BlockedTransitionError{
			ItemID:   item.ID,
			To:       target,
			Blocking: unresolved,
			Reason:   "unresolved blocking dependencies",
		}
	}

	var open []string
	for _, c := range children {
		child, err := e.store.Get(c)
		if err != nil {
			return err
		}
		if !isComplete(child.State) {
			open = append(open, c)
		}
	}
	if len(open) > 0 {
		return &BlockedTransitionError{
			ItemID:   item.ID,
			To:       target,
			Blocking: open,
			Reason:   "children are not done",
		}
	}

	if isDuplicate {
		orig, err := e.store.Get(canonical)
		if err != nil {
			return err
		}
		if !isComplete(orig.State) {
			return &BlockedTransitionError{
				ItemID:   item.ID,
				To:       target,
				Blocking: []string{canonical},
				Reason:   "duplicates cannot be completed ahead of their canonical item",
			}
		}
	}
	return nil
}

func isComplete(s models.WorkflowState) bool {
	return s == models.StateDone || s == models.StateReleased
}

// AvailableTransitions returns the states the item can legally move to right
// now, including dependency and hierarchy gates.
func (e *Engine) AvailableTransitions(id string) ([]models.WorkflowState, error) {
	item, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	candidates := StaticTargets(item.State)
	if bypassAllowed(item, models.StateInProgress) && !StaticAllowed(item.State, models.StateInProgress) && item.State != models.StateInProgress {
		candidates = append(candidates, models.StateInProgress)
	}
	var legal []models.WorkflowState
	for _, target := range candidates {
		if e.checkTransition(item, target) == nil {
			legal = append(legal, target)
		}
	}
	return legal, nil
}

// DependencyOptions carries the optional parameters of AddDependency.
type DependencyOptions struct {
	Actor string
	// CrossProject must be set to link items from two different projects.
	CrossProject bool
}

// AddDependency inserts a typed edge between two existing work items,
// re-validating the graph invariants at commit time. A rejected cycle is
// reported with its full path and emitted as a cycle.rejected event; the
// graph is left unchanged.
func (e *Engine) AddDependency(source, target string, t models.EdgeType, opts DependencyOptions) error {
	src, err := e.store.Get(source)
	if err != nil {
		return err
	}
	dst, err := e.store.Get(target)
	if err != nil {
		return err
	}

	unlock := e.lockProjects(src.Project, dst.Project)
	defer unlock()

	// Reload inside the lock; either endpoint may have been removed since
	// the first read, and an edge must never outlive its items.
	src, err = e.store.Get(source)
	if err != nil {
		return err
	}
	dst, err = e.store.Get(target)
	if err != nil {
		return err
	}

	crossProject := src.Project != dst.Project
	if crossProject && !opts.CrossProject {
		return &ValidationError{
			Field:   "target",
			Message: fmt.Sprintf("items %s and %s belong to different projects; cross-project edges must be explicit", source, target),
		}
	}

	now := e.now()
	edge := models.Edge{
		Source:       source,
		Target:       target,
		Type:         t,
		CrossProject: crossProject,
		CreatedBy:    opts.Actor,
		CreatedAt:    now,
	}

	e.graphMu.Lock()
	err = e.deps.AddEdge(edge)
	e.graphMu.Unlock()

	var cycleErr *graph.CycleError
	if errors.As(err, &cycleErr) {
		e.emit(observability.CycleRejected(edge, cycleErr.Path, now))
	}
	return err
}

// RemoveDependency deletes a typed edge between two work items.
func (e *Engine) RemoveDependency(source, target string, t models.EdgeType) error {
	src, err := e.store.Get(source)
	if err != nil {
		return err
	}
	dst, err := e.store.Get(target)
	if err != nil {
		return err
	}

	unlock := e.lockProjects(src.Project, dst.Project)
	defer unlock()

	// Reload inside the lock, same as AddDependency.
	if _, err := e.store.Get(source); err != nil {
		return err
	}
	if _, err := e.store.Get(target); err != nil {
		return err
	}

	e.graphMu.Lock()
	defer e.graphMu.Unlock()
	return e.deps.RemoveEdge(source, target, t)
}

// Dependencies returns every edge touching the given item.
func (e *Engine) Dependencies(id string) ([]models.Edge, error) {
	if _, err := e.store.Get(id); err != nil {
		return nil, err
	}
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()
	return e.deps.EdgesOf(id), nil
}

// UpdateMetadata merges the given updates into the item's metadata. An empty
// value removes the key. The merged map must stay within the metadata
// bounds.
func (e *Engine) UpdateMetadata(id string, updates map[string]string) (*models.WorkItem, error) {
	item, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}

	unlock := e.lockProjects(item.Project, item.Project)
	defer unlock()

	item, err = e.store.Get(id)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(item.Metadata)+len(updates))
	for k, v := range item.Metadata {
		merged[k] = v
	}
	for k, v := range updates {
		if v == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	if err := models.ValidateMetadata(merged); err != nil {
		return nil, &ValidationError{Field: "metadata", Message: err.Error()}
	}

	item.Metadata = merged
	item.UpdatedAt = e.now()
	if err := e.store.Update(*item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetBlocked attaches the blocked annotation to an item in any state.
func (e *Engine) SetBlocked(id, reason string) (*models.WorkItem, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "a blocked flag requires a reason"}
	}
	item, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}

	unlock := e.lockProjects(item.Project, item.Project)
	defer unlock()

	item, err = e.store.Get(id)
	if err != nil {
		return nil, err
	}
	now := e.now()
	item.Blocked = &models.BlockedFlag{Reason: reason, Since: now}
	item.UpdatedAt = now
	if err := e.store.Update(*item); err != nil {
		return nil, err
	}
	return item, nil
}

// ClearBlocked removes the blocked annotation.
func (e *Engine) ClearBlocked(id string) (*models.WorkItem, error) {
	item, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}

	unlock := e.lockProjects(item.Project, item.Project)
	defer unlock()

	item, err = e.store.Get(id)
	if err != nil {
		return nil, err
	}
	item.Blocked = nil
	item.UpdatedAt = e.now()
	if err := e.store.Update(*item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveWorkItem deletes a work item. While edges reference the item the
// removal is rejected unless cascade is set, in which case the edges are
// detached first.
func (e *Engine) RemoveWorkItem(id string, cascade bool) error {
	item, err := e.store.Get(id)
	if err != nil {
		return err
	}

	unlock := e.lockProjects(item.Project, item.Project)
	defer unlock()

	e.graphMu.Lock()
	defer e.graphMu.Unlock()

	if e.deps.HasEdges(id) {
		if !cascade {
			return &ValidationError{
				Field:   "id",
				Message: fmt.Sprintf("work item %s is referenced by edges; detach them or request cascading removal", id),
			}
		}
		e.deps.DetachAll(id)
	}
	return e.store.Remove(id)
}

// analyzerFor clones the graph under a shared lock and returns an analyzer
// over the clone, plus the project's items. Reports therefore see a
// consistent snapshot without blocking writers for their whole runtime.
func (e *Engine) analyzerFor(project string) (*graph.Analyzer, []models.WorkItem, error) {
	items, err := e.store.List(project)
	if err != nil {
		return nil, nil, err
	}
	e.graphMu.RLock()
	clone := e.deps.Clone()
	e.graphMu.RUnlock()
	return graph.NewAnalyzer(clone, e.cfg.DefaultDuration), items, nil
}

// GetCriticalPath computes the critical path for a project. When the path
// differs from the previously computed one, a criticalpath.changed event is
// emitted.
func (e *Engine) GetCriticalPath(project string) (*graph.CriticalPath, error) {
	analyzer, items, err := e.analyzerFor(project)
	if err != nil {
		return nil, err
	}
	cp, err := analyzer.ComputeCriticalPath(items)
	if err != nil {
		return nil, err
	}

	path := cp.Path()
	e.mu.Lock()
	changed := !equalPaths(e.lastPath[project], path)
	if changed {
		e.lastPath[project] = path
	}
	e.mu.Unlock()
	if changed {
		e.emit(observability.CriticalPathChanged(project, path, e.now()))
	}
	return cp, nil
}

// GetImpact simulates delaying one item and reports the propagated effect on
// its project.
func (e *Engine) GetImpact(id string, delay float64) (*graph.ImpactReport, error) {
	item, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	analyzer, items, err := e.analyzerFor(item.Project)
	if err != nil {
		return nil, err
	}
	return analyzer.Impact(items, id, delay)
}

// GetParallelizableSets returns groups of project items with no mutual
// ordering constraint.
func (e *Engine) GetParallelizableSets(project string) ([][]string, error) {
	analyzer, items, err := e.analyzerFor(project)
	if err != nil {
		return nil, err
	}
	return analyzer.ParallelizableSets(items)
}

// GetBottlenecks returns the critical-path items that are currently stalled.
func (e *Engine) GetBottlenecks(project string) ([]string, error) {
	analyzer, items, err := e.analyzerFor(project)
	if err != nil {
		return nil, err
	}
	return analyzer.Bottlenecks(items)
}

func equalPaths(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
