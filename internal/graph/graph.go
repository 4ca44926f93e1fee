// Package graph maintains the directed, typed edge set between work items
// and provides the traversal queries the workflow engine is built on: cycle
// prevention, transitive closure, topological ordering, and critical-path
// analysis.
//
// A Graph is not safe for concurrent use; the engine serializes mutations
// per project and hands analytics queries a Clone.
package graph

import (
	"fmt"
	"sort"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

// Graph is a directed multigraph over work item identifiers with typed edges.
// The scheduling subgraph (Blocks, DependsOn, Follows, Precedes) is kept
// acyclic as an invariant: insertions that would close a cycle are rejected
// before commit.
type Graph struct {
	// out and in index edges by source and target respectively.
	out map[string][]models.Edge
	in  map[string][]models.Edge
	// parent tracks the single-parent forest invariant for ParentChild edges,
	// keyed by child.
	parent map[string]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		out:    make(map[string][]models.Edge),
		in:     make(map[string][]models.Edge),
		parent: make(map[string]string),
	}
}

// schedulingDirection normalizes an edge to "must happen before" order.
// Blocks and Precedes already point from the earlier item to the later one;
// DependsOn and Follows point the other way.
func schedulingDirection(e models.Edge) (from, to string) {
	switch e.Type {
	case models.EdgeDependsOn, models.EdgeFollows:
		return e.Target, e.Source
	default:
		return e.Source, e.Target
	}
}

// AddEdge inserts a typed edge. Scheduling edges are checked for cycles
// first: if the normalized edge would make its earlier endpoint reachable
// from its later endpoint, the insertion is rejected with a *CycleError
// carrying the full cycle path and the graph is left unchanged. ParentChild
// edges are checked against the single-parent invariant.
func (g *Graph) AddEdge(e models.Edge) error {
	if !e.Type.IsValid() {
		return fmt.Errorf("unknown edge type %q", e.Type)
	}
	if e.Source == "" || e.Target == "" {
		return fmt.Errorf("edge endpoints cannot be empty")
	}
	if e.Source == e.Target {
		return fmt.Errorf("edge %s -[%s]-> %s is a self-reference", e.Source, e.Type, e.Target)
	}
	if g.HasEdge(e.Source, e.Target, e.Type) {
		return &EdgeExistsError{Source: e.Source, Target: e.Target, Type: e.Type}
	}

	if e.Type.IsScheduling() {
		from, to := schedulingDirection(e)
		// If `from` is reachable from `to`, adding to->...->from plus the new
		// from->to ordering closes a cycle.
		if path := g.findPath(to, from, models.SchedulingEdgeTypes); path != nil {
			cycle := append([]string{from}, path...)
			return &CycleError{Edge: e, Path: cycle}
		}
	}

	if e.Type == models.EdgeParentChild {
		if existing, ok := g.parent[e.Target]; ok {
			return &DuplicateParentError{Child: e.Target, ExistingParent: existing, AttemptedParent: e.Source}
		}
		g.parent[e.Target] = e.Source
	}

	g.out[e.Source] = append(g.out[e.Source], e)
	g.in[e.Target] = append(g.in[e.Target], e)
	return nil
}

// RemoveEdge deletes the edge with the given endpoints and type, returning
// *EdgeNotFoundError if no such edge exists.
func (g *Graph) RemoveEdge(source, target string, t models.EdgeType) error {
	if !g.HasEdge(source, target, t) {
		return &EdgeNotFoundError{Source: source, Target: target, Type: t}
	}
	g.out[source] = removeEdge(g.out[source], source, target, t)
	g.in[target] = removeEdge(g.in[target], source, target, t)
	if t == models.EdgeParentChild && g.parent[target] == source {
		delete(g.parent, target)
	}
	return nil
}

func removeEdge(edges []models.Edge, source, target string, t models.EdgeType) []models.Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.Source == source && e.Target == target && e.Type == t {
			continue
		}
		out = append(out, e)
	}
	return out
}

// HasEdge reports whether an edge with the given endpoints and type exists.
func (g *Graph) HasEdge(source, target string, t models.EdgeType) bool {
	for _, e := range g.out[source] {
		if e.Target == target && e.Type == t {
			return true
		}
	}
	return false
}

// DetachAll removes every edge touching the given item and returns the
// removed edges. Used by cascading work item deletion.
func (g *Graph) DetachAll(id string) []models.Edge {
	var removed []models.Edge
	for _, e := range append([]models.Edge(nil), g.out[id]...) {
		_ = g.RemoveEdge(e.Source, e.Target, e.Type)
		removed = append(removed, e)
	}
	for _, e := range append([]models.Edge(nil), g.in[id]...) {
		_ = g.RemoveEdge(e.Source, e.Target, e.Type)
		removed = append(removed, e)
	}
	return removed
}

// HasEdges reports whether any edge references the given item.
func (g *Graph) HasEdges(id string) bool {
	return len(g.out[id]) > 0 || len(g.in[id]) > 0
}

// EdgesOf returns every edge touching the given item.
func (g *Graph) EdgesOf(id string) []models.Edge {
	edges := append([]models.Edge(nil), g.out[id]...)
	return append(edges, g.in[id]...)
}

// Edges returns all edges in a deterministic order, suitable for
// serialization into a snapshot.
func (g *Graph) Edges() []models.Edge {
	var edges []models.Edge
	for _, out := range g.out {
		edges = append(edges, out...)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Type < b.Type
	})
	return edges
}

// Ancestors returns the transitive set of items that reach the given item
// through edges of the given types (raw edge direction). Computed on demand;
// callers needing repeated queries should cache on their side.
func (g *Graph) Ancestors(id string, types []models.EdgeType) map[string]struct{} {
	return g.closure(id, types, g.in, func(e models.Edge) string { return e.Source })
}

// Descendants returns the transitive set of items reachable from the given
// item through edges of the given types (raw edge direction).
func (g *Graph) Descendants(id string, types []models.EdgeType) map[string]struct{} {
	return g.closure(id, types, g.out, func(e models.Edge) string { return e.Target })
}

func (g *Graph) closure(id string, types []models.EdgeType, index map[string][]models.Edge, next func(models.Edge) string) map[string]struct{} {
	allowed := typeSet(types)
	seen := make(map[string]struct{})
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range index[cur] {
			if _, ok := allowed[e.Type]; !ok {
				continue
			}
			n := next(e)
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			stack = append(stack, n)
		}
	}
	delete(seen, id)
	return seen
}

// findPath returns a path from -> ... -> to in the normalized scheduling
// subgraph restricted to the given edge types, or nil if `to` is not
// reachable. Depth-first, O(V+E).
func (g *Graph) findPath(from, to string, types []models.EdgeType) []string {
	if from == to {
		return []string{from}
	}
	allowed := typeSet(types)
	visited := map[string]struct{}{from: {}}
	var dfs func(cur string, path []string) []string
	dfs = func(cur string, path []string) []string {
		for _, n := range g.schedulingSuccessors(cur, allowed) {
			if _, ok := visited[n]; ok {
				continue
			}
			visited[n] = struct{}{}
			next := append(path, n)
			if n == to {
				return next
			}
			if found := dfs(n, next); found != nil {
				return found
			}
		}
		return nil
	}
	return dfs(from, []string{from})
}

// schedulingSuccessors returns the items ordered directly after cur in the
// normalized scheduling subgraph.
func (g *Graph) schedulingSuccessors(cur string, allowed map[models.EdgeType]struct{}) []string {
	var succ []string
	for _, e := range g.out[cur] {
		if _, ok := allowed[e.Type]; !ok {
			continue
		}
		if from, to := schedulingDirection(e); from == cur {
			succ = append(succ, to)
		}
	}
	for _, e := range g.in[cur] {
		if _, ok := allowed[e.Type]; !ok {
			continue
		}
		if from, to := schedulingDirection(e); from == cur {
			succ = append(succ, to)
		}
	}
	return succ
}

// SchedulingAdjacency returns the normalized "must happen before" adjacency
// over the given node set, including isolated nodes. Edges whose endpoints
// fall outside the node set are ignored.
func (g *Graph) SchedulingAdjacency(nodes []string) map[string][]string {
	inSet := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		inSet[n] = struct{}{}
	}
	allowed := typeSet(models.SchedulingEdgeTypes)
	adj := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		adj[n] = nil
		for _, s := range g.schedulingSuccessors(n, allowed) {
			if _, ok := inSet[s]; ok {
				adj[n] = append(adj[n], s)
			}
		}
		sort.Strings(adj[n])
	}
	return adj
}

// DetectCycles scans the subgraph restricted to the given edge types and
// returns every cycle found, each as a path of item identifiers. Used to
// validate a restored edge set; a non-empty result means the snapshot is
// corrupt.
func (g *Graph) DetectCycles(types []models.EdgeType) [][]string {
	allowed := typeSet(types)
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int)
	var cycles [][]string
	var stack []string

	var visit func(n string)
	visit = func(n string) {
		color[n] = grey
		stack = append(stack, n)
		for _, s := range g.schedulingSuccessors(n, allowed) {
			switch color[s] {
			case white:
				visit(s)
			case grey:
				// Found a back edge; slice the cycle out of the stack.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == s {
						cycle := append([]string(nil), stack[i:]...)
						cycles = append(cycles, append(cycle, s))
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}

	for _, n := range g.nodeList() {
		if color[n] == white {
			visit(n)
		}
	}
	return cycles
}

// Parent returns the parent of the given item in the ParentChild forest.
func (g *Graph) Parent(id string) (string, bool) {
	p, ok := g.parent[id]
	return p, ok
}

// Children returns the direct children of the given item.
func (g *Graph) Children(id string) []string {
	var children []string
	for _, e := range g.out[id] {
		if e.Type == models.EdgeParentChild {
			children = append(children, e.Target)
		}
	}
	sort.Strings(children)
	return children
}

// DuplicateOf returns the canonical item the given item duplicates, if any.
func (g *Graph) DuplicateOf(id string) (string, bool) {
	for _, e := range g.out[id] {
		if e.Type == models.EdgeDuplicate {
			return e.Target, true
		}
	}
	return "", false
}

// Conflicts returns the items connected to the given item by ConflictsWith
// edges in either direction.
func (g *Graph) Conflicts(id string) []string {
	var peers []string
	for _, e := range g.out[id] {
		if e.Type == models.EdgeConflictsWith {
			peers = append(peers, e.Target)
		}
	}
	for _, e := range g.in[id] {
		if e.Type == models.EdgeConflictsWith {
			peers = append(peers, e.Source)
		}
	}
	sort.Strings(peers)
	return peers
}

// Blockers returns the items that must be Done before the given item can
// reach Done: sources of incoming Blocks edges plus targets of outgoing
// DependsOn edges.
func (g *Graph) Blockers(id string) []string {
	var blockers []string
	for _, e := range g.in[id] {
		if e.Type == models.EdgeBlocks {
			blockers = append(blockers, e.Source)
		}
	}
	for _, e := range g.out[id] {
		if e.Type == models.EdgeDependsOn {
			blockers = append(blockers, e.Target)
		}
	}
	sort.Strings(blockers)
	return blockers
}

// Clone returns a deep copy of the graph. Analytics queries operate on a
// clone so they never block behind, or observe, a concurrent writer.
func (g *Graph) Clone() *Graph {
	c := New()
	for src, edges := range g.out {
		c.out[src] = append([]models.Edge(nil), edges...)
	}
	for dst, edges := range g.in {
		c.in[dst] = append([]models.Edge(nil), edges...)
	}
	for child, p := range g.parent {
		c.parent[child] = p
	}
	return c
}

func (g *Graph) nodeList() []string {
	set := make(map[string]struct{})
	for n, edges := range g.out {
		if len(edges) > 0 {
			set[n] = struct{}{}
		}
	}
	for n, edges := range g.in {
		if len(edges) > 0 {
			set[n] = struct{}{}
		}
	}
	nodes := make([]string, 0, len(set))
	for n := range set {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

func typeSet(types []models.EdgeType) map[models.EdgeType]struct{} {
	set := make(map[models.EdgeType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}
