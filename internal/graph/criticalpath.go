package graph

import (
	"fmt"
	"sort"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

// PathEntry holds the scheduling window computed for one item by the
// critical path method.
type PathEntry struct {
	ItemID         string  `json:"item_id"`
	EarliestStart  float64 `json:"earliest_start"`
	EarliestFinish float64 `json:"earliest_finish"`
	LatestStart    float64 `json:"latest_start"`
	LatestFinish   float64 `json:"latest_finish"`
	Slack          float64 `json:"slack"`
	Duration       float64 `json:"duration"`
}

// CriticalPath is the result of a critical path computation: the zero-slack
// chain in scheduling order, the windows for every item in scope, and the
// minimum project completion time.
type CriticalPath struct {
	Entries       []PathEntry          `json:"entries"`
	All           map[string]PathEntry `json:"all"`
	TotalDuration float64              `json:"total_duration"`
}

// Path returns the critical-path item identifiers in order.
func (cp *CriticalPath) Path() []string {
	ids := make([]string, len(cp.Entries))
	for i, e := range cp.Entries {
		ids[i] = e.ItemID
	}
	return ids
}

// ImpactReport describes how a delay on one item propagates through the
// project schedule.
type ImpactReport struct {
	ItemID          string             `json:"item_id"`
	Delay           float64            `json:"delay"`
	CompletionDelta float64            `json:"completion_delta"`
	// Shifted maps each affected item to how far its earliest start moves.
	Shifted map[string]float64 `json:"shifted,omitempty"`
}

// Analyzer computes critical paths, delay impact, and parallelizable work
// sets over a dependency graph. It reads the graph it was constructed with;
// callers wanting snapshot consistency hand it a Clone.
type Analyzer struct {
	g *Graph
	// defaultDuration substitutes for missing estimates so the computation
	// stays total.
	defaultDuration float64
}

// NewAnalyzer creates an Analyzer over the given graph. defaultDuration is
// used for items without an estimate; non-positive values fall back to 1.
func NewAnalyzer(g *Graph, defaultDuration float64) *Analyzer {
	if defaultDuration <= 0 {
		defaultDuration = 1
	}
	return &Analyzer{g: g, defaultDuration: defaultDuration}
}

const slackEpsilon = 1e-9

// ComputeCriticalPath runs the critical path method over the scheduling
// subgraph restricted to the given items. An empty scope yields an empty
// path with zero total duration, not an error. A cycle in the scheduling
// subgraph (possible only through external corruption, the graph invariant
// forbids it) is returned as an error.
func (a *Analyzer) ComputeCriticalPath(items []models.WorkItem) (*CriticalPath, error) {
	durations := a.durations(items)
	order, adj, err := a.topoOrder(items)
	if err != nil {
		return nil, err
	}

	preds := invert(adj)

	// Forward pass: earliest start is the max earliest finish of the
	// predecessors along the longest incoming chain.
	es := make(map[string]float64, len(order))
	ef := make(map[string]float64, len(order))
	var total float64
	for _, n := range order {
		for _, p := range preds[n] {
			if ef[p] > es[n] {
				es[n] = ef[p]
			}
		}
		ef[n] = es[n] + durations[n]
		if ef[n] > total {
			total = ef[n]
		}
	}

	// Backward pass from the terminal nodes.
	lf := make(map[string]float64, len(order))
	ls := make(map[string]float64, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		lf[n] = total
		for _, s := range adj[n] {
			if ls[s] < lf[n] {
				lf[n] = ls[s]
			}
		}
		ls[n] = lf[n] - durations[n]
	}

	cp := &CriticalPath{All: make(map[string]PathEntry, len(order)), TotalDuration: total}
	for _, n := range order {
		entry := PathEntry{
			ItemID:         n,
			EarliestStart:  es[n],
			EarliestFinish: ef[n],
			LatestStart:    ls[n],
			LatestFinish:   lf[n],
			Slack:          ls[n] - es[n],
			Duration:       durations[n],
		}
		cp.All[n] = entry
		if entry.Slack < slackEpsilon {
			cp.Entries = append(cp.Entries, entry)
		}
	}
	sort.Slice(cp.Entries, func(i, j int) bool {
		if cp.Entries[i].EarliestStart != cp.Entries[j].EarliestStart {
			return cp.Entries[i].EarliestStart < cp.Entries[j].EarliestStart
		}
		return cp.Entries[i].ItemID < cp.Entries[j].ItemID
	})
	return cp, nil
}

// Impact simulates increasing one item's duration by delay and reports the
// change in project completion time plus every item whose earliest start
// shifts. Items with sufficient float absorb the delay and report nothing.
func (a *Analyzer) Impact(items []models.WorkItem, itemID string, delay float64) (*ImpactReport, error) {
	if delay < 0 {
		return nil, fmt.Errorf("delay cannot be negative")
	}
	found := false
	for _, it := range items {
		if it.ID == itemID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("item %s not in project scope", itemID)
	}

	order, adj, err := a.topoOrder(items)
	if err != nil {
		return nil, err
	}
	preds := invert(adj)
	base := a.durations(items)

	delayed := make(map[string]float64, len(base))
	for k, v := range base {
		delayed[k] = v
	}
	delayed[itemID] += delay

	esBefore, totalBefore := forwardPass(order, preds, base)
	esAfter, totalAfter := forwardPass(order, preds, delayed)

	report := &ImpactReport{
		ItemID:          itemID,
		Delay:           delay,
		CompletionDelta: totalAfter - totalBefore,
		Shifted:         make(map[string]float64),
	}
	for _, n := range order {
		if shift := esAfter[n] - esBefore[n]; shift > slackEpsilon {
			report.Shifted[n] = shift
		}
	}
	return report, nil
}

// ParallelizableSets partitions the items into longest-path depth levels of
// the scheduling subgraph. Items within one set share no ordering constraint,
// direct or transitive, and can be worked in parallel. Sets are returned in
// depth order; item identifiers within a set are sorted.
func (a *Analyzer) ParallelizableSets(items []models.WorkItem) ([][]string, error) {
	order, adj, err := a.topoOrder(items)
	if err != nil {
		return nil, err
	}
	preds := invert(adj)

	depth := make(map[string]int, len(order))
	maxDepth := -1
	for _, n := range order {
		for _, p := range preds[n] {
			if depth[p]+1 > depth[n] {
				depth[n] = depth[p] + 1
			}
		}
		if depth[n] > maxDepth {
			maxDepth = depth[n]
		}
	}

	if maxDepth < 0 {
		return nil, nil
	}
	sets := make([][]string, maxDepth+1)
	for _, n := range order {
		sets[depth[n]] = append(sets[depth[n]], n)
	}
	for _, set := range sets {
		sort.Strings(set)
	}
	return sets, nil
}

// Bottlenecks returns the critical-path items that are currently stalled:
// flagged blocked, or waiting on a blocker that has not reached Done.
func (a *Analyzer) Bottlenecks(items []models.WorkItem) ([]string, error) {
	cp, err := a.ComputeCriticalPath(items)
	if err != nil {
		return nil, err
	}
	states := make(map[string]models.WorkflowState, len(items))
	blockedFlag := make(map[string]bool, len(items))
	for _, it := range items {
		states[it.ID] = it.State
		blockedFlag[it.ID] = it.Blocked != nil
	}

	var stalled []string
	for _, entry := range cp.Entries {
		if states[entry.ItemID] == models.StateDone || states[entry.ItemID] == models.StateReleased {
			continue
		}
		if blockedFlag[entry.ItemID] {
			stalled = append(stalled, entry.ItemID)
			continue
		}
		for _, b := range a.g.Blockers(entry.ItemID) {
			if s, ok := states[b]; ok && s != models.StateDone && s != models.StateReleased {
				stalled = append(stalled, entry.ItemID)
				break
			}
		}
	}
	return stalled, nil
}

// durations resolves each item's duration, substituting the default for
// missing estimates.
func (a *Analyzer) durations(items []models.WorkItem) map[string]float64 {
	durations := make(map[string]float64, len(items))
	for _, it := range items {
		if it.EstimateHours != nil {
			durations[it.ID] = *it.EstimateHours
		} else {
			durations[it.ID] = a.defaultDuration
		}
	}
	return durations
}

// topoOrder returns a topological order of the items over the normalized
// scheduling adjacency (Kahn's algorithm) plus the adjacency itself.
func (a *Analyzer) topoOrder(items []models.WorkItem) ([]string, map[string][]string, error) {
	nodes := make([]string, 0, len(items))
	for _, it := range items {
		nodes = append(nodes, it.ID)
	}
	sort.Strings(nodes)
	adj := a.g.SchedulingAdjacency(nodes)

	indegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		indegree[n] += 0
	}
	for _, succs := range adj {
		for _, s := range succs {
			indegree[s]++
		}
	}

	var queue []string
	for _, n := range nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, s := range adj[n] {
			indegree[s]--
			if indegree[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if len(order) != len(nodes) {
		return nil, nil, fmt.Errorf("scheduling subgraph contains a cycle; graph state is corrupt")
	}
	return order, adj, nil
}

// forwardPass computes earliest starts and the total completion time for the
// given durations.
func forwardPass(order []string, preds map[string][]string, durations map[string]float64) (map[string]float64, float64) {
	es := make(map[string]float64, len(order))
	var total float64
	for _, n := range order {
		for _, p := range preds[n] {
			if f := es[p] + durations[p]; f > es[n] {
				es[n] = f
			}
		}
		if f := es[n] + durations[n]; f > total {
			total = f
		}
	}
	return es, total
}

func invert(adj map[string][]string) map[string][]string {
	preds := make(map[string][]string, len(adj))
	for n, succs := range adj {
		for _, s := range succs {
			preds[s] = append(preds[s], n)
		}
	}
	return preds
}
