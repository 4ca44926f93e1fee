package graph

import (
	"math"
	"reflect"
	"testing"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

func item(id string, estimate float64) models.WorkItem {
	est := estimate
	return models.WorkItem{
		ID:            id,
		Project:       "proj",
		Title:         id,
		Type:          models.TypeTask,
		Priority:      models.PriorityMedium,
		State:         models.StateToDo,
		EstimateHours: &est,
	}
}

func itemNoEstimate(id string) models.WorkItem {
	it := item(id, 0)
	it.EstimateHours = nil
	return it
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCriticalPathEmptyProject(t *testing.T) {
	a := NewAnalyzer(New(), 1)
	cp, err := a.ComputeCriticalPath(nil)
	if err != nil {
		t.Fatalf("ComputeCriticalPath on empty scope failed: %v", err)
	}
	if len(cp.Entries) != 0 {
		t.Fatalf("empty project produced entries: %v", cp.Entries)
	}
	if cp.TotalDuration != 0 {
		t.Fatalf("empty project total duration = %v, want 0", cp.TotalDuration)
	}
}

func TestCriticalPathLinearChain(t *testing.T) {
	g := New()
	mustAdd(t, g, edge("a", "b", models.EdgeBlocks))
	mustAdd(t, g, edge("b", "c", models.EdgeBlocks))

	items := []models.WorkItem{item("a", 2), item("b", 3), item("c", 4)}
	cp, err := NewAnalyzer(g, 1).ComputeCriticalPath(items)
	if err != nil {
		t.Fatalf("ComputeCriticalPath failed: %v", err)
	}

	if got, want := cp.Path(), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("critical path = %v, want %v", got, want)
	}
	if !almostEqual(cp.TotalDuration, 9) {
		t.Fatalf("total duration = %v, want 9", cp.TotalDuration)
	}

	b := cp.All["b"]
	if !almostEqual(b.EarliestStart, 2) || !almostEqual(b.LatestFinish, 5) {
		t.Fatalf("window for b = %+v, want start 2 finish 5", b)
	}
}

func TestCriticalPathDiamondSlack(t *testing.T) {
	// a -> b -> d is the long arm (2+3+4 = 9); a -> c -> d has float.
	g := New()
	mustAdd(t, g, edge("a", "b", models.EdgeBlocks))
	mustAdd(t, g, edge("a", "c", models.EdgeBlocks))
	mustAdd(t, g, edge("b", "d", models.EdgeBlocks))
	mustAdd(t, g, edge("c", "d", models.EdgeBlocks))

	items := []models.WorkItem{item("a", 2), item("b", 3), item("c", 1), item("d", 4)}
	cp, err := NewAnalyzer(g, 1).ComputeCriticalPath(items)
	if err != nil {
		t.Fatalf("ComputeCriticalPath failed: %v", err)
	}

	if got, want := cp.Path(), []string{"a", "b", "d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("critical path = %v, want %v", got, want)
	}
	if c := cp.All["c"]; !almostEqual(c.Slack, 2) {
		t.Fatalf("slack for c = %v, want 2", c.Slack)
	}
}

func TestCriticalPathDefaultDuration(t *testing.T) {
	g := New()
	mustAdd(t, g, edge("a", "b", models.EdgeBlocks))

	items := []models.WorkItem{itemNoEstimate("a"), itemNoEstimate("b")}
	cp, err := NewAnalyzer(g, 5).ComputeCriticalPath(items)
	if err != nil {
		t.Fatalf("ComputeCriticalPath failed: %v", err)
	}
	if !almostEqual(cp.TotalDuration, 10) {
		t.Fatalf("total duration with default 5 = %v, want 10", cp.TotalDuration)
	}
}

func TestCriticalPathIsolatedItems(t *testing.T) {
	// No constrained edges: every item starts at zero and the longest one
	// sets the completion time.
	items := []models.WorkItem{item("a", 2), item("b", 7), item("c", 4)}
	cp, err := NewAnalyzer(New(), 1).ComputeCriticalPath(items)
	if err != nil {
		t.Fatalf("ComputeCriticalPath failed: %v", err)
	}
	if !almostEqual(cp.TotalDuration, 7) {
		t.Fatalf("total duration = %v, want 7", cp.TotalDuration)
	}
	for _, e := range cp.All {
		if !almostEqual(e.EarliestStart, 0) {
			t.Fatalf("isolated item %s has earliest start %v", e.ItemID, e.EarliestStart)
		}
	}
}

func TestImpactOnCriticalItem(t *testing.T) {
	g := New()
	mustAdd(t, g, edge("a", "b", models.EdgeBlocks))
	mustAdd(t, g, edge("b", "c", models.EdgeBlocks))

	items := []models.WorkItem{item("a", 2), item("b", 3), item("c", 4)}
	report, err := NewAnalyzer(g, 1).Impact(items, "b", 2.5)
	if err != nil {
		t.Fatalf("Impact failed: %v", err)
	}
	if !almostEqual(report.CompletionDelta, 2.5) {
		t.Fatalf("completion delta = %v, want 2.5", report.CompletionDelta)
	}
	if shift, ok := report.Shifted["c"]; !ok || !almostEqual(shift, 2.5) {
		t.Fatalf("shift for c = %v (present %v), want 2.5", shift, ok)
	}
	if _, ok := report.Shifted["a"]; ok {
		t.Fatal("upstream item a reported as shifted")
	}
}

func TestImpactAbsorbedByFloat(t *testing.T) {
	// c has 2 units of float on the short arm of the diamond; a delay of 1
	// must not move project completion.
	g := New()
	mustAdd(t, g, edge("a", "b", models.EdgeBlocks))
	mustAdd(t, g, edge("a", "c", models.EdgeBlocks))
	mustAdd(t, g, edge("b", "d", models.EdgeBlocks))
	mustAdd(t, g, edge("c", "d", models.EdgeBlocks))

	items := []models.WorkItem{item("a", 2), item("b", 3), item("c", 1), item("d", 4)}
	report, err := NewAnalyzer(g, 1).Impact(items, "c", 1)
	if err != nil {
		t.Fatalf("Impact failed: %v", err)
	}
	if !almostEqual(report.CompletionDelta, 0) {
		t.Fatalf("completion delta = %v, want 0", report.CompletionDelta)
	}
	if len(report.Shifted) != 0 {
		t.Fatalf("items shifted despite sufficient float: %v", report.Shifted)
	}
}

func TestImpactUnknownItem(t *testing.T) {
	items := []models.WorkItem{item("a", 2)}
	if _, err := NewAnalyzer(New(), 1).Impact(items, "nope", 1); err == nil {
		t.Fatal("expected error for item outside the project scope")
	}
}

func TestParallelizableSets(t *testing.T) {
	g := New()
	mustAdd(t, g, edge("a", "b", models.EdgeBlocks))
	mustAdd(t, g, edge("a", "c", models.EdgeBlocks))
	mustAdd(t, g, edge("b", "d", models.EdgeBlocks))
	mustAdd(t, g, edge("c", "d", models.EdgeBlocks))

	items := []models.WorkItem{item("a", 1), item("b", 1), item("c", 1), item("d", 1)}
	sets, err := NewAnalyzer(g, 1).ParallelizableSets(items)
	if err != nil {
		t.Fatalf("ParallelizableSets failed: %v", err)
	}
	want := [][]string{{"a"}, {"b", "c"}, {"d"}}
	if !reflect.DeepEqual(sets, want) {
		t.Fatalf("ParallelizableSets = %v, want %v", sets, want)
	}
}

func TestBottlenecks(t *testing.T) {
	g := New()
	mustAdd(t, g, edge("a", "b", models.EdgeBlocks))

	a := item("a", 2)
	a.Blocked = &models.BlockedFlag{Reason: "waiting on vendor"}
	b := item("b", 3)

	stalled, err := NewAnalyzer(g, 1).Bottlenecks([]models.WorkItem{a, b})
	if err != nil {
		t.Fatalf("Bottlenecks failed: %v", err)
	}
	// a is flagged blocked; b waits on a, which is not done.
	if got, want := stalled, []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Bottlenecks = %v, want %v", got, want)
	}
}
