// Package observability defines the events the workflow engine emits for
// external subscribers (notification relays, webhook bridges) and an
// append-only JSONL event log implementation.
package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

// Event types emitted by the engine.
const (
	EventTransitionOccurred  = "transition.occurred"
	EventCycleRejected       = "cycle.rejected"
	EventCriticalPathChanged = "criticalpath.changed"
)

// Event represents a single observable event in the system.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// TransitionOccurred builds the event emitted after a committed transition.
func TransitionOccurred(itemID string, from, to models.WorkflowState, actor string, at time.Time) Event {
	return Event{
		Time:    at,
		Level:   "INFO",
		Type:    EventTransitionOccurred,
		Message: itemID + ": " + string(from) + " -> " + string(to),
		Data: map[string]any{
			"item":  itemID,
			"from":  string(from),
			"to":    string(to),
			"actor": actor,
		},
	}
}

// CycleRejected builds the event emitted when an edge insertion is rejected
// for closing a cycle.
func CycleRejected(edge models.Edge, cyclePath []string, at time.Time) Event {
	return Event{
		Time:    at,
		Level:   "WARN",
		Type:    EventCycleRejected,
		Message: "rejected " + edge.Source + " -[" + string(edge.Type) + "]-> " + edge.Target + ": cycle " + strings.Join(cyclePath, " -> "),
		Data: map[string]any{
			"source":     edge.Source,
			"target":     edge.Target,
			"edge_type":  string(edge.Type),
			"cycle_path": cyclePath,
		},
	}
}

// CriticalPathChanged builds the event emitted when a project's computed
// critical path differs from the previously reported one.
func CriticalPathChanged(project string, newPath []string, at time.Time) Event {
	return Event{
		Time:    at,
		Level:   "INFO",
		Type:    EventCriticalPathChanged,
		Message: "critical path for " + project + " changed: " + strings.Join(newPath, " -> "),
		Data: map[string]any{
			"project": project,
			"path":    newPath,
		},
	}
}

// Notifier receives engine events. Implementations must not block the
// engine; anything slow belongs behind a buffered relay owned by the caller.
type Notifier interface {
	Notify(event Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

// Notify calls the function.
func (f NotifierFunc) Notify(event Event) { f(event) }

// MultiNotifier fans an event out to several notifiers.
type MultiNotifier []Notifier

// Notify delivers the event to each registered notifier in order.
func (m MultiNotifier) Notify(event Event) {
	for _, n := range m {
		n.Notify(event)
	}
}

// Recorder is a Notifier that retains every event it receives. Useful for
// tests and for callers that batch-forward events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify appends the event.
func (r *Recorder) Notify(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
