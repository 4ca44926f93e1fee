package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

func TestJSONLEventLogWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("NewJSONLEventLog failed: %v", err)
	}
	defer func() { _ = log.Close() }()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		TransitionOccurred("a", models.StateFound, models.StateTriaged, "alice", base),
		CycleRejected(models.Edge{Source: "b", Target: "a", Type: models.EdgeBlocks}, []string{"a", "b", "a"}, base.Add(time.Minute)),
		TransitionOccurred("b", models.StateFound, models.StateTriaged, "bob", base.Add(2*time.Minute)),
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	all, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Read returned %d events, want 3", len(all))
	}
	if all[0].Type != EventTransitionOccurred || all[0].Data["item"] != "a" {
		t.Fatalf("first event = %+v, want transition for item a", all[0])
	}

	transitions, err := log.Read(EventFilter{Type: EventTransitionOccurred})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(transitions) != 2 {
		t.Fatalf("type filter returned %d events, want 2", len(transitions))
	}

	warns, err := log.Read(EventFilter{Level: "WARN"})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(warns) != 1 || warns[0].Type != EventCycleRejected {
		t.Fatalf("level filter = %+v, want the one cycle rejection", warns)
	}

	since := base.Add(30 * time.Second)
	until := base.Add(90 * time.Second)
	window, err := log.Read(EventFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(window) != 1 || window[0].Type != EventCycleRejected {
		t.Fatalf("time window = %+v, want only the middle event", window)
	}
}

func TestJSONLEventLogSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("NewJSONLEventLog failed: %v", err)
	}
	defer func() { _ = log.Close() }()

	if err := log.Write(Event{Level: "INFO", Type: "test", Message: "ok"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening log for corruption: %v", err)
	}
	if _, err := f.WriteString("not json\n\n"); err != nil {
		t.Fatalf("appending garbage: %v", err)
	}
	_ = f.Close()
	if err := log.Write(Event{Level: "INFO", Type: "test", Message: "still ok"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	events, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Read returned %d events, want 2 with garbage skipped", len(events))
	}
}

func TestJSONLEventLogReadMissingFile(t *testing.T) {
	log := &jsonlEventLog{path: filepath.Join(t.TempDir(), "nothing.jsonl")}
	events, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("Read of missing file failed: %v", err)
	}
	if events != nil {
		t.Fatalf("Read of missing file = %+v, want nil", events)
	}
}

func TestMultiNotifierFansOut(t *testing.T) {
	var first, second Recorder
	multi := MultiNotifier{&first, &second}

	event := CriticalPathChanged("p", []string{"a", "b"}, time.Now())
	multi.Notify(event)

	for i, rec := range []*Recorder{&first, &second} {
		got := rec.Events()
		if len(got) != 1 || got[0].Type != EventCriticalPathChanged {
			t.Fatalf("recorder %d events = %+v, want one criticalpath.changed", i, got)
		}
	}
}

func TestLogNotifierWritesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("NewJSONLEventLog failed: %v", err)
	}
	defer func() { _ = log.Close() }()

	n := LogNotifier(log)
	n.Notify(TransitionOccurred("a", models.StateToDo, models.StateInProgress, "alice", time.Now()))

	events, err := log.Read(EventFilter{Type: EventTransitionOccurred})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(events) != 1 || events[0].Data["actor"] != "alice" {
		t.Fatalf("events = %+v, want the one notified transition", events)
	}
}
