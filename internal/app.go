// Package internal provides the App struct that wires the workgraph engine's
// components together for the CLI and other embedding consumers.
package internal

import (
	"path/filepath"

	"github.com/workgraph-dev/workgraph/internal/core"
	"github.com/workgraph-dev/workgraph/internal/graph"
	"github.com/workgraph-dev/workgraph/internal/observability"
	"github.com/workgraph-dev/workgraph/internal/storage"
)

// App holds the wired engine and its collaborators.
type App struct {
	BasePath string

	Config   *core.EngineConfig
	Store    storage.WorkItemStore
	Graph    *graph.Graph
	Engine   *core.Engine
	EventLog observability.EventLog
}

// NewApp creates and wires all components. basePath is the directory holding
// .workgraph.yaml and the event log; every dependency is injected into the
// engine explicitly so callers can swap any piece in tests.
func NewApp(basePath string) (*App, error) {
	cfg, err := core.LoadEngineConfig(basePath)
	if err != nil {
		return nil, err
	}

	app := &App{
		BasePath: basePath,
		Config:   cfg,
		Store:    storage.NewMemoryStore(),
		Graph:    graph.New(),
	}

	var notifier observability.Notifier
	eventLogPath := filepath.Join(basePath, ".workgraph_events.jsonl")
	if log, err := observability.NewJSONLEventLog(eventLogPath); err == nil {
		// Event delivery is best effort; the engine works without a log.
		app.EventLog = log
		notifier = observability.LogNotifier(log)
	}

	validator := core.NewTransitionValidator(cfg.Rules, cfg.Priorities)
	engine, err := core.NewEngine(cfg, app.Store, app.Graph, validator, notifier)
	if err != nil {
		return nil, err
	}
	app.Engine = engine
	return app, nil
}

// Close releases resources held by the app.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}
