// Package cli implements the workgraph command line interface: a thin
// consumer of the engine for inspecting project snapshots. Presentation
// stays out of the core; every command loads a snapshot, asks the engine,
// and prints plain text.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/workgraph-dev/workgraph/internal"
	"github.com/workgraph-dev/workgraph/internal/storage"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "workgraph",
	Short: "Workflow and dependency graph engine for developer work items",
	Long: `workgraph tracks work items through a fixed workflow and maintains a typed
dependency graph between them. The CLI loads a project snapshot and answers
graph questions: critical path, delay impact, parallelizable work, and
consistency checks.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("workgraph %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadApp builds an app for the working directory and restores the snapshot
// at the given path into it.
func loadApp(snapshotPath string) (*internal.App, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("resolving working directory: %w", err)
	}
	app, err := internal.NewApp(cwd)
	if err != nil {
		return nil, "", err
	}
	snap, err := storage.LoadSnapshot(snapshotPath)
	if err != nil {
		_ = app.Close()
		return nil, "", err
	}
	if err := app.Engine.RestoreSnapshot(snap); err != nil {
		_ = app.Close()
		return nil, "", err
	}
	return app, snap.Project, nil
}
