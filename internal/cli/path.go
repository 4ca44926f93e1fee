package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var pathCmd = &cobra.Command{
	Use:   "path <snapshot.yaml>",
	Short: "Show the critical path of a project snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, project, err := loadApp(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = app.Close() }()

		cp, err := app.Engine.GetCriticalPath(project)
		if err != nil {
			return err
		}
		if len(cp.Entries) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "project %s: no items, total duration 0\n", project)
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "critical path for %s (total duration %.1f):\n", project, cp.TotalDuration)
		for _, e := range cp.Entries {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-24s start %6.1f  finish %6.1f\n", e.ItemID, e.EarliestStart, e.LatestFinish)
		}

		stalled, err := app.Engine.GetBottlenecks(project)
		if err != nil {
			return err
		}
		if len(stalled) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "stalled on the critical path: %s\n", strings.Join(stalled, ", "))
		}
		return nil
	},
}

var parallelCmd = &cobra.Command{
	Use:   "parallel <snapshot.yaml>",
	Short: "Show sets of items with no mutual ordering constraint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, project, err := loadApp(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = app.Close() }()

		sets, err := app.Engine.GetParallelizableSets(project)
		if err != nil {
			return err
		}
		for i, set := range sets {
			fmt.Fprintf(cmd.OutOrStdout(), "wave %d: %s\n", i+1, strings.Join(set, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(parallelCmd)
}
