package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

var impactCmd = &cobra.Command{
	Use:   "impact <snapshot.yaml> <item-id> <delay>",
	Short: "Simulate delaying one item and show the propagated impact",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		delay, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("parsing delay %q: %w", args[2], err)
		}

		app, _, err := loadApp(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = app.Close() }()

		report, err := app.Engine.GetImpact(args[1], delay)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "delaying %s by %.1f moves project completion by %.1f\n",
			report.ItemID, report.Delay, report.CompletionDelta)
		if len(report.Shifted) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no downstream items shift")
			return nil
		}

		ids := make([]string, 0, len(report.Shifted))
		for id := range report.Shifted {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-24s shifts by %.1f\n", id, report.Shifted[id])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(impactCmd)
}
