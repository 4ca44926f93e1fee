package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/workgraph-dev/workgraph/internal/graph"
	"github.com/workgraph-dev/workgraph/internal/storage"
	"github.com/workgraph-dev/workgraph/pkg/models"
)

var checkCmd = &cobra.Command{
	Use:   "check <snapshot.yaml>",
	Short: "Validate a snapshot: schema, edge types, and acyclicity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := storage.LoadSnapshot(args[0])
		if err != nil {
			return err
		}

		// Insert every edge, collecting rejections instead of bailing on the
		// first. AddEdge refuses cycle-closing edges, so those surface as
		// rejection errors; DetectCycles backstops the committed set.
		g := graph.New()
		known := make(map[string]struct{}, len(snap.Items))
		for _, it := range snap.Items {
			known[it.ID] = struct{}{}
		}
		var problems []string
		for _, e := range snap.Edges {
			if _, ok := known[e.Source]; !ok {
				problems = append(problems, fmt.Sprintf("edge %s -[%s]-> %s references unknown item %s", e.Source, e.Type, e.Target, e.Source))
			}
			if _, ok := known[e.Target]; !ok {
				problems = append(problems, fmt.Sprintf("edge %s -[%s]-> %s references unknown item %s", e.Source, e.Type, e.Target, e.Target))
			}
			if err := g.AddEdge(e); err != nil {
				problems = append(problems, err.Error())
			}
		}
		for _, cycle := range g.DetectCycles(models.SchedulingEdgeTypes) {
			problems = append(problems, "cycle: "+strings.Join(cycle, " -> "))
		}

		if len(problems) > 0 {
			for _, p := range problems {
				fmt.Fprintln(cmd.ErrOrStderr(), p)
			}
			return fmt.Errorf("snapshot %s has %d problem(s)", args[0], len(problems))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s: %d items, %d edges, no problems\n",
			args[0], len(snap.Items), len(snap.Edges))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
