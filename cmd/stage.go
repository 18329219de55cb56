package cmd

import (
	"context"

	"corpus-auditor/feature/pipeline"

	"github.com/spf13/cobra"
)

// stageCmd runs the pipeline up to a named stage
var stageCmd = &cobra.Command{
	Use:       "stage <inventory|pack|gaps|shard|reconcile> [dir]",
	Short:     "Run the pipeline up to and including one stage",
	ValidArgs: []string{"inventory", "pack", "gaps", "shard", "reconcile"},
	Args:      cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		return runPipeline(cmd, args[1:], func(ctx context.Context, svc *pipeline.Service) error {
			return svc.RunUntil(ctx, name)
		})
	},
}

func init() {
	RootCmd.AddCommand(stageCmd)
}
