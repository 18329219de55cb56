package cmd

import (
	"fmt"

	"corpus-auditor/core/storage"
	"corpus-auditor/feature/audit"

	"github.com/spf13/cobra"
)

// auditCmd re-checks the pipeline's guarantees on committed artifacts
var auditCmd = &cobra.Command{
	Use:   "audit [dir]",
	Short: "Verify the committed artifacts",
	Long: `Streams the committed artifacts and checks that the packed lists match their
text lists, that every id up to the observed maximum is in exactly one of the
public list, the private list and the gap set, that every sorted shard is in
order and in range, and that every missing id is a public id absent from the
corpus. Nothing is written. Exits non-zero when a violation is found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, err := setup(args)
		if err != nil {
			return err
		}
		defer logg.Sync()

		ctx, stop := signalContext(cmd)
		defer stop()

		a := audit.New(storage.NewReadOnlyClient(), cfg.Pipeline, cfg.Sort.ParallelWorkers(), logg)
		report, err := a.Run(ctx)
		if err != nil {
			return err
		}
		if err := report.Print(cmd.OutOrStdout()); err != nil {
			return err
		}
		if !report.OK() {
			return fmt.Errorf("audit found %d violations", report.Violations)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(auditCmd)
}
