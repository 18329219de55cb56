package cmd

import (
	"context"

	"corpus-auditor/core/config"
	"corpus-auditor/core/metrics"
	"corpus-auditor/core/storage"
	"corpus-auditor/feature/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runCmd runs every pending stage
var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Run the whole pipeline",
	Long: `Runs inventory, pack, gaps, shard and reconcile in order over dir (default:
pipeline.dir). Stages whose output already exists are skipped. Each stage that
runs prints one summary count.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args, func(ctx context.Context, svc *pipeline.Service) error {
			return svc.Run(ctx)
		})
	},
}

func runPipeline(cmd *cobra.Command, args []string, fn func(context.Context, *pipeline.Service) error) error {
	cfg, logg, err := setup(args)
	if err != nil {
		return err
	}
	defer logg.Sync()

	ctx, stop := signalContext(cmd)
	defer stop()

	m := metrics.New()
	svc := newService(cfg, logg, m, cmd)
	runErr := fn(ctx, svc)

	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logg.Warn("Failed to write metrics", zap.Error(err))
	}
	return runErr
}

func newService(cfg *config.Config, logg *zap.Logger, m *metrics.Metrics, cmd *cobra.Command) *pipeline.Service {
	return pipeline.NewService(pipeline.Options{
		Pipeline: cfg.Pipeline,
		Sort:     cfg.Sort,
		Shard:    cfg.Shard,
		FS:       storage.NewClient(),
		Report:   cmd.OutOrStdout(),
		Logger:   logg,
		Metrics:  m,
	})
}

func init() {
	RootCmd.AddCommand(runCmd)
}
