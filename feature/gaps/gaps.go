package gaps

import (
	"context"
	"fmt"
	"io"

	"corpus-auditor/core/idstream"
	"corpus-auditor/core/metrics"
	"corpus-auditor/core/reconcile"
	"corpus-auditor/core/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Name is the stage name.
const Name = "gaps"

// Extract writes [1, max] minus the union of the packed lists to out.
func Extract(ctx context.Context, fs afero.Fs, out string, packed ...string) (reconcile.Summary, error) {
	var union idstream.Stream = idstream.FromSlice()
	for _, p := range packed {
		r, err := idstream.OpenPacked(fs, p)
		if err != nil {
			return reconcile.Summary{}, err
		}
		defer r.Close()
		union = idstream.Union(union, r)
	}

	f, err := storage.CreateAtomic(fs, out)
	if err != nil {
		return reconcile.Summary{}, err
	}
	defer f.Abort()

	w := idstream.NewTextWriter(f)
	sum, err := reconcile.Complement(union, func(id uint32) error {
		if w.Count()%(1<<16) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := w.Write(id); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		return nil
	})
	if err != nil {
		return sum, err
	}
	return sum, f.Commit()
}

// Stage extracts the gap set.
type Stage struct {
	fs      afero.Fs
	out     string
	packed  []string
	report  io.Writer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewStage creates the gap extraction stage. The gap count is printed to report.
func NewStage(fs afero.Fs, out string, packed []string, report io.Writer, logger *zap.Logger, m *metrics.Metrics) *Stage {
	return &Stage{fs: fs, out: out, packed: packed, report: report, logger: logger, metrics: m}
}

// Name implements loader.Stage.
func (s *Stage) Name() string { return Name }

// Done implements loader.Stage.
func (s *Stage) Done(ctx context.Context) (bool, error) {
	return storage.Exists(s.fs, s.out)
}

// Run implements loader.Stage.
func (s *Stage) Run(ctx context.Context) error {
	sum, err := Extract(ctx, s.fs, s.out, s.packed...)
	if err != nil {
		return err
	}
	s.metrics.SetGaps(sum.Emitted, sum.Max)
	s.logger.Info("Gap set written",
		zap.String("path", s.out),
		zap.Int64("gaps", sum.Emitted),
		zap.Uint32("max_observed", sum.Max),
		zap.Int64("union_ids", sum.Seen),
	)
	_, err = fmt.Fprintf(s.report, "Gaps: %s\n", humanize.Comma(sum.Emitted))
	return err
}
