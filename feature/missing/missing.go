package missing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"corpus-auditor/core/idstream"
	"corpus-auditor/core/metrics"
	"corpus-auditor/core/reconcile"
	"corpus-auditor/core/storage"
	"corpus-auditor/feature/shard"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Name is the stage name.
const Name = "reconcile"

// ErrShardsIncomplete is returned when the shard completion marker is absent.
var ErrShardsIncomplete = errors.New("shards are not complete")

// ctxCheckEvery is how many expected ids are read between context checks.
const ctxCheckEvery = 1 << 16

// Paths locates the stage's inputs and output.
type Paths struct {
	// Expected is the packed list of ids that must appear in the corpus.
	Expected string
	// ShardDir holds the sorted shards.
	ShardDir string
	// Marker is the shard completion marker.
	Marker string
	// Out is the missing-set output.
	Out string
}

// Reconcile writes every id of the expected list that no sorted shard
// contains to p.Out.
func Reconcile(ctx context.Context, fs afero.Fs, p Paths) (reconcile.Summary, error) {
	ok, err := storage.Exists(fs, p.Marker)
	if err != nil {
		return reconcile.Summary{}, err
	}
	if !ok {
		return reconcile.Summary{}, fmt.Errorf("%w: %s not found", ErrShardsIncomplete, p.Marker)
	}

	expected, err := idstream.OpenPacked(fs, p.Expected)
	if err != nil {
		return reconcile.Summary{}, err
	}
	defer expected.Close()

	corpus, err := shard.OpenCorpusStream(fs, p.ShardDir)
	if err != nil {
		return reconcile.Summary{}, err
	}
	defer corpus.Close()

	out, err := storage.CreateAtomic(fs, p.Out)
	if err != nil {
		return reconcile.Summary{}, err
	}
	defer out.Abort()

	w := idstream.NewTextWriter(out)
	sum, err := reconcile.Difference(&cancellable{ctx: ctx, s: expected}, corpus, w.Write)
	if err != nil {
		return sum, fmt.Errorf("failed to reconcile %s: %w", p.Expected, err)
	}
	return sum, out.Commit()
}

// cancellable stops a stream once ctx is done.
type cancellable struct {
	ctx context.Context
	s   idstream.Stream
	n   int64
}

func (c *cancellable) Next() (uint32, bool, error) {
	if c.n%ctxCheckEvery == 0 {
		if err := c.ctx.Err(); err != nil {
			return 0, false, err
		}
	}
	c.n++
	return c.s.Next()
}

// Stage writes the missing set.
type Stage struct {
	fs      afero.Fs
	paths   Paths
	report  io.Writer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewStage creates the reconciliation stage. The missing count is printed
// to report.
func NewStage(fs afero.Fs, paths Paths, report io.Writer, logger *zap.Logger, m *metrics.Metrics) *Stage {
	return &Stage{fs: fs, paths: paths, report: report, logger: logger, metrics: m}
}

// Name implements loader.Stage.
func (s *Stage) Name() string { return Name }

// Done implements loader.Stage.
func (s *Stage) Done(ctx context.Context) (bool, error) {
	return storage.Exists(s.fs, s.paths.Out)
}

// Run implements loader.Stage.
func (s *Stage) Run(ctx context.Context) error {
	sum, err := Reconcile(ctx, s.fs, s.paths)
	if err != nil {
		return err
	}
	s.metrics.SetMissing(sum.Emitted)
	s.logger.Info("Missing set written",
		zap.String("path", s.paths.Out),
		zap.Int64("expected", sum.Seen),
		zap.Int64("missing", sum.Emitted),
	)
	if sum.Emitted > 0 {
		s.logger.Warn("Scraped identifiers absent from corpus", zap.Int64("missing", sum.Emitted))
	}
	_, err = fmt.Fprintf(s.report, "Missing: %s\n", humanize.Comma(sum.Emitted))
	return err
}
