package shard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"

	"corpus-auditor/core/extsort"
	"corpus-auditor/core/metrics"
	"corpus-auditor/core/storage"
	"corpus-auditor/feature/inventory"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Name is the stage name.
const Name = "shard"

// FileSource supplies the corpus files to partition.
type FileSource interface {
	CorpusFiles() ([]inventory.CorpusFile, error)
}

// Paths locates the stage's artifacts.
type Paths struct {
	// Dir is the shard directory.
	Dir string
	// Marker is the completion marker.
	Marker string
	// Scratch holds sort run files while the stage runs.
	Scratch string
}

// Stage partitions and sorts the corpus.
type Stage struct {
	fs      afero.Fs
	paths   Paths
	source  FileSource
	cfg     Config
	sortCfg extsort.Config
	report  io.Writer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewStage creates the partition and sort stage. The dropped-line count is
// printed to report.
func NewStage(fs afero.Fs, paths Paths, source FileSource, cfg Config, sortCfg extsort.Config, report io.Writer, logger *zap.Logger, m *metrics.Metrics) *Stage {
	return &Stage{
		fs:      fs,
		paths:   paths,
		source:  source,
		cfg:     cfg,
		sortCfg: sortCfg,
		report:  report,
		logger:  logger,
		metrics: m,
	}
}

// Name implements loader.Stage.
func (s *Stage) Name() string { return Name }

// Done implements loader.Stage.
func (s *Stage) Done(ctx context.Context) (bool, error) {
	return storage.Exists(s.fs, s.paths.Marker)
}

// Run implements loader.Stage.
func (s *Stage) Run(ctx context.Context) error {
	files, err := s.source.CorpusFiles()
	if err != nil {
		return err
	}
	opts, err := s.sortCfg.Options(filepath.Join(s.paths.Scratch, Name))
	if err != nil {
		return err
	}
	defer s.fs.RemoveAll(opts.Dir)

	// Shards left by an interrupted run are never trusted.
	if err := s.fs.RemoveAll(s.paths.Dir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.paths.Dir, err)
	}
	if err := s.fs.MkdirAll(s.paths.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.paths.Dir, err)
	}

	partitioned, err := s.partition(ctx, files)
	if err != nil {
		return err
	}

	sorted, err := s.sortAll(ctx, opts)
	if err != nil {
		return err
	}

	if err := s.verify(); err != nil {
		return err
	}
	if err := storage.WriteMarker(s.fs, s.paths.Marker); err != nil {
		return err
	}

	dropped := partitioned.Dropped + sorted.Dropped
	s.metrics.SetDropped(dropped)
	s.logger.Info("Shards sorted",
		zap.Int("corpus_files", len(files)),
		zap.Int64("lines", partitioned.Lines),
		zap.Int64("dropped", dropped),
		zap.Int64("kept", sorted.Lines-sorted.Dropped),
	)
	_, err = fmt.Fprintf(s.report, "Dropped lines: %s\n", humanize.Comma(dropped))
	return err
}

func (s *Stage) partition(ctx context.Context, files []inventory.CorpusFile) (Counts, error) {
	pool, err := NewPool(s.fs, s.paths.Dir, s.cfg.MaxOpen)
	if err != nil {
		return Counts{}, err
	}
	counts, err := Partition(ctx, s.fs, pool, files, s.cfg.PartitionWorkers, s.logger)
	if cerr := pool.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return counts, err
	}
	s.logger.Info("Corpus partitioned",
		zap.Int64("lines", counts.Lines),
		zap.Int64("dropped", counts.Dropped),
		zap.Int("shard_opens", pool.Opens()),
	)
	return counts, nil
}

func (s *Stage) sortAll(ctx context.Context, opts extsort.Options) (Counts, error) {
	entries, err := ListShards(s.fs, s.paths.Dir)
	if err != nil {
		return Counts{}, err
	}

	var lines, dropped atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.sortCfg.ParallelWorkers())
	for _, e := range entries {
		if e.Sorted {
			continue
		}
		g.Go(func() error {
			res, err := SortShard(ctx, s.fs, e, opts, s.logger)
			if err != nil {
				return err
			}
			lines.Add(res.Lines)
			dropped.Add(res.Dropped)
			s.metrics.ShardSorted(res.Spills)
			s.logger.Debug("Shard sorted",
				zap.Stringer("range", e.Range),
				zap.Int64("lines", res.Lines),
				zap.Int64("dropped", res.Dropped),
				zap.Int("spills", res.Spills),
			)
			return nil
		})
	}
	err = g.Wait()
	return Counts{Lines: lines.Load(), Dropped: dropped.Load()}, err
}

var errUnsortedShard = errors.New("unsorted shard remains")

func (s *Stage) verify() error {
	entries, err := ListShards(s.fs, s.paths.Dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Sorted {
			return fmt.Errorf("%w: %s", errUnsortedShard, e.Path)
		}
	}
	return nil
}
