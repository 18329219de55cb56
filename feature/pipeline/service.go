package pipeline

import (
	"context"
	"io"

	"corpus-auditor/core/extsort"
	"corpus-auditor/core/loader"
	"corpus-auditor/core/logger"
	"corpus-auditor/core/metrics"
	"corpus-auditor/feature/gaps"
	"corpus-auditor/feature/inventory"
	"corpus-auditor/feature/missing"
	"corpus-auditor/feature/packer"
	"corpus-auditor/feature/shard"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Options configures a Service.
type Options struct {
	Pipeline Config
	Sort     extsort.Config
	Shard    shard.Config

	// FS is the filesystem the pipeline operates on.
	FS afero.Fs
	// Report receives the one-line summary of every executed stage.
	Report io.Writer
	Logger *zap.Logger
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Service runs the pipeline over one directory.
type Service struct {
	opts    Options
	manager *loader.Manager
}

// NewService creates a pipeline service and registers its stages.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Report == nil {
		opts.Report = io.Discard
	}

	var observer loader.Observer
	if opts.Metrics != nil {
		observer = opts.Metrics
	}
	m := loader.NewManager(opts.Logger, observer)

	p := opts.Pipeline
	log := opts.Logger
	inv := inventory.NewStage(opts.FS, p.Dir, p.CorpusPrefix, []string{p.PublicList, p.PrivateList}, logger.WithStage(log, inventory.Name))
	m.Register(inv)
	m.Register(packer.NewStage(opts.FS, lists(p), opts.Sort, p.Scratch(), logger.WithStage(log, packer.Name), opts.Metrics))
	m.Register(gaps.NewStage(opts.FS, p.Path(p.GapFile), []string{p.Path(p.PublicPacked), p.Path(p.PrivatePacked)}, opts.Report, logger.WithStage(log, gaps.Name), opts.Metrics))
	m.Register(shard.NewStage(opts.FS, shard.Paths{
		Dir:     p.Path(p.ShardDir),
		Marker:  p.Path(p.Marker),
		Scratch: p.Scratch(),
	}, inv, opts.Shard, opts.Sort, opts.Report, logger.WithStage(log, shard.Name), opts.Metrics))
	m.Register(missing.NewStage(opts.FS, missing.Paths{
		Expected: p.Path(p.PublicPacked),
		ShardDir: p.Path(p.ShardDir),
		Marker:   p.Path(p.Marker),
		Out:      p.Path(p.MissingFile),
	}, opts.Report, logger.WithStage(log, missing.Name), opts.Metrics))

	return &Service{opts: opts, manager: m}
}

func lists(p Config) []packer.List {
	return []packer.List{
		{Label: "public", Text: p.Path(p.PublicList), Packed: p.Path(p.PublicPacked)},
		{Label: "private", Text: p.Path(p.PrivateList), Packed: p.Path(p.PrivatePacked)},
	}
}

// StageNames returns the stage names in execution order.
func (s *Service) StageNames() []string {
	stages := s.manager.Stages()
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name()
	}
	return names
}

// Run executes every stage that has not completed.
func (s *Service) Run(ctx context.Context) error {
	s.opts.Logger.Info("Running pipeline", zap.String("dir", s.opts.Pipeline.Dir))
	defer s.removeScratch()
	return s.manager.RunAll(ctx)
}

// RunUntil executes the stages up to and including name.
func (s *Service) RunUntil(ctx context.Context, name string) error {
	s.opts.Logger.Info("Running pipeline", zap.String("dir", s.opts.Pipeline.Dir), zap.String("until", name))
	defer s.removeScratch()
	return s.manager.RunUntil(ctx, name)
}

// removeScratch deletes the scratch directory once the stages have emptied it.
func (s *Service) removeScratch() {
	dir := s.opts.Pipeline.Scratch()
	if empty, err := afero.IsEmpty(s.opts.FS, dir); err == nil && empty {
		_ = s.opts.FS.Remove(dir)
	}
}
