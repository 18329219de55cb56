package packer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"corpus-auditor/core/extsort"
	"corpus-auditor/core/idstream"
	"corpus-auditor/core/metrics"
	"corpus-auditor/core/storage"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Name is the stage name.
const Name = "pack"

// ErrCorruptList is returned when an identifier list holds an unparseable entry.
var ErrCorruptList = errors.New("corrupt identifier list")

// ctxCheckEvery is how many identifiers are processed between context checks.
const ctxCheckEvery = 1 << 16

// List names one identifier list and its packed output.
type List struct {
	// Label identifies the list in logs and metrics (public, private).
	Label string
	// Text is the path of the decimal list, rewritten in sorted form.
	Text string
	// Packed is the path of the packed output.
	Packed string
}

// Result describes one packed list.
type Result struct {
	Count  int64
	Max    uint32
	Spills int
}

// Pack sorts list.Text through an external sorter rooted at opts.Dir and
// commits both the packed file and the sorted text list.
func Pack(ctx context.Context, fs afero.Fs, list List, opts extsort.Options) (Result, error) {
	sorter, err := extsort.New(fs, opts)
	if err != nil {
		return Result{}, err
	}
	defer sorter.Close()

	src, err := idstream.OpenText(fs, list.Text)
	if err != nil {
		return Result{}, err
	}
	var n int64
	for {
		id, ok, err := src.Next()
		if err != nil {
			_ = src.Close()
			if errors.Is(err, idstream.ErrBadLine) {
				return Result{}, fmt.Errorf("%w: %v", ErrCorruptList, err)
			}
			return Result{}, err
		}
		if !ok {
			break
		}
		if err := sorter.Add(uint64(id), nil); err != nil {
			_ = src.Close()
			return Result{}, err
		}
		n++
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				_ = src.Close()
				return Result{}, err
			}
		}
	}
	if err := src.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close %s: %w", list.Text, err)
	}

	text, err := storage.CreateAtomic(fs, list.Text)
	if err != nil {
		return Result{}, err
	}
	defer text.Abort()
	packed, err := storage.CreateAtomic(fs, list.Packed)
	if err != nil {
		return Result{}, err
	}
	defer packed.Abort()

	tw := idstream.NewTextWriter(text)
	pw := idstream.NewPackedWriter(packed)
	var res Result
	err = sorter.Merge(func(key uint64, _ []byte) error {
		id := uint32(key)
		if err := tw.Write(id); err != nil {
			return fmt.Errorf("failed to write %s: %w", list.Text, err)
		}
		if err := pw.Write(id); err != nil {
			return fmt.Errorf("failed to write %s: %w", list.Packed, err)
		}
		res.Max = id
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Count = pw.Count()
	res.Spills = sorter.Spills()

	// The packed file is the completion marker, so it is committed last.
	if err := text.Commit(); err != nil {
		return Result{}, err
	}
	if err := packed.Commit(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Stage packs both identifier lists.
type Stage struct {
	fs      afero.Fs
	lists   []List
	sortCfg extsort.Config
	scratch string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewStage creates the packing stage. Scratch data is kept under scratch
// and removed when the stage finishes.
func NewStage(fs afero.Fs, lists []List, sortCfg extsort.Config, scratch string, logger *zap.Logger, m *metrics.Metrics) *Stage {
	return &Stage{
		fs:      fs,
		lists:   lists,
		sortCfg: sortCfg,
		scratch: scratch,
		logger:  logger,
		metrics: m,
	}
}

// Name implements loader.Stage.
func (s *Stage) Name() string { return Name }

// Done implements loader.Stage. It reports true once every packed file exists.
func (s *Stage) Done(ctx context.Context) (bool, error) {
	for _, l := range s.lists {
		ok, err := storage.Exists(s.fs, l.Packed)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Run implements loader.Stage.
func (s *Stage) Run(ctx context.Context) error {
	dir := filepath.Join(s.scratch, Name)
	defer s.fs.RemoveAll(dir)

	opts, err := s.sortCfg.Options(dir)
	if err != nil {
		return err
	}
	for _, l := range s.lists {
		res, err := Pack(ctx, s.fs, l, opts)
		if err != nil {
			return fmt.Errorf("failed to pack %s: %w", l.Text, err)
		}
		s.metrics.SetPacked(l.Label, res.Count)
		s.metrics.AddSpills(res.Spills)
		s.logger.Info("Packed identifier list",
			zap.String("list", l.Label),
			zap.String("path", l.Packed),
			zap.Int64("ids", res.Count),
			zap.Uint32("max", res.Max),
			zap.Int("spills", res.Spills),
		)
	}
	return nil
}
