package inventory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"corpus-auditor/core/codec"
	"corpus-auditor/core/storage"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Name is the stage name.
const Name = "inventory"

var (
	// ErrMissingArtifact is returned when a required identifier list is absent.
	ErrMissingArtifact = errors.New("required artifact missing")
	// ErrNoCorpus is returned when no raw corpus file is found.
	ErrNoCorpus = errors.New("no corpus files found")
)

// CorpusFile is one raw corpus input.
type CorpusFile struct {
	Path  string
	Codec codec.Codec
	Size  int64
}

// Inventory is the result of a successful check.
type Inventory struct {
	CorpusFiles []CorpusFile
}

// Check lists dir and verifies the required inputs. lists are file names
// relative to dir.
func Check(fs afero.Fs, dir, corpusPrefix string, lists ...string) (*Inventory, error) {
	entries, err := storage.ListDir(fs, dir)
	if err != nil {
		return nil, err
	}

	files := make(map[string]bool, len(entries))
	inv := &Inventory{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files[e.Name()] = true
		if c, ok := codec.Match(e.Name(), corpusPrefix); ok {
			inv.CorpusFiles = append(inv.CorpusFiles, CorpusFile{
				Path:  filepath.Join(dir, e.Name()),
				Codec: c,
				Size:  e.Size(),
			})
		}
	}

	var missing []string
	for _, l := range lists {
		if !files[l] {
			missing = append(missing, filepath.Join(dir, l))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, strings.Join(missing, ", "))
	}
	if len(inv.CorpusFiles) == 0 {
		return nil, fmt.Errorf("%w: no %s*%s[.gz|.zst|.lz4|.sz] in %s", ErrNoCorpus, corpusPrefix, codec.CorpusExt, dir)
	}
	return inv, nil
}

// Stage runs Check as the first pipeline stage and keeps the result for
// later stages.
type Stage struct {
	fs     afero.Fs
	dir    string
	prefix string
	lists  []string
	logger *zap.Logger
	result *Inventory
}

// NewStage creates the inventory stage.
func NewStage(fs afero.Fs, dir, corpusPrefix string, lists []string, logger *zap.Logger) *Stage {
	return &Stage{fs: fs, dir: dir, prefix: corpusPrefix, lists: lists, logger: logger}
}

// Name implements loader.Stage.
func (s *Stage) Name() string { return Name }

// Done implements loader.Stage. The inventory is re-evaluated on every run.
func (s *Stage) Done(ctx context.Context) (bool, error) { return false, nil }

// Run implements loader.Stage.
func (s *Stage) Run(ctx context.Context) error {
	inv, err := Check(s.fs, s.dir, s.prefix, s.lists...)
	if err != nil {
		return err
	}
	s.result = inv

	var total int64
	for _, f := range inv.CorpusFiles {
		total += f.Size
	}
	s.logger.Info("Inventory complete",
		zap.Int("corpus_files", len(inv.CorpusFiles)),
		zap.Int64("corpus_bytes", total),
	)
	return nil
}

// CorpusFiles returns the corpus files found by the last Run.
func (s *Stage) CorpusFiles() ([]CorpusFile, error) {
	if s.result == nil {
		return nil, fmt.Errorf("inventory has not run")
	}
	return s.result.CorpusFiles, nil
}
