package shard

import (
	"context"
	"fmt"
	"path/filepath"

	"corpus-auditor/core/extsort"
	"corpus-auditor/core/storage"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// SortResult describes one sorted shard.
type SortResult struct {
	Counts
	Spills int
}

// SortShard validates and sorts the unsorted shard e by id, keeping the input
// order of equal ids. The sorted file is committed before the unsorted file
// is removed. Invalid lines and lines outside the shard range are dropped.
func SortShard(ctx context.Context, fs afero.Fs, e Entry, opts extsort.Options, logger *zap.Logger) (SortResult, error) {
	var res SortResult
	if e.Sorted {
		return res, fmt.Errorf("shard %s is already sorted", e.Path)
	}

	sorter, err := extsort.New(fs, opts)
	if err != nil {
		return res, err
	}
	defer sorter.Close()

	f, err := fs.Open(e.Path)
	if err != nil {
		return res, fmt.Errorf("failed to open shard %s: %w", e.Path, err)
	}
	lr := newLineReader(f)
	for {
		line, ok, err := lr.next()
		if err != nil {
			_ = f.Close()
			return res, fmt.Errorf("failed to read shard %s: %w", e.Path, err)
		}
		if !ok {
			break
		}
		res.Lines++
		if res.Lines%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				_ = f.Close()
				return res, err
			}
		}

		id, err := ValidateRecord(line)
		if err == nil && !e.Contains(id) {
			err = fmt.Errorf("id %d outside shard %s", id, e.Range)
		}
		if err != nil {
			res.Dropped++
			logger.Debug("Dropping shard line",
				zap.String("shard", e.Path),
				zap.Int64("line", lr.line),
				zap.Error(err),
			)
			continue
		}
		if err := sorter.Add(uint64(id), line); err != nil {
			_ = f.Close()
			return res, err
		}
	}
	if err := f.Close(); err != nil {
		return res, fmt.Errorf("failed to close shard %s: %w", e.Path, err)
	}

	out, err := storage.CreateAtomic(fs, filepath.Join(filepath.Dir(e.Path), e.SortedName()))
	if err != nil {
		return res, err
	}
	defer out.Abort()

	err = sorter.Merge(func(_ uint64, payload []byte) error {
		if _, err := out.Write(payload); err != nil {
			return err
		}
		_, err := out.Write([]byte{'\n'})
		return err
	})
	if err != nil {
		return res, fmt.Errorf("failed to write %s: %w", out.Path(), err)
	}
	res.Spills = sorter.Spills()
	if err := out.Commit(); err != nil {
		return res, err
	}
	if err := fs.Remove(e.Path); err != nil {
		return res, fmt.Errorf("failed to remove unsorted shard %s: %w", e.Path, err)
	}
	return res, nil
}
