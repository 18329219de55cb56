package shard

import (
	"context"
	"fmt"
	"sync/atomic"

	"corpus-auditor/core/codec"
	"corpus-auditor/feature/inventory"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ctxCheckEvery is how many lines are processed between context checks.
const ctxCheckEvery = 1 << 14

// Counts tallies lines seen and dropped.
type Counts struct {
	Lines   int64
	Dropped int64
}

// Partition appends every corpus line to its shard through pool. Lines
// without a usable id are dropped and counted. Up to workers files are read
// in parallel.
func Partition(ctx context.Context, fs afero.Fs, pool *Pool, files []inventory.CorpusFile, workers int, logger *zap.Logger) (Counts, error) {
	var lines, dropped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, file := range files {
		g.Go(func() error {
			c, err := partitionFile(ctx, fs, pool, file, logger)
			lines.Add(c.Lines)
			dropped.Add(c.Dropped)
			return err
		})
	}
	err := g.Wait()
	return Counts{Lines: lines.Load(), Dropped: dropped.Load()}, err
}

func partitionFile(ctx context.Context, fs afero.Fs, pool *Pool, file inventory.CorpusFile, logger *zap.Logger) (Counts, error) {
	var c Counts

	f, err := fs.Open(file.Path)
	if err != nil {
		return c, fmt.Errorf("failed to open corpus file %s: %w", file.Path, err)
	}
	defer f.Close()

	rc, err := codec.NewReader(f, file.Codec)
	if err != nil {
		return c, fmt.Errorf("%s: %w", file.Path, err)
	}
	defer rc.Close()

	lr := newLineReader(rc)
	for {
		line, ok, err := lr.next()
		if err != nil {
			return c, fmt.Errorf("failed to read corpus file %s: %w", file.Path, err)
		}
		if !ok {
			break
		}
		c.Lines++
		if c.Lines%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return c, err
			}
		}

		id, err := ExtractID(line)
		if err != nil {
			c.Dropped++
			logger.Debug("Dropping corpus line",
				zap.String("file", file.Path),
				zap.Int64("line", lr.line),
				zap.Error(err),
			)
			continue
		}
		if err := pool.Append(RangeOf(id), line); err != nil {
			return c, err
		}
	}

	logger.Debug("Partitioned corpus file",
		zap.String("file", file.Path),
		zap.String("codec", string(file.Codec)),
		zap.Int64("lines", c.Lines),
		zap.Int64("dropped", c.Dropped),
	)
	return c, nil
}
