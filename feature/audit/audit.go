package audit

import (
	"context"
	"fmt"
	"io"

	"corpus-auditor/core/idstream"
	"corpus-auditor/core/reconcile"
	"corpus-auditor/core/storage"
	"corpus-auditor/feature/pipeline"
	"corpus-auditor/feature/shard"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	CheckPacked    = "packed"
	CheckPartition = "partition"
	CheckShards    = "shards"
	CheckMissing   = "missing"
)

// Auditor runs the property checks over one pipeline directory.
type Auditor struct {
	fs      afero.Fs
	cfg     pipeline.Config
	workers int
	logger  *zap.Logger
}

// New creates an auditor. fs may be read-only. Up to workers shards are
// checked in parallel.
func New(fs afero.Fs, cfg pipeline.Config, workers int, logger *zap.Logger) *Auditor {
	return &Auditor{fs: fs, cfg: cfg, workers: max(workers, 1), logger: logger}
}

// Run executes every applicable check.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	r := &Report{}
	checks := []struct {
		name string
		fn   func(context.Context, *Report) (bool, error)
	}{
		{CheckPacked, a.checkPacked},
		{CheckPartition, a.checkPartition},
		{CheckShards, a.checkShards},
		{CheckMissing, a.checkMissing},
	}
	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		ran, err := c.fn(ctx, r)
		if err != nil {
			return r, fmt.Errorf("%s check: %w", c.name, err)
		}
		if ran {
			r.ran(c.name)
		} else {
			r.skip(c.name)
		}
		a.logger.Debug("Audit check finished", zap.String("check", c.name), zap.Bool("ran", ran))
	}
	a.logger.Info("Audit complete", zap.Int64("violations", r.Violations), zap.Int64("warnings", r.Warnings))
	return r, nil
}

func (a *Auditor) exist(names ...string) (bool, error) {
	for _, n := range names {
		ok, err := storage.Exists(a.fs, a.cfg.Path(n))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
}

// checkPacked verifies each packed list is ascending and identical to its
// sorted text list.
func (a *Auditor) checkPacked(ctx context.Context, r *Report) (bool, error) {
	ok, err := a.exist(a.cfg.PublicList, a.cfg.PrivateList, a.cfg.PublicPacked, a.cfg.PrivatePacked)
	if err != nil || !ok {
		return false, err
	}
	pairs := [][2]string{
		{a.cfg.PublicPacked, a.cfg.PublicList},
		{a.cfg.PrivatePacked, a.cfg.PrivateList},
	}
	for _, p := range pairs {
		if err := a.comparePacked(r, a.cfg.Path(p[0]), a.cfg.Path(p[1])); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (a *Auditor) comparePacked(r *Report, packedPath, textPath string) error {
	packed, err := idstream.OpenPacked(a.fs, packedPath)
	if err != nil {
		return err
	}
	text, err := idstream.OpenText(a.fs, textPath)
	if err != nil {
		closeAll(packed)
		return err
	}
	defer closeAll(packed, text)

	for pos := int64(0); ; pos++ {
		pid, pok, err := packed.Next()
		if err != nil {
			r.violation(CheckPacked, "%v", err)
			return nil
		}
		tid, tok, err := text.Next()
		if err != nil {
			r.violation(CheckPacked, "%v", err)
			return nil
		}
		switch {
		case !pok && !tok:
			return nil
		case pok != tok:
			r.violation(CheckPacked, "%s and %s differ in length at position %d", packedPath, textPath, pos)
			return nil
		case pid != tid:
			r.violation(CheckPacked, "%s holds %d but %s holds %d at position %d", packedPath, pid, textPath, tid, pos)
			return nil
		}
	}
}

// checkPartition walks both packed lists and the gap set together.
func (a *Auditor) checkPartition(ctx context.Context, r *Report) (bool, error) {
	ok, err := a.exist(a.cfg.PublicPacked, a.cfg.PrivatePacked, a.cfg.GapFile)
	if err != nil || !ok {
		return false, err
	}

	var maxObserved uint32
	for _, name := range []string{a.cfg.PublicPacked, a.cfg.PrivatePacked} {
		_, last, err := idstream.PackedStat(a.fs, a.cfg.Path(name))
		if err != nil {
			r.violation(CheckPartition, "%v", err)
			return true, nil
		}
		maxObserved = max(maxObserved, last)
	}

	pub, err := idstream.OpenPacked(a.fs, a.cfg.Path(a.cfg.PublicPacked))
	if err != nil {
		return true, err
	}
	defer pub.Close()
	priv, err := idstream.OpenPacked(a.fs, a.cfg.Path(a.cfg.PrivatePacked))
	if err != nil {
		return true, err
	}
	defer priv.Close()
	gap, err := idstream.OpenText(a.fs, a.cfg.Path(a.cfg.GapFile))
	if err != nil {
		return true, err
	}
	defer gap.Close()

	if err := walkPartition(ctx, r, maxObserved, pub, priv, gap); err != nil {
		r.violation(CheckPartition, "%v", err)
	}
	return true, nil
}

func walkPartition(ctx context.Context, r *Report, maxObserved uint32, pub, priv, gap idstream.Stream) error {
	ca, err := newCursor("public", pub)
	if err != nil {
		return err
	}
	cb, err := newCursor("private", priv)
	if err != nil {
		return err
	}
	cg, err := newCursor("gaps", gap)
	if err != nil {
		return err
	}

	next := uint64(1)
	var steps int64
	for ca.ok || cb.ok || cg.ok {
		if steps++; steps%(1<<16) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		v := uint32(0)
		first := true
		for _, c := range []*cursor{ca, cb, cg} {
			if c.ok && (first || c.head < v) {
				v, first = c.head, false
			}
		}

		inA, err := ca.skip(v)
		if err != nil {
			return err
		}
		inB, err := cb.skip(v)
		if err != nil {
			return err
		}
		inG, err := cg.skip(v)
		if err != nil {
			return err
		}

		if uint64(v) > next {
			r.violation(CheckPartition, "ids %d..%d are in no list and not in the gap set", next, uint64(v)-1)
		}
		switch {
		case v == 0:
			r.violation(CheckPartition, "id 0 is outside the identifier space")
		case inG && (inA || inB):
			r.violation(CheckPartition, "id %d is both listed and in the gap set", v)
		case inG && v > maxObserved:
			r.violation(CheckPartition, "gap id %d exceeds maxObserved %d", v, maxObserved)
		case inA && inB:
			r.warning(CheckPartition, "id %d is in both the public and the private list", v)
		}
		next = uint64(v) + 1
	}
	return nil
}

// checkShards validates every sorted shard in parallel.
func (a *Auditor) checkShards(ctx context.Context, r *Report) (bool, error) {
	ok, err := a.exist(a.cfg.Marker)
	if err != nil || !ok {
		return false, err
	}
	entries, err := shard.ListShards(a.fs, a.cfg.Path(a.cfg.ShardDir))
	if err != nil {
		r.violation(CheckShards, "%v", err)
		return true, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for _, e := range entries {
		if !e.Sorted {
			r.violation(CheckShards, "unsorted shard %s present after completion", e.Path)
			continue
		}
		g.Go(func() error {
			return a.checkShard(ctx, r, e)
		})
	}
	return true, g.Wait()
}

func (a *Auditor) checkShard(ctx context.Context, r *Report, e shard.Entry) error {
	sr, err := shard.OpenShard(a.fs, e)
	if err != nil {
		return err
	}
	defer sr.Close()

	var prev uint32
	for {
		raw, ok, err := sr.NextLine()
		if err != nil || !ok {
			return err
		}
		line := sr.Line()
		if line%(1<<14) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		id, err := shard.ValidateRecord(raw)
		switch {
		case err != nil:
			r.violation(CheckShards, "%s:%d: %v", e.Path, line, err)
			continue
		case !e.Contains(id):
			r.violation(CheckShards, "%s:%d: id %d outside shard range", e.Path, line, id)
		case id < prev:
			r.violation(CheckShards, "%s:%d: id %d follows %d", e.Path, line, id, prev)
		}
		prev = id
	}
}

// checkMissing verifies the missing set against the lists and the corpus.
func (a *Auditor) checkMissing(ctx context.Context, r *Report) (bool, error) {
	ok, err := a.exist(a.cfg.MissingFile, a.cfg.PublicPacked, a.cfg.GapFile, a.cfg.Marker)
	if err != nil || !ok {
		return false, err
	}
	missingPath := a.cfg.Path(a.cfg.MissingFile)

	notPublic := func(id uint32) error {
		r.violation(CheckMissing, "missing id %d is not in the public list", id)
		return nil
	}
	inGaps := func(id uint32) error {
		r.violation(CheckMissing, "missing id %d is in the gap set", id)
		return nil
	}
	inCorpus := func(id uint32) error {
		r.violation(CheckMissing, "missing id %d is present in the corpus", id)
		return nil
	}

	walks := []struct {
		open func() (idstream.Stream, io.Closer, error)
		fn   func(expected, actual idstream.Stream, emit reconcile.EmitFunc) (reconcile.Summary, error)
		emit reconcile.EmitFunc
	}{
		{a.openPacked(a.cfg.PublicPacked), reconcile.Difference, notPublic},
		{a.openText(a.cfg.GapFile), reconcile.Intersection, inGaps},
		{a.openCorpus, reconcile.Intersection, inCorpus},
	}
	for _, w := range walks {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		expected, err := idstream.OpenText(a.fs, missingPath)
		if err != nil {
			return true, err
		}
		actual, closer, err := w.open()
		if err != nil {
			closeAll(expected)
			r.violation(CheckMissing, "%v", err)
			continue
		}
		if _, err := w.fn(expected, actual, w.emit); err != nil {
			r.violation(CheckMissing, "%v", err)
		}
		closeAll(expected, closer)
	}
	return true, nil
}

func (a *Auditor) openPacked(name string) func() (idstream.Stream, io.Closer, error) {
	return func() (idstream.Stream, io.Closer, error) {
		p, err := idstream.OpenPacked(a.fs, a.cfg.Path(name))
		return p, p, err
	}
}

func (a *Auditor) openText(name string) func() (idstream.Stream, io.Closer, error) {
	return func() (idstream.Stream, io.Closer, error) {
		t, err := idstream.OpenText(a.fs, a.cfg.Path(name))
		return t, t, err
	}
}

func (a *Auditor) openCorpus() (idstream.Stream, io.Closer, error) {
	c, err := shard.OpenCorpusStream(a.fs, a.cfg.Path(a.cfg.ShardDir))
	return c, c, err
}
