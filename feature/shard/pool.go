package shard

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/afero"
)

// reservedFDs is kept free for corpus readers, sort runs and the runtime.
const reservedFDs = 64

type handle struct {
	f afero.File
	w *bufio.Writer
}

func (h *handle) close() error {
	if err := h.w.Flush(); err != nil {
		_ = h.f.Close()
		return err
	}
	return h.f.Close()
}

// Pool appends lines to shard files through a bounded set of open handles.
// The least recently used handle is flushed and closed when the pool is full
// and reopened in append mode on demand. Appends are serialized.
type Pool struct {
	mu    sync.Mutex
	fs    afero.Fs
	dir   string
	cache *lru.Cache
	err   error
	opens int
}

// NewPool creates a pool holding at most maxOpen handles, further capped by
// the process file limit.
func NewPool(fs afero.Fs, dir string, maxOpen int) (*Pool, error) {
	size := EffectiveMaxOpen(maxOpen)
	p := &Pool{fs: fs, dir: dir}
	cache, err := lru.NewWithEvict(size, func(key, value any) {
		if err := value.(*handle).close(); err != nil && p.err == nil {
			p.err = fmt.Errorf("failed to close shard %s: %w", key, err)
		}
	})
	if err != nil {
		return nil, err
	}
	p.cache = cache
	return p, nil
}

// EffectiveMaxOpen caps maxOpen by the soft file limit minus a reserve.
func EffectiveMaxOpen(maxOpen int) int {
	if maxOpen < 1 {
		maxOpen = 1
	}
	if limit, ok := openFileLimit(); ok && limit > reservedFDs {
		if avail := limit - reservedFDs; uint64(maxOpen) > avail {
			maxOpen = int(avail)
		}
	}
	return maxOpen
}

// Append writes line and a newline to the unsorted file of r.
func (p *Pool) Append(r Range, line []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	name := r.UnsortedName()
	var h *handle
	if v, ok := p.cache.Get(name); ok {
		h = v.(*handle)
	} else {
		path := filepath.Join(p.dir, name)
		f, err := p.fs.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open shard %s: %w", path, err)
		}
		h = &handle{f: f, w: bufio.NewWriterSize(f, 32*1024)}
		p.cache.Add(name, h)
		p.opens++
		if p.err != nil {
			return p.err
		}
	}

	if _, err := h.w.Write(line); err != nil {
		return fmt.Errorf("failed to append to shard %s: %w", name, err)
	}
	if err := h.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to append to shard %s: %w", name, err)
	}
	return nil
}

// Opens returns how many times a shard file was opened, reopens included.
func (p *Pool) Opens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

// Close flushes and closes every open handle.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Purge()
	return p.err
}
