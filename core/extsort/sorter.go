package extsort

import (
	"container/heap"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// itemOverhead approximates the per-item bookkeeping cost in the buffer.
const itemOverhead = 48

// EmitFunc receives merged items in order. payload is only valid for the
// duration of the call.
type EmitFunc func(key uint64, payload []byte) error

type item struct {
	key     uint64
	payload []byte
}

// Sorter is a single-use external sorter. It is not safe for concurrent use.
type Sorter struct {
	fs       afero.Fs
	opts     Options
	buf      []item
	bufBytes int64
	runs     []string
	spills   int
	merged   bool
}

// New creates a sorter and its scratch directory.
func New(fs afero.Fs, opts Options) (*Sorter, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := fs.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir %s: %w", opts.Dir, err)
	}
	return &Sorter{fs: fs, opts: opts}, nil
}

// Add buffers an item, spilling a run when the buffer is full. The payload
// is copied.
func (s *Sorter) Add(key uint64, payload []byte) error {
	if s.merged {
		return fmt.Errorf("sorter already merged")
	}
	var p []byte
	if len(payload) > 0 {
		p = append(make([]byte, 0, len(payload)), payload...)
	}
	s.buf = append(s.buf, item{key: key, payload: p})
	s.bufBytes += int64(len(p)) + itemOverhead
	if s.bufBytes >= s.opts.BufferSize {
		return s.spill()
	}
	return nil
}

// Spills returns how many runs were written, including intermediate merge runs.
func (s *Sorter) Spills() int { return s.spills }

func (s *Sorter) sortBuffer() {
	sort.SliceStable(s.buf, func(i, j int) bool { return s.buf[i].key < s.buf[j].key })
}

func (s *Sorter) newRunPath() string {
	return filepath.Join(s.opts.Dir, "run-"+uuid.NewString()+".bin")
}

func (s *Sorter) spill() error {
	if len(s.buf) == 0 {
		return nil
	}
	s.sortBuffer()

	path := s.newRunPath()
	w, err := createRun(s.fs, path, s.opts.Compression)
	if err != nil {
		return err
	}
	s.runs = append(s.runs, path)
	s.spills++

	for _, it := range s.buf {
		if err := w.write(it.key, it.payload); err != nil {
			_ = w.close()
			return fmt.Errorf("failed to write run %s: %w", path, err)
		}
	}
	if err := w.close(); err != nil {
		return fmt.Errorf("failed to close run %s: %w", path, err)
	}

	clear(s.buf)
	s.buf = s.buf[:0]
	s.bufBytes = 0
	return nil
}

// Merge emits every added item in ascending key order. It may be called once.
func (s *Sorter) Merge(emit EmitFunc) error {
	if s.merged {
		return fmt.Errorf("sorter already merged")
	}
	s.merged = true

	// Everything fit in memory: no run files needed.
	if len(s.runs) == 0 {
		s.sortBuffer()
		for _, it := range s.buf {
			if err := emit(it.key, it.payload); err != nil {
				return err
			}
		}
		s.buf = nil
		return nil
	}

	if err := s.spill(); err != nil {
		return err
	}
	s.buf = nil

	for len(s.runs) > s.opts.FanIn {
		if err := s.mergePass(); err != nil {
			return err
		}
	}
	return s.mergeRuns(s.runs, emit)
}

// mergePass merges consecutive groups of FanIn runs into single runs.
func (s *Sorter) mergePass() error {
	var next []string
	for start := 0; start < len(s.runs); start += s.opts.FanIn {
		end := min(start+s.opts.FanIn, len(s.runs))
		group := s.runs[start:end]
		if len(group) == 1 {
			next = append(next, group[0])
			continue
		}

		path := s.newRunPath()
		w, err := createRun(s.fs, path, s.opts.Compression)
		if err != nil {
			s.runs = append(next, s.runs[start:]...)
			return err
		}
		s.spills++
		err = s.mergeRuns(group, w.write)
		if cerr := w.close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = s.fs.Remove(path)
			s.runs = append(next, s.runs[start:]...)
			return fmt.Errorf("failed to merge runs into %s: %w", path, err)
		}
		for _, p := range group {
			_ = s.fs.Remove(p)
		}
		next = append(next, path)
	}
	// Keep a record of every run still on disk so Close can clean up.
	s.runs = next
	return nil
}

func (s *Sorter) mergeRuns(paths []string, emit EmitFunc) (err error) {
	h := make(cursorHeap, 0, len(paths))
	defer func() {
		for _, r := range h {
			_ = r.close()
		}
	}()

	for i, p := range paths {
		r, oerr := openRun(s.fs, p, i, s.opts.Compression)
		if oerr != nil {
			return oerr
		}
		ok, nerr := r.next()
		if nerr != nil || !ok {
			_ = r.close()
			if nerr != nil {
				return nerr
			}
			continue
		}
		h = append(h, r)
	}
	heap.Init(&h)

	for h.Len() > 0 {
		r := h[0]
		if err := emit(r.key, r.payload); err != nil {
			return err
		}
		ok, nerr := r.next()
		if nerr != nil {
			return nerr
		}
		if ok {
			heap.Fix(&h, 0)
			continue
		}
		heap.Pop(&h)
		_ = r.close()
	}
	return nil
}

// Close removes all run files. It is safe to call more than once.
func (s *Sorter) Close() error {
	var firstErr error
	for _, p := range s.runs {
		if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove run %s: %w", p, err)
		}
	}
	s.runs = nil
	s.buf = nil
	return firstErr
}
