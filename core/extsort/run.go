package extsort

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"corpus-auditor/core/codec"

	"github.com/spf13/afero"
)

const frameHeader = 12

type runWriter struct {
	f   afero.File
	zw  io.WriteCloser
	bw  *bufio.Writer
	hdr [frameHeader]byte
}

func createRun(fs afero.Fs, path string, c codec.Codec) (*runWriter, error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run %s: %w", path, err)
	}
	zw, err := codec.NewWriter(f, c)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &runWriter{f: f, zw: zw, bw: bufio.NewWriterSize(zw, 256*1024)}, nil
}

func (w *runWriter) write(key uint64, payload []byte) error {
	binary.LittleEndian.PutUint64(w.hdr[0:8], key)
	binary.LittleEndian.PutUint32(w.hdr[8:12], uint32(len(payload)))
	if _, err := w.bw.Write(w.hdr[:]); err != nil {
		return err
	}
	_, err := w.bw.Write(payload)
	return err
}

func (w *runWriter) close() error {
	if err := w.bw.Flush(); err != nil {
		_ = w.f.Close()
		return err
	}
	if err := w.zw.Close(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}

// runReader is a cursor over one run. key and payload hold the current frame;
// payload is reused between frames.
type runReader struct {
	f       afero.File
	zr      io.ReadCloser
	br      *bufio.Reader
	path    string
	index   int
	key     uint64
	payload []byte
	hdr     [frameHeader]byte
}

func openRun(fs afero.Fs, path string, index int, c codec.Codec) (*runReader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run %s: %w", path, err)
	}
	zr, err := codec.NewReader(f, c)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &runReader{f: f, zr: zr, br: bufio.NewReaderSize(zr, 64*1024), path: path, index: index}, nil
}

func (r *runReader) next() (bool, error) {
	if _, err := io.ReadFull(r.br, r.hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("truncated run %s: %w", r.path, err)
	}
	r.key = binary.LittleEndian.Uint64(r.hdr[0:8])
	n := int(binary.LittleEndian.Uint32(r.hdr[8:12]))
	if cap(r.payload) < n {
		r.payload = make([]byte, n)
	}
	r.payload = r.payload[:n]
	if _, err := io.ReadFull(r.br, r.payload); err != nil {
		return false, fmt.Errorf("truncated run %s: %w", r.path, err)
	}
	return true, nil
}

func (r *runReader) close() error {
	_ = r.zr.Close()
	return r.f.Close()
}

// cursorHeap orders run cursors by key, then by run index.
type cursorHeap []*runReader

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].index < h[j].index
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) { *h = append(*h, x.(*runReader)) }

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}
