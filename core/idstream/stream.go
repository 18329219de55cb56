package idstream

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"corpus-auditor/core/utils"

	"github.com/spf13/afero"
)

// WordSize is the width of one packed identifier.
const WordSize = 4

var (
	// ErrCorruptPacked is returned when a packed file is truncated or out of order.
	ErrCorruptPacked = errors.New("corrupt packed identifier file")
	// ErrBadLine is returned when a text list line is not a valid identifier.
	ErrBadLine = errors.New("malformed identifier line")
)

// Stream yields identifiers in ascending order. ok is false once exhausted.
type Stream interface {
	Next() (id uint32, ok bool, err error)
}

// PackedReader streams a packed identifier file and enforces ascending order.
type PackedReader struct {
	r     io.Reader
	c     io.Closer
	name  string
	word  [WordSize]byte
	last  uint32
	count int64
}

// NewPackedReader reads packed identifiers from r. name is used in errors.
func NewPackedReader(r io.Reader, name string) *PackedReader {
	return &PackedReader{r: bufio.NewReaderSize(r, 64*1024), name: name}
}

// OpenPacked opens a packed file.
func OpenPacked(fs afero.Fs, path string) (*PackedReader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open packed list %s: %w", path, err)
	}
	pr := NewPackedReader(f, path)
	pr.c = f
	return pr, nil
}

// Next implements Stream.
func (p *PackedReader) Next() (uint32, bool, error) {
	if _, err := io.ReadFull(p.r, p.word[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, false, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, false, fmt.Errorf("%w: %s: trailing partial word after %d ids", ErrCorruptPacked, p.name, p.count)
		}
		return 0, false, fmt.Errorf("failed to read %s: %w", p.name, err)
	}
	id := binary.LittleEndian.Uint32(p.word[:])
	if p.count > 0 && id < p.last {
		return 0, false, fmt.Errorf("%w: %s: %d follows %d at position %d", ErrCorruptPacked, p.name, id, p.last, p.count)
	}
	p.last = id
	p.count++
	return id, true, nil
}

// Count returns how many identifiers have been read.
func (p *PackedReader) Count() int64 { return p.count }

// Close closes the underlying file, if any.
func (p *PackedReader) Close() error {
	if p.c == nil {
		return nil
	}
	return p.c.Close()
}

// PackedStat returns the number of identifiers in a packed file and its last
// (largest) identifier without reading the whole file.
func PackedStat(fs afero.Fs, path string) (count int64, last uint32, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open packed list %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	size := info.Size()
	if size%WordSize != 0 {
		return 0, 0, fmt.Errorf("%w: %s: size %d is not a multiple of %d", ErrCorruptPacked, path, size, WordSize)
	}
	if size == 0 {
		return 0, 0, nil
	}
	var word [WordSize]byte
	if _, err := f.ReadAt(word[:], size-WordSize); err != nil {
		return 0, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return size / WordSize, binary.LittleEndian.Uint32(word[:]), nil
}

// PackedWriter encodes identifiers in packed form.
type PackedWriter struct {
	w     io.Writer
	word  [WordSize]byte
	count int64
}

// NewPackedWriter writes to w, which should be buffered.
func NewPackedWriter(w io.Writer) *PackedWriter {
	return &PackedWriter{w: w}
}

// Write appends one identifier.
func (p *PackedWriter) Write(id uint32) error {
	binary.LittleEndian.PutUint32(p.word[:], id)
	if _, err := p.w.Write(p.word[:]); err != nil {
		return err
	}
	p.count++
	return nil
}

// Count returns how many identifiers were written.
func (p *PackedWriter) Count() int64 { return p.count }

// TextReader streams decimal identifiers, one per line. Blank lines are skipped.
type TextReader struct {
	br     *bufio.Reader
	c      io.Closer
	name   string
	lineNo int64
}

// NewTextReader reads decimal identifiers from r. name is used in errors.
func NewTextReader(r io.Reader, name string) *TextReader {
	return &TextReader{br: bufio.NewReaderSize(r, 64*1024), name: name}
}

// OpenText opens a decimal identifier file.
func OpenText(fs afero.Fs, path string) (*TextReader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	tr := NewTextReader(f, path)
	tr.c = f
	return tr, nil
}

// Next implements Stream. It does not check ordering.
func (t *TextReader) Next() (uint32, bool, error) {
	for {
		line, err := t.br.ReadSlice('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			if errors.Is(err, bufio.ErrBufferFull) {
				return 0, false, fmt.Errorf("%w: %s:%d: line too long", ErrBadLine, t.name, t.lineNo+1)
			}
			return 0, false, fmt.Errorf("failed to read %s: %w", t.name, err)
		}
		if len(line) == 0 && err != nil {
			return 0, false, nil
		}
		t.lineNo++
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if err != nil {
				return 0, false, nil
			}
			continue
		}
		id, perr := utils.ParseID(trimmed)
		if perr != nil {
			return 0, false, fmt.Errorf("%w: %s:%d: %v", ErrBadLine, t.name, t.lineNo, perr)
		}
		return id, true, nil
	}
}

// Close closes the underlying file, if any.
func (t *TextReader) Close() error {
	if t.c == nil {
		return nil
	}
	return t.c.Close()
}

// TextWriter encodes identifiers as decimal lines.
type TextWriter struct {
	w     io.Writer
	buf   []byte
	count int64
}

// NewTextWriter writes to w, which should be buffered.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w, buf: make([]byte, 0, 16)}
}

// Write appends one identifier line.
func (t *TextWriter) Write(id uint32) error {
	t.buf = utils.AppendID(t.buf[:0], id)
	if _, err := t.w.Write(t.buf); err != nil {
		return err
	}
	t.count++
	return nil
}

// Count returns how many identifiers were written.
func (t *TextWriter) Count() int64 { return t.count }

// Union merges two ascending streams into one ascending stream. Values present
// in both, or repeated within one, are yielded as often as they occur.
func Union(a, b Stream) Stream {
	return &union{a: a, b: b}
}

type union struct {
	a, b     Stream
	ha, hb   uint32
	oka, okb bool
	primed   bool
}

func (u *union) Next() (uint32, bool, error) {
	if !u.primed {
		u.primed = true
		var err error
		if u.ha, u.oka, err = u.a.Next(); err != nil {
			return 0, false, err
		}
		if u.hb, u.okb, err = u.b.Next(); err != nil {
			return 0, false, err
		}
	}

	var err error
	switch {
	case u.oka && (!u.okb || u.ha <= u.hb):
		v := u.ha
		u.ha, u.oka, err = u.a.Next()
		return v, err == nil, err
	case u.okb:
		v := u.hb
		u.hb, u.okb, err = u.b.Next()
		return v, err == nil, err
	default:
		return 0, false, nil
	}
}

// FromSlice returns a stream over ids, which must already be ascending.
func FromSlice(ids ...uint32) Stream {
	return &sliceStream{ids: ids}
}

type sliceStream struct {
	ids []uint32
	pos int
}

func (s *sliceStream) Next() (uint32, bool, error) {
	if s.pos >= len(s.ids) {
		return 0, false, nil
	}
	v := s.ids[s.pos]
	s.pos++
	return v, true, nil
}
