package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies a stream compression format.
type Codec string

const (
	None   Codec = "none"
	Gzip   Codec = "gzip"
	Zstd   Codec = "zstd"
	LZ4    Codec = "lz4"
	Snappy Codec = "snappy"
)

// CorpusExt is the extension every raw corpus file carries before any
// compression suffix.
const CorpusExt = ".jsonl"

var suffixes = map[string]Codec{
	"":     None,
	".gz":  Gzip,
	".zst": Zstd,
	".lz4": LZ4,
	".sz":  Snappy,
}

// Parse converts a configuration string into a Codec.
func Parse(s string) (Codec, error) {
	switch c := Codec(strings.ToLower(s)); c {
	case None, Gzip, Zstd, LZ4, Snappy:
		return c, nil
	case "":
		return None, nil
	default:
		return "", fmt.Errorf("unknown codec %q", s)
	}
}

// Match reports whether name is a raw corpus file for the given prefix and,
// if so, which codec it uses.
func Match(name, prefix string) (Codec, bool) {
	if !strings.HasPrefix(name, prefix) {
		return "", false
	}
	idx := strings.LastIndex(name, CorpusExt)
	if idx < len(prefix) {
		return "", false
	}
	c, ok := suffixes[name[idx+len(CorpusExt):]]
	return c, ok
}

// NewReader wraps r with a decompressor for c.
func NewReader(r io.Reader, c Codec) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return zr, nil
	case Zstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return zstdReadCloser{zr}, nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", c)
	}
}

// NewWriter wraps w with a compressor for c. Closing the returned writer
// flushes the compressor but does not close w.
func NewWriter(w io.Writer, c Codec) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd writer: %w", err)
		}
		return zw, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", c)
	}
}

type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
