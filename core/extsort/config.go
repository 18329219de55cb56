package extsort

import (
	"fmt"
	"runtime"

	"corpus-auditor/core/codec"

	"github.com/dustin/go-humanize"
)

// Config holds the tunables for external sorting.
type Config struct {
	// BufferSize is the in-memory buffer per sorter, as a byte string (e.g. 64MiB).
	BufferSize string `mapstructure:"buffer_size" default:"64MiB"`
	// FanIn is the maximum number of runs merged at once.
	FanIn int `mapstructure:"fan_in" default:"64"`
	// SpillCompression is the run file codec: lz4 or none.
	SpillCompression string `mapstructure:"spill_compression" default:"lz4"`
	// Workers is the number of sorts allowed to run in parallel. 0 means NumCPU.
	Workers int `mapstructure:"workers" default:"0"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	_, err := c.Options("")
	return err
}

// Options converts the configuration into sorter options rooted at dir.
func (c Config) Options(dir string) (Options, error) {
	size, err := humanize.ParseBytes(c.BufferSize)
	if err != nil {
		return Options{}, fmt.Errorf("invalid sort buffer size %q: %w", c.BufferSize, err)
	}
	comp, err := codec.Parse(c.SpillCompression)
	if err != nil {
		return Options{}, fmt.Errorf("invalid spill compression: %w", err)
	}
	if comp != codec.None && comp != codec.LZ4 {
		return Options{}, fmt.Errorf("spill compression must be lz4 or none, got %q", c.SpillCompression)
	}
	opts := Options{
		Dir:         dir,
		BufferSize:  int64(size),
		FanIn:       c.FanIn,
		Compression: comp,
	}
	return opts, opts.validate()
}

// ParallelWorkers returns the effective worker count.
func (c Config) ParallelWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// Options configures a single Sorter.
type Options struct {
	// Dir is the scratch directory for run files. It is created if missing.
	Dir string
	// BufferSize is the approximate number of bytes buffered before a spill.
	BufferSize int64
	// FanIn is the maximum number of runs open during a merge.
	FanIn int
	// Compression is the run file codec (codec.None or codec.LZ4).
	Compression codec.Codec
}

func (o Options) validate() error {
	if o.BufferSize <= 0 {
		return fmt.Errorf("sort buffer size must be positive, got %d", o.BufferSize)
	}
	if o.FanIn < 2 {
		return fmt.Errorf("sort fan-in must be at least 2, got %d", o.FanIn)
	}
	return nil
}
