package shard

import (
	"fmt"

	"github.com/spf13/afero"
)

// ShardReader yields the ids of one sorted shard in file order.
type ShardReader struct {
	f     afero.File
	lr    *lineReader
	entry Entry
}

// OpenShard opens a sorted shard file.
func OpenShard(fs afero.Fs, e Entry) (*ShardReader, error) {
	f, err := fs.Open(e.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shard %s: %w", e.Path, err)
	}
	return &ShardReader{f: f, lr: newLineReader(f), entry: e}, nil
}

// Next returns the id of the next line. Sorted shards hold only validated
// records, so any unreadable line is an error.
func (r *ShardReader) Next() (uint32, bool, error) {
	line, ok, err := r.lr.next()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read shard %s: %w", r.entry.Path, err)
	}
	if !ok {
		return 0, false, nil
	}
	id, err := ExtractID(line)
	if err != nil {
		return 0, false, fmt.Errorf("%s:%d: %w", r.entry.Path, r.lr.line, err)
	}
	return id, true, nil
}

// NextLine returns the next raw line without decoding it. The slice is only
// valid until the following call.
func (r *ShardReader) NextLine() ([]byte, bool, error) {
	line, ok, err := r.lr.next()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read shard %s: %w", r.entry.Path, err)
	}
	return line, ok, nil
}

// Line returns the number of lines read so far.
func (r *ShardReader) Line() int64 { return r.lr.line }

// Close closes the shard file.
func (r *ShardReader) Close() error {
	return r.f.Close()
}

// CorpusStream concatenates every sorted shard in range order, yielding one
// ascending stream of corpus ids. At most one shard is open at a time.
type CorpusStream struct {
	fs      afero.Fs
	entries []Entry
	cur     *ShardReader
	last    uint32
	seen    int64
}

// OpenCorpusStream lists the sorted shards in dir. An unsorted shard is an
// error.
func OpenCorpusStream(fs afero.Fs, dir string) (*CorpusStream, error) {
	entries, err := ListShards(fs, dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.Sorted {
			return nil, fmt.Errorf("%w: %s", errUnsortedShard, e.Path)
		}
	}
	return &CorpusStream{fs: fs, entries: entries}, nil
}

// Next implements idstream.Stream.
func (c *CorpusStream) Next() (uint32, bool, error) {
	for {
		if c.cur == nil {
			if len(c.entries) == 0 {
				return 0, false, nil
			}
			r, err := OpenShard(c.fs, c.entries[0])
			if err != nil {
				return 0, false, err
			}
			c.cur = r
			c.entries = c.entries[1:]
		}

		id, ok, err := c.cur.Next()
		if err != nil {
			return 0, false, err
		}
		if !ok {
			if err := c.cur.Close(); err != nil {
				return 0, false, err
			}
			c.cur = nil
			continue
		}
		if c.seen > 0 && id < c.last {
			return 0, false, fmt.Errorf("shard %s not sorted: %d after %d", c.cur.entry.Path, id, c.last)
		}
		c.last = id
		c.seen++
		return id, true, nil
	}
}

// Close closes the open shard, if any.
func (c *CorpusStream) Close() error {
	if c.cur == nil {
		return nil
	}
	err := c.cur.Close()
	c.cur = nil
	return err
}
