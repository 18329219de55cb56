package shard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"corpus-auditor/core/codec"
	"corpus-auditor/core/storage"

	"github.com/spf13/afero"
)

// Width is the number of identifiers covered by one shard.
const Width = 100000

const sortedSuffix = "_sorted"

// ErrBadShardName is returned for a file in the shard directory that is not
// a shard.
var ErrBadShardName = errors.New("unexpected file in shard directory")

// Range is the closed identifier interval [Start, End] covered by a shard.
type Range struct {
	Start uint64
	End   uint64
}

// RangeOf returns the shard range containing id.
func RangeOf(id uint32) Range {
	start := uint64(id) / Width * Width
	return Range{Start: start, End: start + Width - 1}
}

// Contains reports whether id falls in r.
func (r Range) Contains(id uint32) bool {
	return uint64(id) >= r.Start && uint64(id) <= r.End
}

func (r Range) String() string {
	return strconv.FormatUint(r.Start, 10) + "_" + strconv.FormatUint(r.End, 10)
}

// UnsortedName is the file name of the shard's append-only form.
func (r Range) UnsortedName() string {
	return r.String() + codec.CorpusExt
}

// SortedName is the file name of the shard's final form.
func (r Range) SortedName() string {
	return r.String() + sortedSuffix + codec.CorpusExt
}

// ParseName parses a shard file name.
func ParseName(name string) (r Range, sorted bool, err error) {
	base, ok := strings.CutSuffix(name, codec.CorpusExt)
	if !ok {
		return Range{}, false, fmt.Errorf("%w: %s", ErrBadShardName, name)
	}
	base, sorted = strings.CutSuffix(base, sortedSuffix)

	startStr, endStr, ok := strings.Cut(base, "_")
	if !ok {
		return Range{}, false, fmt.Errorf("%w: %s", ErrBadShardName, name)
	}
	start, err := strconv.ParseUint(startStr, 10, 64)
	if err != nil {
		return Range{}, false, fmt.Errorf("%w: %s", ErrBadShardName, name)
	}
	end, err := strconv.ParseUint(endStr, 10, 64)
	if err != nil {
		return Range{}, false, fmt.Errorf("%w: %s", ErrBadShardName, name)
	}
	if start%Width != 0 || end != start+Width-1 || start > uint64(^uint32(0)) {
		return Range{}, false, fmt.Errorf("%w: %s: not a shard range", ErrBadShardName, name)
	}
	return Range{Start: start, End: end}, sorted, nil
}

// Entry is one shard file on disk.
type Entry struct {
	Range
	Sorted bool
	Path   string
}

// ListShards returns the shard files in dir ordered by range, unsorted form
// first. Uncommitted temporary files are ignored. A missing dir yields no
// entries.
func ListShards(fs afero.Fs, dir string) ([]Entry, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || storage.IsTemp(info.Name()) {
			continue
		}
		r, sorted, err := ParseName(info.Name())
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Range: r, Sorted: sorted, Path: filepath.Join(dir, info.Name())})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Start != entries[j].Start {
			return entries[i].Start < entries[j].Start
		}
		return !entries[i].Sorted && entries[j].Sorted
	})
	return entries, nil
}
