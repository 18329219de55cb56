package idstream_test

import (
	"bytes"
	"strings"
	"testing"

	"corpus-auditor/core/idstream"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s idstream.Stream) []uint32 {
	t.Helper()
	var out []uint32
	for {
		id, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, id)
	}
}

func packed(t *testing.T, ids ...uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := idstream.NewPackedWriter(&buf)
	for _, id := range ids {
		require.NoError(t, w.Write(id))
	}
	assert.Equal(t, int64(len(ids)), w.Count())
	return buf.Bytes()
}

func TestPackedRoundTrip(t *testing.T) {
	ids := []uint32{1, 2, 2, 70000, 4294967295}
	data := packed(t, ids...)
	assert.Len(t, data, len(ids)*idstream.WordSize)
	assert.Equal(t, []byte{1, 0, 0, 0}, data[:4], "little-endian words")

	got := drain(t, idstream.NewPackedReader(bytes.NewReader(data), "mem"))
	if diff := cmp.Diff(ids, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPackedReader_Corrupt(t *testing.T) {
	t.Run("TrailingPartialWord", func(t *testing.T) {
		data := append(packed(t, 1, 2), 0x01, 0x02)
		r := idstream.NewPackedReader(bytes.NewReader(data), "mem")
		_, _, _ = r.Next()
		_, _, _ = r.Next()
		_, _, err := r.Next()
		assert.ErrorIs(t, err, idstream.ErrCorruptPacked)
	})

	t.Run("Descending", func(t *testing.T) {
		r := idstream.NewPackedReader(bytes.NewReader(packed(t, 5, 3)), "mem")
		_, _, err := r.Next()
		require.NoError(t, err)
		_, _, err = r.Next()
		assert.ErrorIs(t, err, idstream.ErrCorruptPacked)
	})
}

func TestPackedStat(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.bin", packed(t, 3, 9, 12), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/empty.bin", nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/bad.bin", []byte{1, 2, 3}, 0o644))

	n, last, err := idstream.PackedStat(fs, "/a.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, uint32(12), last)

	n, last, err = idstream.PackedStat(fs, "/empty.bin")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, last)

	_, _, err = idstream.PackedStat(fs, "/bad.bin")
	assert.ErrorIs(t, err, idstream.ErrCorruptPacked)
}

func TestTextReader(t *testing.T) {
	t.Run("SkipsBlankLines", func(t *testing.T) {
		r := idstream.NewTextReader(strings.NewReader("1\n\n 3 \n5"), "mem")
		assert.Equal(t, []uint32{1, 3, 5}, drain(t, r))
	})

	t.Run("Empty", func(t *testing.T) {
		r := idstream.NewTextReader(strings.NewReader(""), "mem")
		assert.Empty(t, drain(t, r))
	})

	t.Run("BadLine", func(t *testing.T) {
		r := idstream.NewTextReader(strings.NewReader("1\nabc\n"), "list.txt")
		_, _, err := r.Next()
		require.NoError(t, err)
		_, _, err = r.Next()
		assert.ErrorIs(t, err, idstream.ErrBadLine)
		assert.Contains(t, err.Error(), "list.txt:2")
	})
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	w := idstream.NewTextWriter(&buf)
	for _, id := range []uint32{4, 10} {
		require.NoError(t, w.Write(id))
	}
	assert.Equal(t, "4\n10\n", buf.String())
	assert.Equal(t, int64(2), w.Count())
}

func TestUnion(t *testing.T) {
	tests := []struct {
		name string
		a, b []uint32
		want []uint32
	}{
		{"Disjoint", []uint32{1, 3, 5}, []uint32{2}, []uint32{1, 2, 3, 5}},
		{"Overlap", []uint32{1, 2}, []uint32{2, 3}, []uint32{1, 2, 2, 3}},
		{"LeftEmpty", nil, []uint32{7}, []uint32{7}},
		{"RightEmpty", []uint32{7}, nil, []uint32{7}},
		{"BothEmpty", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := drain(t, idstream.Union(idstream.FromSlice(tt.a...), idstream.FromSlice(tt.b...)))
			assert.Equal(t, tt.want, got)
		})
	}
}
