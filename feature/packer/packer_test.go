package packer_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"corpus-auditor/core/extsort"
	"corpus-auditor/core/metrics"
	"corpus-auditor/feature/packer"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decode(t *testing.T, fs afero.Fs, path string) []uint32 {
	t.Helper()
	b, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.Zero(t, len(b)%4)
	out := make([]uint32, 0, len(b)/4)
	for i := 0; i < len(b); i += 4 {
		out = append(out, binary.LittleEndian.Uint32(b[i:]))
	}
	return out
}

func smallSort(dir string) extsort.Options {
	return extsort.Options{Dir: dir, BufferSize: 200, FanIn: 2}
}

func TestPack(t *testing.T) {
	t.Run("SortsAndRewrites", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/d/public.txt", []byte("5\n3\n\n1\n3\n"), 0o644))

		list := packer.List{Label: "public", Text: "/d/public.txt", Packed: "/d/public.bin"}
		res, err := packer.Pack(context.Background(), fs, list, smallSort("/scratch"))
		require.NoError(t, err)
		assert.Equal(t, int64(4), res.Count)
		assert.Equal(t, uint32(5), res.Max)

		if diff := cmp.Diff([]uint32{1, 3, 3, 5}, decode(t, fs, "/d/public.bin")); diff != "" {
			t.Errorf("packed mismatch (-want +got):\n%s", diff)
		}
		text, err := afero.ReadFile(fs, "/d/public.txt")
		require.NoError(t, err)
		assert.Equal(t, "1\n3\n3\n5\n", string(text))
	})

	t.Run("RoundTripLarge", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		var sb strings.Builder
		want := make([]uint32, 0, 500)
		for i := 500; i >= 1; i-- {
			fmt.Fprintf(&sb, "%d\n", i*7)
		}
		for i := 1; i <= 500; i++ {
			want = append(want, uint32(i*7))
		}
		require.NoError(t, afero.WriteFile(fs, "/d/a.txt", []byte(sb.String()), 0o644))

		res, err := packer.Pack(context.Background(), fs, packer.List{Text: "/d/a.txt", Packed: "/d/a.bin"}, smallSort("/scratch"))
		require.NoError(t, err)
		assert.Greater(t, res.Spills, 1)
		if diff := cmp.Diff(want, decode(t, fs, "/d/a.bin")); diff != "" {
			t.Errorf("packed mismatch (-want +got):\n%s", diff)
		}

		runs, err := afero.ReadDir(fs, "/scratch")
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("EmptyList", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/d/b.txt", nil, 0o644))

		res, err := packer.Pack(context.Background(), fs, packer.List{Text: "/d/b.txt", Packed: "/d/b.bin"}, smallSort("/scratch"))
		require.NoError(t, err)
		assert.Zero(t, res.Count)
		ok, err := afero.Exists(fs, "/d/b.bin")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("CorruptList", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/d/a.txt", []byte("1\n2x\n"), 0o644))

		_, err := packer.Pack(context.Background(), fs, packer.List{Text: "/d/a.txt", Packed: "/d/a.bin"}, smallSort("/scratch"))
		assert.ErrorIs(t, err, packer.ErrCorruptList)
		assert.Contains(t, err.Error(), "/d/a.txt:2")

		ok, err := afero.Exists(fs, "/d/a.bin")
		require.NoError(t, err)
		assert.False(t, ok)
		text, err := afero.ReadFile(fs, "/d/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "1\n2x\n", string(text))
	})

	t.Run("ZeroIsCorrupt", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/d/a.txt", []byte("0\n"), 0o644))

		_, err := packer.Pack(context.Background(), fs, packer.List{Text: "/d/a.txt", Packed: "/d/a.bin"}, smallSort("/scratch"))
		assert.ErrorIs(t, err, packer.ErrCorruptList)
	})
}

func TestStage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d/public.txt", []byte("3\n1\n5\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/d/private.txt", []byte("2\n"), 0o644))

	lists := []packer.List{
		{Label: "public", Text: "/d/public.txt", Packed: "/d/public.bin"},
		{Label: "private", Text: "/d/private.txt", Packed: "/d/private.bin"},
	}
	m := metrics.New()
	s := packer.NewStage(fs, lists, extsort.Config{BufferSize: "1KiB", FanIn: 4, SpillCompression: "lz4"}, "/d/.scratch", zap.NewNop(), m)
	assert.Equal(t, packer.Name, s.Name())

	done, err := s.Done(context.Background())
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.Run(context.Background()))

	done, err = s.Done(context.Background())
	require.NoError(t, err)
	assert.True(t, done)

	assert.Equal(t, []uint32{1, 3, 5}, decode(t, fs, "/d/public.bin"))
	assert.Equal(t, []uint32{2}, decode(t, fs, "/d/private.bin"))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PackedIDs.WithLabelValues("public")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PackedIDs.WithLabelValues("private")))

	ok, err := afero.Exists(fs, "/d/.scratch/pack")
	require.NoError(t, err)
	assert.False(t, ok)
}
