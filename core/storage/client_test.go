package storage_test

import (
	"testing"

	"corpus-auditor/core/storage"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicFile(t *testing.T) {
	t.Run("CommitPublishes", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/data", 0o755))

		out, err := storage.CreateAtomic(fs, "/data/out.txt")
		require.NoError(t, err)
		_, err = out.WriteString("hello\n")
		require.NoError(t, err)

		ok, err := storage.Exists(fs, "/data/out.txt")
		require.NoError(t, err)
		assert.False(t, ok, "target must not exist before commit")

		require.NoError(t, out.Commit())
		data, err := afero.ReadFile(fs, "/data/out.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))

		entries, err := storage.ListDir(fs, "/data")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.NoError(t, out.Abort(), "abort after commit is a no-op")
	})

	t.Run("AbortLeavesNothing", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/data", 0o755))

		out, err := storage.CreateAtomic(fs, "/data/out.txt")
		require.NoError(t, err)
		_, err = out.WriteString("partial")
		require.NoError(t, err)
		require.NoError(t, out.Abort())

		entries, err := storage.ListDir(fs, "/data")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("CommitOverwrites", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/data/list.txt", []byte("3\n1\n"), 0o644))

		out, err := storage.CreateAtomic(fs, "/data/list.txt")
		require.NoError(t, err)
		_, err = out.WriteString("1\n3\n")
		require.NoError(t, err)
		require.NoError(t, out.Commit())

		data, err := afero.ReadFile(fs, "/data/list.txt")
		require.NoError(t, err)
		assert.Equal(t, "1\n3\n", string(data))
	})
}

func TestWriteMarker(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o755))
	require.NoError(t, storage.WriteMarker(fs, "/data/done"))

	info, err := fs.Stat("/data/done")
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestIsTemp(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o755))
	out, err := storage.CreateAtomic(fs, "/data/x.jsonl")
	require.NoError(t, err)
	defer out.Abort()

	entries, err := storage.ListDir(fs, "/data")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, storage.IsTemp(entries[0].Name()))
	assert.False(t, storage.IsTemp("x.jsonl"))
}

func TestReadOnlyClient(t *testing.T) {
	fs := storage.NewReadOnlyClient()
	_, err := storage.CreateAtomic(fs, t.TempDir()+"/nope")
	assert.Error(t, err)
}
