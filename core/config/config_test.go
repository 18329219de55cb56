package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"corpus-auditor/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Pipeline.Dir)
	assert.Equal(t, "results", cfg.Pipeline.CorpusPrefix)
	assert.Equal(t, "public.txt", cfg.Pipeline.PublicList)
	assert.Equal(t, "private.txt", cfg.Pipeline.PrivateList)
	assert.Equal(t, "skipped.txt", cfg.Pipeline.GapFile)
	assert.Equal(t, "missing.txt", cfg.Pipeline.MissingFile)
	assert.Equal(t, "64MiB", cfg.Sort.BufferSize)
	assert.Equal(t, 64, cfg.Sort.FanIn)
	assert.Equal(t, 256, cfg.Shard.MaxOpen)
	assert.Equal(t, 1, cfg.Shard.PartitionWorkers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SORT_BUFFER_SIZE", "1MiB")
	t.Setenv("SHARD_MAX_OPEN", "8")
	t.Setenv("PIPELINE_GAP_FILE", "gaps.txt")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "1MiB", cfg.Sort.BufferSize)
	assert.Equal(t, 8, cfg.Shard.MaxOpen)
	assert.Equal(t, "gaps.txt", cfg.Pipeline.GapFile)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SORT_FAN_IN=16\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SORT_FAN_IN") })

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Sort.FanIn)
}

func TestValidate(t *testing.T) {
	t.Run("BadBuffer", func(t *testing.T) {
		t.Setenv("SORT_BUFFER_SIZE", "huge")
		cfg, err := config.LoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.ErrorContains(t, cfg.Validate(), "sort")
	})

	t.Run("BadPoolSize", func(t *testing.T) {
		t.Setenv("SHARD_MAX_OPEN", "0")
		cfg, err := config.LoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.ErrorContains(t, cfg.Validate(), "shard")
	})
}
