package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Config holds the target directory and the artifact names.
type Config struct {
	Dir          string `mapstructure:"dir" default:"."`
	CorpusPrefix string `mapstructure:"corpus_prefix" default:"results"`

	PublicList  string `mapstructure:"public_list" default:"public.txt"`
	PrivateList string `mapstructure:"private_list" default:"private.txt"`

	PublicPacked  string `mapstructure:"public_packed" default:"public.bin"`
	PrivatePacked string `mapstructure:"private_packed" default:"private.bin"`

	GapFile     string `mapstructure:"gap_file" default:"skipped.txt"`
	MissingFile string `mapstructure:"missing_file" default:"missing.txt"`
	ShardDir    string `mapstructure:"shard_dir" default:"shards"`
	Marker      string `mapstructure:"marker" default:"shards.done"`

	// ScratchDir holds temporary sort data. Empty means <dir>/.scratch.
	ScratchDir string `mapstructure:"scratch_dir" default:""`
}

// Validate checks that every artifact name is a distinct plain file name.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dir must not be empty")
	}
	names := map[string]string{
		"corpus_prefix":  c.CorpusPrefix,
		"public_list":    c.PublicList,
		"private_list":   c.PrivateList,
		"public_packed":  c.PublicPacked,
		"private_packed": c.PrivatePacked,
		"gap_file":       c.GapFile,
		"missing_file":   c.MissingFile,
		"shard_dir":      c.ShardDir,
		"marker":         c.Marker,
	}
	seen := make(map[string]string, len(names))
	for key, name := range names {
		if name == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
		if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
			return fmt.Errorf("%s must be a plain file name, got %q", key, name)
		}
		if key == "corpus_prefix" {
			continue
		}
		if other, ok := seen[name]; ok {
			return fmt.Errorf("%s and %s both name %q", key, other, name)
		}
		seen[name] = key
	}
	return nil
}

// Path returns name inside the target directory.
func (c Config) Path(name string) string {
	return filepath.Join(c.Dir, name)
}

// Scratch returns the scratch directory.
func (c Config) Scratch() string {
	if c.ScratchDir == "" {
		return filepath.Join(c.Dir, ".scratch")
	}
	return c.ScratchDir
}
