package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// tempInfix marks in-flight files so listings can tell them apart from artifacts.
const tempInfix = ".tmp-"

// NewClient returns the local-disk filesystem.
func NewClient() afero.Fs {
	return afero.NewOsFs()
}

// NewReadOnlyClient returns the local-disk filesystem with every mutation rejected.
func NewReadOnlyClient() afero.Fs {
	return afero.NewReadOnlyFs(afero.NewOsFs())
}

// Exists reports whether path exists.
func Exists(fs afero.Fs, path string) (bool, error) {
	ok, err := afero.Exists(fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return ok, nil
}

// ListDir returns the immediate entries of dir, sorted by name. It never recurses.
func ListDir(fs afero.Fs, dir string) ([]os.FileInfo, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return entries, nil
}

// IsTemp reports whether name belongs to an uncommitted AtomicFile.
func IsTemp(name string) bool {
	return strings.Contains(filepath.Base(name), tempInfix)
}

// AtomicFile is a buffered writer whose content becomes visible at its target
// path only after Commit.
type AtomicFile struct {
	fs   afero.Fs
	f    afero.File
	w    *bufio.Writer
	path string
	tmp  string
	done bool
}

// CreateAtomic opens a new temporary file next to path.
func CreateAtomic(fs afero.Fs, path string) (*AtomicFile, error) {
	tmp := path + tempInfix + uuid.NewString()
	f, err := fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	return &AtomicFile{
		fs:   fs,
		f:    f,
		w:    bufio.NewWriterSize(f, 256*1024),
		path: path,
		tmp:  tmp,
	}, nil
}

// Path returns the final path of the file.
func (a *AtomicFile) Path() string { return a.path }

func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.w.Write(p)
}

// WriteString writes s to the file.
func (a *AtomicFile) WriteString(s string) (int, error) {
	return a.w.WriteString(s)
}

// Commit flushes, syncs and renames the file into place.
func (a *AtomicFile) Commit() error {
	if a.done {
		return fmt.Errorf("%s already finished", a.path)
	}
	a.done = true

	if err := a.w.Flush(); err != nil {
		_ = a.f.Close()
		_ = a.fs.Remove(a.tmp)
		return fmt.Errorf("failed to flush %s: %w", a.tmp, err)
	}
	if err := a.f.Sync(); err != nil {
		_ = a.f.Close()
		_ = a.fs.Remove(a.tmp)
		return fmt.Errorf("failed to sync %s: %w", a.tmp, err)
	}
	if err := a.f.Close(); err != nil {
		_ = a.fs.Remove(a.tmp)
		return fmt.Errorf("failed to close %s: %w", a.tmp, err)
	}
	if err := a.fs.Rename(a.tmp, a.path); err != nil {
		_ = a.fs.Remove(a.tmp)
		return fmt.Errorf("failed to commit %s: %w", a.path, err)
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit, so it is
// safe to defer.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	_ = a.f.Close()
	if err := a.fs.Remove(a.tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", a.tmp, err)
	}
	return nil
}

// WriteMarker atomically creates an empty sentinel file at path.
func WriteMarker(fs afero.Fs, path string) error {
	m, err := CreateAtomic(fs, path)
	if err != nil {
		return err
	}
	return m.Commit()
}
