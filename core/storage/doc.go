// Package storage provides the filesystem layer used by every pipeline stage.
//
// It wraps afero so stages can run against the local disk in production and
// against an in-memory filesystem in tests. On top of the raw filesystem it
// adds the two primitives the pipeline's resumability depends on:
//
//   - AtomicFile: writes go to a uniquely named temporary file beside the
//     target and are renamed into place only on Commit. A crash leaves the
//     target absent, never half-written.
//   - WriteMarker: a zero-content sentinel committed the same way.
//
// # Usage
//
//	out, err := storage.CreateAtomic(fs, "/data/skipped.txt")
//	if err != nil {
//	    return err
//	}
//	defer out.Abort()
//	// ... write ...
//	return out.Commit()
package storage
