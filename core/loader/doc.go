// Package loader provides the stage registry that drives the pipeline.
//
// Each pipeline stage implements the Stage interface. The Manager runs
// registered stages strictly in registration order and gates each one on its
// own completion check, which is how the pipeline resumes after a crash:
// a stage whose output artifact already exists is skipped, and the first
// stage without one runs again from scratch.
//
// # Stage Interface
//
//	type Stage interface {
//	    Name() string
//	    Done(ctx context.Context) (bool, error)
//	    Run(ctx context.Context) error
//	}
//
// # Manager
//
//   - Register() adds a stage at the end of the sequence.
//   - RunAll() runs every stage.
//   - RunUntil() runs the sequence up to and including a named stage.
//
// An Observer can be attached to receive skip/finish events (used for metrics).
package loader
