package loader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Stage is one idempotent pipeline step.
type Stage interface {
	// Name returns the unique stage name.
	Name() string
	// Done reports whether the stage's output already exists.
	Done(ctx context.Context) (bool, error)
	// Run executes the stage.
	Run(ctx context.Context) error
}

// Observer receives stage lifecycle events.
type Observer interface {
	StageSkipped(name string)
	StageFinished(name string, elapsed time.Duration, err error)
}

// Manager runs registered stages in order.
type Manager struct {
	stages   []Stage
	logger   *zap.Logger
	observer Observer
}

// NewManager creates an empty manager.
func NewManager(logger *zap.Logger, observer Observer) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger, observer: observer}
}

// Register appends a stage. Names must be unique.
func (m *Manager) Register(s Stage) {
	for _, existing := range m.stages {
		if existing.Name() == s.Name() {
			panic(fmt.Sprintf("stage %q registered twice", s.Name()))
		}
	}
	m.stages = append(m.stages, s)
}

// Stages returns the registered stages in order.
func (m *Manager) Stages() []Stage {
	return append([]Stage(nil), m.stages...)
}

// RunAll runs every stage.
func (m *Manager) RunAll(ctx context.Context) error {
	return m.run(ctx, len(m.stages))
}

// RunUntil runs the stages up to and including the named one.
func (m *Manager) RunUntil(ctx context.Context, name string) error {
	for i, s := range m.stages {
		if s.Name() == name {
			return m.run(ctx, i+1)
		}
	}
	return fmt.Errorf("unknown stage %q", name)
}

func (m *Manager) run(ctx context.Context, n int) error {
	for _, s := range m.stages[:n] {
		if err := ctx.Err(); err != nil {
			return err
		}

		log := m.logger.With(zap.String("stage", s.Name()))
		done, err := s.Done(ctx)
		if err != nil {
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
		if done {
			log.Info("Stage already complete, skipping")
			if m.observer != nil {
				m.observer.StageSkipped(s.Name())
			}
			continue
		}

		log.Info("Stage starting")
		start := time.Now()
		err = s.Run(ctx)
		elapsed := time.Since(start)
		if m.observer != nil {
			m.observer.StageFinished(s.Name(), elapsed, err)
		}
		if err != nil {
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
		log.Info("Stage finished", zap.Duration("elapsed", elapsed))
	}
	return nil
}
