package loader_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"corpus-auditor/core/loader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStage struct {
	name string
	done bool
	err  error
	log  *[]string
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Done(ctx context.Context) (bool, error) { return f.done, nil }

func (f *fakeStage) Run(ctx context.Context) error {
	*f.log = append(*f.log, f.name)
	return f.err
}

type recorder struct {
	skipped  []string
	finished []string
}

func (r *recorder) StageSkipped(name string) { r.skipped = append(r.skipped, name) }

func (r *recorder) StageFinished(name string, _ time.Duration, _ error) {
	r.finished = append(r.finished, name)
}

func TestManager_RunAll(t *testing.T) {
	t.Run("RunsInOrderAndSkipsDone", func(t *testing.T) {
		var ran []string
		rec := &recorder{}
		m := loader.NewManager(nil, rec)
		m.Register(&fakeStage{name: "a", log: &ran})
		m.Register(&fakeStage{name: "b", done: true, log: &ran})
		m.Register(&fakeStage{name: "c", log: &ran})

		require.NoError(t, m.RunAll(context.Background()))
		assert.Equal(t, []string{"a", "c"}, ran)
		assert.Equal(t, []string{"b"}, rec.skipped)
		assert.Equal(t, []string{"a", "c"}, rec.finished)
	})

	t.Run("StopsAtFirstError", func(t *testing.T) {
		var ran []string
		boom := errors.New("boom")
		m := loader.NewManager(nil, nil)
		m.Register(&fakeStage{name: "a", err: boom, log: &ran})
		m.Register(&fakeStage{name: "b", log: &ran})

		err := m.RunAll(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "stage a")
		assert.Equal(t, []string{"a"}, ran)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		var ran []string
		m := loader.NewManager(nil, nil)
		m.Register(&fakeStage{name: "a", log: &ran})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, m.RunAll(ctx), context.Canceled)
		assert.Empty(t, ran)
	})
}

func TestManager_RunUntil(t *testing.T) {
	var ran []string
	m := loader.NewManager(nil, nil)
	m.Register(&fakeStage{name: "a", log: &ran})
	m.Register(&fakeStage{name: "b", log: &ran})
	m.Register(&fakeStage{name: "c", log: &ran})

	require.NoError(t, m.RunUntil(context.Background(), "b"))
	assert.Equal(t, []string{"a", "b"}, ran)

	assert.Error(t, m.RunUntil(context.Background(), "nope"))
	assert.Len(t, m.Stages(), 3)
}

func TestManager_DuplicateNamePanics(t *testing.T) {
	var ran []string
	m := loader.NewManager(nil, nil)
	m.Register(&fakeStage{name: "a", log: &ran})
	assert.Panics(t, func() { m.Register(&fakeStage{name: "a", log: &ran}) })
}
