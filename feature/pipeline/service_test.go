package pipeline_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"corpus-auditor/core/extsort"
	"corpus-auditor/core/metrics"
	"corpus-auditor/feature/inventory"
	"corpus-auditor/feature/pipeline"
	"corpus-auditor/feature/shard"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newService(fs afero.Fs, report *bytes.Buffer, m *metrics.Metrics) *pipeline.Service {
	return pipeline.NewService(pipeline.Options{
		Pipeline: defaults(),
		Sort:     extsort.Config{BufferSize: "1KiB", FanIn: 4, SpillCompression: "lz4", Workers: 2},
		Shard:    shard.Config{MaxOpen: 4, PartitionWorkers: 1},
		FS:       fs,
		Report:   report,
		Logger:   zap.NewNop(),
		Metrics:  m,
	})
}

func write(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, "/d/"+name, []byte(content), 0o644))
}

func read(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, "/d/"+name)
	require.NoError(t, err)
	return string(b)
}

func snapshot(t *testing.T, fs afero.Fs) map[string]string {
	t.Helper()
	files := map[string]string{}
	require.NoError(t, afero.Walk(fs, "/d", func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		b, err := afero.ReadFile(fs, path)
		files[path] = string(b)
		return err
	}))
	return files
}

func seedScenario(t *testing.T, fs afero.Fs) {
	write(t, fs, "public.txt", "5\n1\n3\n")
	write(t, fs, "private.txt", "2\n")
	write(t, fs, "results.jsonl", `{"id":"3","title":"c"}`+"\n"+
		`{"title":"a","id":"1"}`+"\n"+
		`{"id":"oops"`+"\n"+
		`{"id":"99999999"}`+"\n")
}

func TestService_Scenario(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedScenario(t, fs)

	var report bytes.Buffer
	m := metrics.New()
	require.NoError(t, newService(fs, &report, m).Run(context.Background()))

	assert.Equal(t, "Gaps: 1\nDropped lines: 1\nMissing: 1\n", report.String())
	assert.Equal(t, "4\n", read(t, fs, "skipped.txt"))
	assert.Equal(t, "5\n", read(t, fs, "missing.txt"))
	assert.Equal(t, "1\n3\n5\n", read(t, fs, "public.txt"))
	assert.Equal(t, "2\n", read(t, fs, "private.txt"))
	assert.Equal(t, `{"title":"a","id":"1"}`+"\n"+`{"id":"3","title":"c"}`+"\n", read(t, fs, "shards/0_99999_sorted.jsonl"))
	assert.Equal(t, `{"id":"99999999"}`+"\n", read(t, fs, "shards/99900000_99999999_sorted.jsonl"))
	assert.Equal(t, "", read(t, fs, "shards.done"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageRuns.WithLabelValues("reconcile", "ran")))

	ok, err := afero.Exists(fs, "/d/.scratch")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_EmptyCorpus(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "public.txt", "10\n")
	write(t, fs, "private.txt", "")
	write(t, fs, "results.jsonl", "")

	var report bytes.Buffer
	require.NoError(t, newService(fs, &report, nil).Run(context.Background()))

	assert.Equal(t, "Gaps: 9\nDropped lines: 0\nMissing: 1\n", report.String())
	assert.Equal(t, "1\n2\n3\n4\n5\n6\n7\n8\n9\n", read(t, fs, "skipped.txt"))
	assert.Equal(t, "10\n", read(t, fs, "missing.txt"))

	entries, err := shard.ListShards(fs, "/d/shards")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedScenario(t, fs)

	var first bytes.Buffer
	require.NoError(t, newService(fs, &first, nil).Run(context.Background()))
	before := snapshot(t, fs)

	var second bytes.Buffer
	m := metrics.New()
	require.NoError(t, newService(fs, &second, m).Run(context.Background()))

	assert.Empty(t, second.String())
	if diff := cmp.Diff(before, snapshot(t, fs)); diff != "" {
		t.Errorf("artifacts changed on second run (-first +second):\n%s", diff)
	}
	for _, name := range []string{"pack", "gaps", "shard", "reconcile"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.StageRuns.WithLabelValues(name, "skipped")), name)
	}
}

func TestService_ResumesAfterPartialRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedScenario(t, fs)

	var report bytes.Buffer
	svc := newService(fs, &report, nil)
	require.NoError(t, svc.RunUntil(context.Background(), "gaps"))
	assert.Equal(t, "Gaps: 1\n", report.String())

	ok, err := afero.Exists(fs, "/d/shards.done")
	require.NoError(t, err)
	assert.False(t, ok)

	// Leftovers of an interrupted shard stage.
	write(t, fs, "shards/0_99999_sorted.jsonl", "garbage\n")

	report.Reset()
	require.NoError(t, newService(fs, &report, nil).Run(context.Background()))
	assert.Equal(t, "Dropped lines: 1\nMissing: 1\n", report.String())
	assert.Equal(t, `{"title":"a","id":"1"}`+"\n"+`{"id":"3","title":"c"}`+"\n", read(t, fs, "shards/0_99999_sorted.jsonl"))
}

func TestService_InventoryFailureCreatesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "public.txt", "1\n")
	write(t, fs, "results.jsonl", `{"id":"1"}`+"\n")
	before := snapshot(t, fs)

	var report bytes.Buffer
	err := newService(fs, &report, nil).Run(context.Background())
	assert.ErrorIs(t, err, inventory.ErrMissingArtifact)
	assert.Empty(t, report.String())
	assert.Equal(t, before, snapshot(t, fs))
}

func TestService_RunUntilUnknownStage(t *testing.T) {
	err := newService(afero.NewMemMapFs(), &bytes.Buffer{}, nil).RunUntil(context.Background(), "nope")
	assert.Error(t, err)
}

func TestService_StageNames(t *testing.T) {
	svc := newService(afero.NewMemMapFs(), &bytes.Buffer{}, nil)
	assert.Equal(t, []string{"inventory", "pack", "gaps", "shard", "reconcile"}, svc.StageNames())
}

func TestService_Status(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedScenario(t, fs)
	svc := newService(fs, &bytes.Buffer{}, nil)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Stages, 5)
	assert.True(t, st.Stages[0].Done)
	assert.Equal(t, "1 corpus files", st.Stages[0].Detail)
	assert.False(t, st.Stages[1].Done)
	assert.Equal(t, int64(-1), st.Public)
	assert.Equal(t, int64(-1), st.Processed())
	assert.Equal(t, int64(-1), st.Remaining())

	require.NoError(t, svc.Run(context.Background()))

	st, err = svc.Status(context.Background())
	require.NoError(t, err)
	for _, s := range st.Stages {
		assert.True(t, s.Done, s.Name)
	}
	assert.Equal(t, int64(3), st.Public)
	assert.Equal(t, int64(1), st.Private)
	assert.Equal(t, uint32(5), st.MaxObserved)
	assert.Equal(t, int64(4), st.Processed())
	assert.Equal(t, int64(1), st.Gaps)
	assert.Equal(t, int64(1), st.Remaining())
	assert.Equal(t, int64(1), st.Missing)
	assert.InDelta(t, 80.0, st.Progress(), 0.001)
}

func TestStatus_Remaining(t *testing.T) {
	tests := []struct {
		name string
		st   pipeline.Status
		want int64
	}{
		{"FromGaps", pipeline.Status{Public: 3, Private: 1, MaxObserved: 5, Gaps: 2}, 2},
		{"Estimated", pipeline.Status{Public: 3, Private: 1, MaxObserved: 10, Gaps: -1}, 6},
		{"DuplicatesClamp", pipeline.Status{Public: 4, Private: 4, MaxObserved: 5, Gaps: -1}, 0},
		{"Unknown", pipeline.Status{Public: -1, Private: 1, MaxObserved: 5, Gaps: -1}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.st.Remaining())
		})
	}
}
