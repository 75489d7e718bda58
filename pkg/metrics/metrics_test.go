package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poltergeist/phasebuild/pkg/metrics"
)

func TestCollectorCounts(t *testing.T) {
	c := metrics.NewCollector()

	c.BuildFinished("build", time.Second, nil)
	c.BuildFinished("build", time.Second, errors.New("boom"))
	c.PhaseFinished("clean", 10*time.Millisecond)
	c.TaskFinished("clean", "delete", metrics.OutcomeSuccess, time.Millisecond)
	c.TaskFinished("build", "concat", metrics.OutcomeTimeout, time.Millisecond)
	c.TaskMessage("delete", "w")

	expected := `
# HELP phasebuild_builds_total Builds run, by requested phase and result
# TYPE phasebuild_builds_total counter
phasebuild_builds_total{phase="build",result="error"} 1
phasebuild_builds_total{phase="build",result="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "phasebuild_builds_total"))

	count, err := testutil.GatherAndCount(c.Registry(), "phasebuild_tasks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(c.Registry(), "phasebuild_task_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWriteToTextfile(t *testing.T) {
	c := metrics.NewCollector()
	c.TaskFinished("clean", "delete", metrics.OutcomeSuccess, time.Millisecond)

	path := filepath.Join(t.TempDir(), "phasebuild.prom")
	require.NoError(t, c.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `phasebuild_tasks_total{outcome="success",phase="clean",task="delete"} 1`)

	assert.Error(t, c.WriteToTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")))
}
