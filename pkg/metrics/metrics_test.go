package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_WriteTextfile(t *testing.T) {
	recorder := NewRecorder("libhal-stm32f1")
	recorder.ObserveConfigure(1500 * time.Millisecond)
	recorder.CountTarget("static_library")
	recorder.CountTarget("test_executable")
	recorder.CountAction("compile")
	recorder.CountAction("compile")
	recorder.SetProbeCacheHits(4)

	path := filepath.Join(t.TempDir(), "textfile", "halbuild.prom")
	require.NoError(t, recorder.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "halbuild_configure_duration_seconds")
	assert.Contains(t, text, `project="libhal-stm32f1"`)
	assert.Contains(t, text, `halbuild_actions_total{kind="compile"`)
	assert.Contains(t, text, "2")
	assert.Contains(t, text, "halbuild_probe_cache_hits_total")
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	// Two recorders must not collide on metric registration.
	first := NewRecorder("a")
	second := NewRecorder("b")
	first.CountTarget("static_library")
	second.CountTarget("static_library")

	dir := t.TempDir()
	require.NoError(t, first.WriteTextfile(filepath.Join(dir, "a.prom")))
	require.NoError(t, second.WriteTextfile(filepath.Join(dir, "b.prom")))
}
