package telemetry

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerWritesToFileAndStdout(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stdout bytes.Buffer
	path := filepath.Join(t.TempDir(), "biodash.log")
	closer := initLogger(&stdout, false, path)

	slog.Info("Loaded volume", "slices", 12)
	slog.Debug("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Loaded volume"`)
	assert.Contains(t, string(data), `"slices":12`)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, stdout.String(), "Loaded volume")
}

func TestInitLoggerDebug(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stdout bytes.Buffer
	closer := initLogger(&stdout, true, "")
	slog.Debug("details", "k", "v")
	require.NoError(t, closer.Close())
	assert.Contains(t, stdout.String(), `"level":"DEBUG"`)
}
