package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biodash/internal/app"
)

func setupWorkspace(t *testing.T) string {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("BIODASH_HISTORY_BACKEND", "sqlite")
	t.Setenv("BIODASH_HISTORY_SQLITE_PATH", filepath.Join(dir, "history.db"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestUsersAndLogin(t *testing.T) {
	setupWorkspace(t)

	_, err := execute(t, "users", "add", "ana")
	assert.Error(t, err, "password is required")

	out, err := execute(t, "users", "add", "ana", "-p", "pw", "--name", "Ana Ruiz")
	require.NoError(t, err)
	assert.Contains(t, out, "Added ana")
	assert.FileExists(t, "usuarios.xml")

	out, err = execute(t, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Ruiz")

	_, err = execute(t, "login", "ana", "-p", "wrong")
	assert.ErrorIs(t, err, app.ErrBadCredentials)

	out, err = execute(t, "login", "ana", "-p", "pw", "--record")
	require.NoError(t, err)
	assert.Contains(t, out, "recorded")

	out, err = execute(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ana")

	_, err = execute(t, "history", "clear")
	assert.Error(t, err)

	out, err = execute(t, "history", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 sessions")

	out, err = execute(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded")
}

func TestTableCommand(t *testing.T) {
	dir := setupWorkspace(t)
	path := filepath.Join(dir, "vitals.csv")
	require.NoError(t, os.WriteFile(path, []byte("hr,ward\n60,A\n61,B\n62,A\n"), 0644))

	out, err := execute(t, "table", path)
	require.NoError(t, err)
	assert.Contains(t, out, "vitals.csv: 3 rows")
	assert.Regexp(t, `hr\s+numeric\s+3`, out)
	assert.Regexp(t, `ward\s+categorical\s+2`, out)
}

func TestImageCommandRejectsUnknownOperation(t *testing.T) {
	setupWorkspace(t)
	_, err := execute(t, "image", "scan.png", "--op", "sharpen")
	assert.Error(t, err)

	_, err = execute(t, "image", "scan.png")
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "config.yaml")
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	_, err = execute(t, "config", "init")
	assert.Error(t, err, "existing file is kept")

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "results_dir: resultados")
	assert.Contains(t, out, "backend: sqlite")
}
