package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rotatedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		if e.Name() != "test.log" && strings.HasPrefix(e.Name(), "test.") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestRotatingWriter_RotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 10})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Empty(t, rotatedFiles(t, dir))

	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Len(t, rotatedFiles(t, dir), 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestRotatingWriter_OversizedFirstWriteDoesNotRotate(t *testing.T) {
	dir := t.TempDir()
	w, err := NewRotatingWriter(filepath.Join(dir, "test.log"), RotationConfig{MaxSize: 4})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("longer than four"))
	require.NoError(t, err)
	assert.Empty(t, rotatedFiles(t, dir))
}

func TestRotatingWriter_CleanupMaxBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	for i, name := range []string{"test.a.log", "test.b.log", "test.c.log"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		ts := time.Now().Add(-time.Duration(i+1) * time.Hour)
		require.NoError(t, os.Chtimes(p, ts, ts))
	}

	w, err := NewRotatingWriter(path, RotationConfig{MaxBackups: 1})
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, []string{"test.a.log"}, rotatedFiles(t, dir))
}

func TestRotatingWriter_CleanupMaxAge(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "test.old.log")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	ts := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(old, ts, ts))

	w, err := NewRotatingWriter(filepath.Join(dir, "test.log"), RotationConfig{MaxAge: 1})
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "test.log"), RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
