package pack_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuscloud/virtus/pkg/virtus/pack"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = string(b)
	}
	return out
}

func TestPack(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"config.virtus":           "entrypoint = src/index.js\n",
		"src/index.js":            "console.log(1)",
		"src/lib/util.js":         "export {}",
		".git/HEAD":               "ref: refs/heads/main",
		"node_modules/x/index.js": "",
	})

	var buf bytes.Buffer
	summary, err := pack.Pack(context.Background(), dir, &buf, pack.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"config.virtus", "src/index.js", "src/lib/util.js"}, summary.Files)
	assert.Equal(t, int64(len("entrypoint = src/index.js\n")+len("console.log(1)")+len("export {}")), summary.Bytes)

	members := readZip(t, buf.Bytes())
	assert.Len(t, members, 3)
	assert.Equal(t, "console.log(1)", members["src/index.js"])
}

func TestPack_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"b.py": "b", "a.py": "a", "sub/c.py": "c"})

	var first, second bytes.Buffer
	_, err := pack.Pack(context.Background(), dir, &first, pack.Options{})
	require.NoError(t, err)
	_, err = pack.Pack(context.Background(), dir, &second, pack.Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Bytes(), second.Bytes())

	zr, err := zip.NewReader(bytes.NewReader(first.Bytes()), int64(first.Len()))
	require.NoError(t, err)
	for _, f := range zr.File {
		assert.True(t, f.Modified.Equal(pack.Epoch), "member %s has time %v", f.Name, f.Modified)
	}
}

func TestPack_CustomExclude(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"main.go": "package main", "notes.md": "x", "docs/a.md": "y"})

	var buf bytes.Buffer
	summary, err := pack.Pack(context.Background(), dir, &buf, pack.Options{Exclude: []string{"**.md"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, summary.Files)
}

func TestPack_Errors(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		_, err := pack.Pack(context.Background(), t.TempDir(), io.Discard, pack.Options{})
		assert.ErrorIs(t, err, pack.ErrEmpty)
	})

	t.Run("not a directory", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
		_, err := pack.Pack(context.Background(), f, io.Discard, pack.Options{})
		assert.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		dir := t.TempDir()
		writeTree(t, dir, map[string]string{"a.js": ""})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := pack.Pack(ctx, dir, io.Discard, pack.Options{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPackFile_SkipsOutput(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"app.rb": "puts 1"})
	out := filepath.Join(dir, "bundle.zip")

	summary, err := pack.PackFile(context.Background(), dir, out, pack.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.rb"}, summary.Files)

	// Re-packing must not include the previous bundle.
	summary, err = pack.PackFile(context.Background(), dir, out, pack.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.rb"}, summary.Files)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, readZip(t, data), "app.rb")

	leftovers, err := filepath.Glob(filepath.Join(dir, ".virtus-pack-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
