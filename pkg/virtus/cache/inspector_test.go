package cache_test

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuscloud/virtus/pkg/virtus/archive"
	"github.com/virtuscloud/virtus/pkg/virtus/cache"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

func zipBytes(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestInspectorUsesStore(t *testing.T) {
	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	data := zipBytes(t, map[string]string{
		"config.virtus": "entrypoint = server.py\n",
		"server.py":     "print('hi')",
		"style.css":     "",
	}, "config.virtus", "server.py", "style.css")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	insp := archive.NewInspector(archive.Options{Cache: store})
	defer insp.Close()

	insp.Select(ctx, types.NewMemoryHandle("first.zip", data))
	require.NoError(t, insp.Wait(ctx))
	first := insp.Snapshot()
	require.Equal(t, archive.StateReady, first.State)
	assert.Equal(t, "server.py", first.Entrypoint)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Same bytes under a different name hit the stored entry.
	insp.Select(ctx, types.NewMemoryHandle("second.zip", data))
	require.NoError(t, insp.Wait(ctx))
	second := insp.Snapshot()
	require.NotNil(t, second.Result)
	assert.Equal(t, "second.zip", second.Result.Archive)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, []string{"server.py"}, second.Candidates)
	assert.Equal(t, "server.py", second.Entrypoint)
	assert.Equal(t, first.Result.Digest, second.Result.Digest)

	n, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
