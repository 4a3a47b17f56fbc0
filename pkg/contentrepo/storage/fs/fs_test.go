package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-repository/pkg/contentrepo/storage"
)

func TestFilesystemBackend(t *testing.T) {
	baseDir := t.TempDir()
	backend, err := New(Config{BaseDir: baseDir})
	require.NoError(t, err)
	ctx := context.Background()

	key := "versions/3f/42/1700000000000000000"

	t.Run("UploadAndDownload", func(t *testing.T) {
		require.NoError(t, backend.Upload(ctx, key, strings.NewReader("first")))
		require.NoError(t, backend.Upload(ctx, key, strings.NewReader("second")))

		reader, err := backend.Download(ctx, key)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(len("second")), meta.Size)
	})

	t.Run("DeleteCleansDirectories", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, key))

		_, err := os.Stat(filepath.Join(baseDir, "versions"))
		assert.True(t, os.IsNotExist(err))

		_, err = backend.Download(ctx, key)
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("List", func(t *testing.T) {
		for _, k := range []string{"versions/3f/42/2", "versions/3f/42/1", "versions/3f/420/1"} {
			require.NoError(t, backend.Upload(ctx, k, strings.NewReader("x")))
		}

		metas, err := backend.List(ctx, "versions/3f/42/")
		require.NoError(t, err)
		require.Len(t, metas, 2)
		assert.Equal(t, "versions/3f/42/1", metas[0].Key)
		assert.Equal(t, "versions/3f/42/2", metas[1].Key)
		assert.Equal(t, int64(1), metas[0].Size)

		metas, err = backend.List(ctx, "versions/00/1/")
		require.NoError(t, err)
		assert.Empty(t, metas)
	})

	t.Run("RejectsEscapingKeys", func(t *testing.T) {
		err := backend.Upload(ctx, "../outside", strings.NewReader("x"))
		assert.Error(t, err)
	})
}

func TestFilesystemBackend_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base directory is required")
}
