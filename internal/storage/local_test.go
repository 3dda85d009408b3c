package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	t.Run("put then get", func(t *testing.T) {
		info, err := store.Put(ctx, "doc.pdf", strings.NewReader("%PDF-1.4 content"), PutObjectOptions{
			Size:        16,
			ContentType: "application/pdf",
		})
		require.NoError(t, err)
		assert.Equal(t, "doc.pdf", info.Key)
		assert.Equal(t, int64(16), info.Size)

		rc, got, err := store.Get(ctx, "doc.pdf")
		require.NoError(t, err)
		defer rc.Close()

		assert.Equal(t, int64(16), got.Size)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 content", string(data))
	})

	t.Run("put overwrites", func(t *testing.T) {
		_, err := store.Put(ctx, "doc.pdf", strings.NewReader("short"), PutObjectOptions{Size: 5})
		require.NoError(t, err)

		info, err := store.Stat(ctx, "doc.pdf")
		require.NoError(t, err)
		assert.Equal(t, int64(5), info.Size)
	})

	t.Run("stat missing", func(t *testing.T) {
		_, err := store.Stat(ctx, "nope.pdf")
		assert.ErrorIs(t, err, ErrNotExist)
	})

	t.Run("get missing", func(t *testing.T) {
		_, _, err := store.Get(ctx, "nope.pdf")
		assert.ErrorIs(t, err, ErrNotExist)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := store.Put(ctx, "gone.pdf", strings.NewReader("x"), PutObjectOptions{Size: 1})
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "gone.pdf"))
		_, err = store.Stat(ctx, "gone.pdf")
		assert.ErrorIs(t, err, ErrNotExist)

		// Deleting again is not an error.
		assert.NoError(t, store.Delete(ctx, "gone.pdf"))
	})

	t.Run("rejects path traversal keys", func(t *testing.T) {
		_, err := store.Stat(ctx, "../escape.pdf")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotExist)

		_, err = store.Put(ctx, "a/b.pdf", strings.NewReader("x"), PutObjectOptions{Size: 1})
		assert.Error(t, err)
	})
}

func TestNewLocal(t *testing.T) {
	_, err := NewLocal("")
	assert.Error(t, err)
}
