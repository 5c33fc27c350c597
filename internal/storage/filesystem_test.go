package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FilesystemStore {
	t.Helper()

	store, err := NewFilesystemStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return store
}

func TestPutOpenDeleteRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	url, err := store.Put(ctx, "missions/m1/photo.jpg", strings.NewReader("jpegbytes"), 9, "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "/uploads/missions/m1/photo.jpg", url)

	rc, err := store.Open(ctx, "missions/m1/photo.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "jpegbytes", string(data))

	require.NoError(t, store.Delete(ctx, "missions/m1/photo.jpg"))
	_, err = store.Open(ctx, "missions/m1/photo.jpg")
	require.ErrorIs(t, err, ErrObjectNotFound)

	// deleting again is not an error
	require.NoError(t, store.Delete(ctx, "missions/m1/photo.jpg"))
}

func TestPutRejectsEscapingKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "../outside.txt", strings.NewReader("x"), 1, "text/plain")
	require.Error(t, err)

	_, err = store.Put(ctx, "", strings.NewReader("x"), 1, "text/plain")
	require.Error(t, err)
}

func TestNewFilesystemStoreRequiresRoot(t *testing.T) {
	_, err := NewFilesystemStore("  ", "")
	require.Error(t, err)
}
