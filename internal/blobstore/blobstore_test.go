package blobstore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutAndDelete(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/avatars/")
	require.NoError(t, err)

	name, url, err := store.Put("image/png", strings.NewReader("not really a png"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".png"))
	require.Equal(t, "/avatars/"+name, url)

	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	require.NoError(t, err)
	require.Equal(t, "not really a png", string(data))

	require.NoError(t, store.Delete(name))
	_, err = os.Stat(filepath.Join(store.Dir(), name))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPutRejectsUnsupportedType(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/avatars")
	require.NoError(t, err)

	_, _, err = store.Put("image/gif", strings.NewReader("gif"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPutRejectsOversizedObject(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/avatars")
	require.NoError(t, err)

	_, _, err = store.Put("image/jpeg", bytes.NewReader(make([]byte, MaxObjectSize+1)))
	require.ErrorIs(t, err, ErrTooLarge)

	// Nothing is left behind after a rejected upload.
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPutAcceptsObjectAtLimit(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/avatars")
	require.NoError(t, err)

	_, _, err = store.Put("image/jpeg", bytes.NewReader(make([]byte, MaxObjectSize)))
	require.NoError(t, err)
}

func TestDeleteIgnoresAbsentName(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/avatars")
	require.NoError(t, err)

	require.NoError(t, store.Delete("gone.png"))
	require.NoError(t, store.Delete(""))
}

func TestDeleteRejectsPathTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/avatars")
	require.NoError(t, err)

	require.Error(t, store.Delete("../secrets.txt"))
}
