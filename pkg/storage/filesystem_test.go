package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("bundles/abc.json", []byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, "bundles/abc.json", name)

	file, err := store.Open("bundles/abc.json")
	require.NoError(t, err)
	buf := make([]byte, 32)
	n, _ := file.Read(buf)
	require.NoError(t, file.Close())
	assert.Equal(t, `{"ok":true}`, string(buf[:n]))

	require.NoError(t, store.Delete("bundles/abc.json"))
	_, err = store.Open("bundles/abc.json")
	require.Error(t, err)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete("bundles/abc.json"))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("bundles/old.json", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("bundles/new.json", []byte("new"))
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "bundles", "old.json"), stale, stale))

	removed, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("bundles", "old.json")}, removed)

	_, err = store.Open("bundles/old.json")
	require.Error(t, err)
	file, err := store.Open("bundles/new.json")
	require.NoError(t, err)
	require.NoError(t, file.Close())
}
