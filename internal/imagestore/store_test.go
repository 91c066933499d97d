package imagestore

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bosocmputer/display_audit_gemini/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRead(t *testing.T) {
	store, err := New(t.TempDir(), 1)
	require.NoError(t, err)

	data := []byte("jpeg-bytes")
	location, err := store.Save(data, "bvi_front.JPG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(location, LocationPrefix))
	assert.True(t, strings.HasSuffix(location, ".jpg"), "extension lowercased: %s", location)

	got, err := store.Read(location)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestSaveUniqueLocations(t *testing.T) {
	store, err := New(t.TempDir(), 1)
	require.NoError(t, err)

	a, err := store.Save([]byte("a"), "same.jpg")
	require.NoError(t, err)
	b, err := store.Save([]byte("b"), "same.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	store, err := New(t.TempDir(), 1)
	require.NoError(t, err)

	_, err = store.Save(make([]byte, 2*1024*1024), "big.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTooLarge)
}

func TestReadMissingFile(t *testing.T) {
	store, err := New(t.TempDir(), 1)
	require.NoError(t, err)

	_, err = store.Read(LocationPrefix + "does-not-exist.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReadRejectsTraversal(t *testing.T) {
	store, err := New(t.TempDir(), 1)
	require.NoError(t, err)

	for _, location := range []string{
		LocationPrefix + "../etc/passwd",
		LocationPrefix + "a/b.jpg",
		LocationPrefix,
		"",
	} {
		_, err := store.Read(location)
		assert.ErrorIs(t, err, common.ErrNotFound, "location %q", location)
	}
}
