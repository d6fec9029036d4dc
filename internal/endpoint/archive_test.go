package endpoint

import (
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string, order []string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)

		_, err = w.Write([]uint8(files[name]))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func Test_IsArchive(t *testing.T) {
	assert.True(t, IsArchive("input.zip"))
	assert.True(t, IsArchive("INPUT.7Z"))
	assert.True(t, IsArchive("log.txt.gz"))
	assert.False(t, IsArchive("input.txt"))
	assert.False(t, IsArchive("input"))
}

func Test_LoadArchiveZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.zip")
	writeZip(t, path, map[string]string{"dir/": "", "first.txt": "first", "second.txt": "second"}, []string{"dir/", "first.txt", "second.txt"})

	data, err := LoadArchive(path)
	require.NoError(t, err)
	assert.Equal(t, []uint8("first"), data)
}

func Test_LoadArchiveEmptyZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	writeZip(t, path, nil, nil)

	_, err := LoadArchive(path)
	assert.ErrorIs(t, err, ErrEmptyArchive)
}

func Test_LoadArchiveGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt.gz")

	f, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	_, err = gz.Write([]uint8("compressed stream"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	data, err := LoadArchive(path)
	require.NoError(t, err)
	assert.Equal(t, []uint8("compressed stream"), data)
}

func Test_LoadArchiveErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadArchive(filepath.Join(dir, "in.rar"))
	assert.ErrorIs(t, err, ErrUnsupportedArchive)

	_, err = LoadArchive(filepath.Join(dir, "missing.7z"))
	assert.Error(t, err)

	bogus := filepath.Join(dir, "bogus.7z")
	require.NoError(t, os.WriteFile(bogus, []uint8("not an archive"), 0o644))

	_, err = LoadArchive(bogus)
	assert.Error(t, err)
}
