package wal

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/pgpitr/internal/logger"
)

func writeSegment(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "000000010000000000000007")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestArchiveStoresSegment(t *testing.T) {
	archiveDir := filepath.Join(t.TempDir(), "wal_archive")
	segment := writeSegment(t, []byte("segment-bytes"))

	a := NewArchiver(WithArchiverLogger(logger.Nop()))
	stored, err := a.Archive(archiveDir, segment)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archiveDir, "000000010000000000000007"), stored)

	content, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, []byte("segment-bytes"), content)

	info, err := os.Stat(stored)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// No staging leftovers.
	names, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestArchiveCompressed(t *testing.T) {
	archiveDir := filepath.Join(t.TempDir(), "wal_archive")
	payload := bytes.Repeat([]byte("wal page "), 1024)
	segment := writeSegment(t, payload)

	a := NewArchiver(WithCompression(true), WithArchiverLogger(logger.Nop()))
	stored, err := a.Archive(archiveDir, segment)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archiveDir, "000000010000000000000007.zst"), stored)

	f, err := os.Open(stored)
	require.NoError(t, err)
	defer f.Close()

	zr, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	restored, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, restored)
}

func TestArchiveOverwritesExisting(t *testing.T) {
	archiveDir := filepath.Join(t.TempDir(), "wal_archive")
	segment := writeSegment(t, []byte("fresh"))

	require.NoError(t, os.MkdirAll(archiveDir, 0o755))
	stale := filepath.Join(archiveDir, "000000010000000000000007")
	require.NoError(t, os.WriteFile(stale, []byte("stale partial copy"), 0o600))

	a := NewArchiver(WithArchiverLogger(logger.Nop()))
	stored, err := a.Archive(archiveDir, segment)
	require.NoError(t, err)

	content, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), content)
}

func TestArchiveMissingSegment(t *testing.T) {
	a := NewArchiver(WithArchiverLogger(logger.Nop()))

	_, err := a.Archive(t.TempDir(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open WAL segment")
}
