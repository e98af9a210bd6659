package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/pgpitr/internal/catalog"
	"github.com/kebairia/pgpitr/internal/label"
)

const sampleBackupLabel = `START WAL LOCATION: 0/5000028 (file 000000010000000000000005)
CHECKPOINT LOCATION: 0/5000060
BACKUP METHOD: streamed
BACKUP FROM: primary
START TIME: 2023-01-01 00:00:00 UTC
LABEL: 20230101T000000Z
`

func entry(t *testing.T, name string) catalog.Entry {
	t.Helper()
	l, ok := label.Parse(name)
	require.True(t, ok)
	return catalog.Entry{Label: l, Name: name}
}

func writeBackupLabel(t *testing.T, dest, name, blob string) {
	t.Helper()
	dir := filepath.Join(dest, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.BackupLabelFile), []byte(blob), 0o644))
}

func TestResolveCutoffExtractsSegment(t *testing.T) {
	dest := t.TempDir()
	writeBackupLabel(t, dest, "20230101T000000Z", sampleBackupLabel)

	// Only the oldest entry's metadata exists; the resolver must not touch
	// the newer one.
	set := catalog.Set{
		entry(t, "20230101T000000Z"),
		entry(t, "20230102T000000Z"),
	}

	cutoff, err := ResolveCutoff(dest, set)
	require.NoError(t, err)
	assert.Equal(t, "000000010000000000000005", cutoff)
}

func TestResolveCutoffEmptySet(t *testing.T) {
	_, err := ResolveCutoff(t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrNoBackups)
}

func TestResolveCutoffUnreadableMetadata(t *testing.T) {
	dest := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "20230101T000000Z"), 0o755))

	_, err := ResolveCutoff(dest, catalog.Set{entry(t, "20230101T000000Z")})
	assert.ErrorIs(t, err, ErrMetadataUnavailable)
}

func TestResolveCutoffNoSegmentLine(t *testing.T) {
	dest := t.TempDir()
	writeBackupLabel(t, dest, "20230101T000000Z", "CHECKPOINT LOCATION: 0/5000060\nBACKUP FROM: primary\n")

	_, err := ResolveCutoff(dest, catalog.Set{entry(t, "20230101T000000Z")})
	assert.ErrorIs(t, err, ErrSegmentNotFound)
}

func TestResolveCutoffIgnoresMidLineMarker(t *testing.T) {
	dest := t.TempDir()
	writeBackupLabel(t, dest, "20230101T000000Z",
		"LABEL: notes on START WAL LOCATION: 0/9 (file 000000010000000000000099)\n")

	_, err := ResolveCutoff(dest, catalog.Set{entry(t, "20230101T000000Z")})
	assert.ErrorIs(t, err, ErrSegmentNotFound)
}

func TestResolveCutoffFirstLineWins(t *testing.T) {
	dest := t.TempDir()
	blob := "START WAL LOCATION: 0/5000028 (file 000000010000000000000005)\n" +
		"START WAL LOCATION: 0/7000028 (file 000000010000000000000007)\n"
	writeBackupLabel(t, dest, "20230101T000000Z", blob)

	cutoff, err := ResolveCutoff(dest, catalog.Set{entry(t, "20230101T000000Z")})
	require.NoError(t, err)
	assert.Equal(t, "000000010000000000000005", cutoff)
}
