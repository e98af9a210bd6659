package wal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kebairia/pgpitr/internal/catalog"
)

// Recoverable resolution failures. Callers log a warning, skip archive
// cleanup and still report the run as successful.
var (
	ErrNoBackups           = errors.New("no backups found at destination")
	ErrMetadataUnavailable = errors.New("backup metadata unavailable")
	ErrSegmentNotFound     = errors.New("no WAL segment named in backup metadata")
)

// startLocation matches the backup_label line naming the first WAL segment
// the backup depends on, e.g.
//
//	START WAL LOCATION: 0/5000028 (file 000000010000000000000005)
//
// Only lines starting with the marker count, and the first one wins.
var startLocation = regexp.MustCompile(`(?m)^START WAL LOCATION:.*\(file ([^)]+)\)`)

// ResolveCutoff returns the earliest WAL segment still required by the
// oldest backup in set; segments strictly older are safe to delete. The
// destination must be local, which the CLI guarantees for every archive
// maintenance path.
func ResolveCutoff(dest string, set catalog.Set) (string, error) {
	if len(set) == 0 {
		return "", ErrNoBackups
	}
	oldest := set[0]

	blob, err := os.ReadFile(filepath.Join(dest, oldest.Name, catalog.BackupLabelFile))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMetadataUnavailable, oldest.Name, err)
	}

	m := startLocation.FindSubmatch(blob)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrSegmentNotFound, oldest.Name)
	}
	return string(m[1]), nil
}
