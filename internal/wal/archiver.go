package wal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/kebairia/pgpitr/internal/logger"
)

// CompressedExt is the suffix given to zstd-compressed archive segments.
// The Cleaner strips it again when comparing names against the cutoff.
const CompressedExt = ".zst"

// ArchiverOption lets you override default settings on an Archiver.
type ArchiverOption func(*Archiver)

// Archiver stores finished WAL segments in a local archive directory. It
// backs the server's archive_command, so it must be safe to re-run after
// a crashed invocation.
type Archiver struct {
	compress bool
	log      logger.Logger
}

// NewArchiver returns an Archiver configured with opts.
func NewArchiver(opts ...ArchiverOption) *Archiver {
	a := &Archiver{log: logger.Global()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithCompression turns zstd compression of archived segments on or off.
func WithCompression(on bool) ArchiverOption {
	return func(a *Archiver) {
		a.compress = on
	}
}

// WithArchiverLogger sets the logger.
func WithArchiverLogger(log logger.Logger) ArchiverOption {
	return func(a *Archiver) {
		if log != nil {
			a.log = log
		}
	}
}

// Archive copies the segment at segmentPath into archiveDir and returns
// the stored path. The write is staged through a temporary file in the
// same directory and renamed into place, so a partial segment is never
// visible and re-archiving overwrites cleanly.
func (a *Archiver) Archive(archiveDir, segmentPath string) (string, error) {
	if err := ensureDir(archiveDir); err != nil {
		return "", err
	}

	name := filepath.Base(segmentPath)
	if a.compress {
		name += CompressedExt
	}
	finalPath := filepath.Join(archiveDir, name)

	src, err := os.Open(segmentPath)
	if err != nil {
		return "", fmt.Errorf("open WAL segment: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(archiveDir, ".wal-*")
	if err != nil {
		return "", fmt.Errorf("stage archive file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if a.compress {
		zw, err := zstd.NewWriter(tmp)
		if err != nil {
			return "", fmt.Errorf("create zstd writer: %w", err)
		}
		if _, err := io.Copy(zw, src); err != nil {
			zw.Close()
			return "", fmt.Errorf("compress WAL segment: %w", err)
		}
		if err := zw.Close(); err != nil {
			return "", fmt.Errorf("flush zstd writer: %w", err)
		}
	} else {
		if _, err := io.Copy(tmp, src); err != nil {
			return "", fmt.Errorf("copy WAL segment: %w", err)
		}
	}

	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync archive file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return "", fmt.Errorf("chmod archive file: %w", err)
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", fmt.Errorf("publish archive file: %w", err)
	}

	a.log.Info("archived WAL segment",
		"segment", filepath.Base(segmentPath),
		"path", finalPath,
		"compressed", a.compress,
	)
	return finalPath, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive directory %q: %w", dir, err)
	}
	return nil
}
