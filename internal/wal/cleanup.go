package wal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kebairia/pgpitr/internal/logger"
)

const prunerBin = "pg_archivecleanup"

// ErrToolNotFound reports a missing pg_archivecleanup binary.
var ErrToolNotFound = errors.New("cannot find pg_archivecleanup")

// CleanerOption lets you override default settings on a Cleaner.
type CleanerOption func(*Cleaner)

// Cleaner invokes pg_archivecleanup to delete archived WAL segments
// strictly older than a cutoff.
type Cleaner struct {
	binDir        string
	compressedExt string
	log           logger.Logger
}

// NewCleaner returns a Cleaner configured with opts.
func NewCleaner(opts ...CleanerOption) *Cleaner {
	c := &Cleaner{log: logger.Global()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBinDir points the Cleaner at a directory holding pg_archivecleanup
// instead of searching PATH.
func WithBinDir(dir string) CleanerOption {
	return func(c *Cleaner) {
		c.binDir = dir
	}
}

// WithCompressedExt makes the Cleaner strip the given suffix from archive
// names before comparison, for archives written compressed.
func WithCompressedExt(ext string) CleanerOption {
	return func(c *Cleaner) {
		c.compressedExt = ext
	}
}

// WithCleanerLogger sets the logger.
func WithCleanerLogger(log logger.Logger) CleanerOption {
	return func(c *Cleaner) {
		if log != nil {
			c.log = log
		}
	}
}

// Run deletes segments in archiveDir strictly older than cutoff.
func (c *Cleaner) Run(ctx context.Context, archiveDir, cutoff string) error {
	bin := prunerBin
	if c.binDir != "" {
		bin = filepath.Join(c.binDir, prunerBin)
	}

	args := c.args(archiveDir, cutoff)
	c.log.Info("pruning WAL archive", "dir", archiveDir, "cutoff", cutoff)

	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
		c.log.Debug("pg_archivecleanup output", "output", trimmed)
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w at %q (see --pg-bin-dir option)", ErrToolNotFound, bin)
		}
		return fmt.Errorf("pg_archivecleanup failed: %w", err)
	}
	return nil
}

func (c *Cleaner) args(archiveDir, cutoff string) []string {
	args := []string{"-d"}
	if c.compressedExt != "" {
		args = append(args, "-x", c.compressedExt)
	}
	return append(args, archiveDir, cutoff)
}
