package operations

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/kebairia/pgpitr/internal/catalog"
	"github.com/kebairia/pgpitr/internal/wal"
)

// Run executes the requested operations in their fixed order: backup,
// then retention, then WAL archive cleanup. Each step re-reads the
// destination, so a step always sees what the previous one left behind.
func (op *Operator) Run() error {
	start := time.Now()

	if op.cfg.Backup {
		if err := op.PerformBackup(); err != nil {
			return err
		}
	}
	if op.cfg.Keep > 0 {
		if err := op.CleanupOldBackups(); err != nil {
			return err
		}
	}
	if op.cfg.CleanArchive {
		if err := op.CleanupWALArchive(); err != nil {
			return err
		}
	}

	op.log.Info("completed", "elapsed_seconds", int(time.Since(start).Seconds()))
	return nil
}

// CleanupOldBackups removes every backup beyond the newest Keep.
func (op *Operator) CleanupOldBackups() error {
	set, err := catalog.List(op.ctx, op.transport, op.cfg.Destination)
	if err != nil {
		return err
	}

	doomed := catalog.SelectForRemoval(set, op.cfg.Keep)
	if len(doomed) == 0 {
		op.log.Info("retention satisfied", "backups", len(set), "keep", op.cfg.Keep)
		return nil
	}
	op.log.Info("applying retention",
		"backups", len(set),
		"keep", op.cfg.Keep,
		"removing", len(doomed),
	)
	return op.pruner.Remove(op.ctx, op.cfg.Destination, doomed)
}

// CleanupWALArchive deletes archived segments older than the oldest
// retained backup's first required segment. When the cutoff cannot be
// resolved the archive is left untouched and the run continues.
func (op *Operator) CleanupWALArchive() error {
	// Fresh listing: retention may just have removed the previous oldest.
	set, err := catalog.List(op.ctx, op.transport, op.cfg.Destination)
	if err != nil {
		return err
	}

	cutoff, err := wal.ResolveCutoff(op.cfg.Destination, set)
	switch {
	case errors.Is(err, wal.ErrNoBackups),
		errors.Is(err, wal.ErrMetadataUnavailable),
		errors.Is(err, wal.ErrSegmentNotFound):
		op.log.Warn("skipping WAL archive cleanup", "reason", err.Error())
		return nil
	case err != nil:
		return err
	}

	// Validation already pinned the destination to a local path.
	archiveDir := filepath.Join(op.cfg.Destination, catalog.WALArchiveDir)
	return op.cleaner.Run(op.ctx, archiveDir, cutoff)
}
