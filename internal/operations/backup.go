package operations

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kebairia/pgpitr/internal/catalog"
	"github.com/kebairia/pgpitr/internal/transport"
)

// syncExcludes lists the data directory contents never copied into a
// backup: transient server state, and WAL, which the archive carries.
var syncExcludes = []string{
	"pg_wal/*",
	"pg_xlog/*",
	"postmaster.pid",
	"postmaster.opts",
	"pg_replslot/*",
	"pg_dynshmem/*",
	"pg_notify/*",
	"pg_serial/*",
	"pg_snapshots/*",
	"pg_stat_tmp/*",
	"pg_subtrans/*",
	"pg_tmp*",
	"pg_internal.init",
}

// PerformBackup produces one backup at the destination, named by the run
// label: begin a hot backup, mirror the live data directory, end the hot
// backup, then persist the recovery metadata the server returned.
func (op *Operator) PerformBackup() error {
	start := time.Now()
	record := Metadata{
		Label:     op.label.String(),
		StartedAt: start,
	}

	// Resolve the rsync argv before touching the server; a malformed
	// option string must not leave a hot backup open.
	copyArgs, err := op.cfg.Transport.CopyArgs()
	if err != nil {
		return err
	}

	op.log.Info("starting backup", "label", op.label.String())
	if err := op.session.BeginHotBackup(op.ctx, op.label.String()); err != nil {
		return err
	}
	// The server is now in hot-backup mode; a failure below leaves it
	// there for the operator to resolve.

	if err := op.syncDataDir(copyArgs); err != nil {
		return fmt.Errorf("sync data directory: %w", err)
	}

	stop, err := op.session.EndHotBackup(op.ctx)
	if err != nil {
		return err
	}
	record.StopLSN = stop.LSN

	if err := op.writeBackupFile(catalog.BackupLabelFile, stop.BackupLabel); err != nil {
		return err
	}
	if stop.TablespaceMap != "" {
		if err := op.writeBackupFile(catalog.TablespaceMapFile, stop.TablespaceMap); err != nil {
			return err
		}
	}

	record.CompletedAt = time.Now()
	record.DurationSeconds = record.CompletedAt.Sub(start).Seconds()
	record.Status = "success"
	if err := op.writeRunRecord(&record); err != nil {
		// The backup is already restorable; the record is advisory.
		op.log.Warn("could not write run record", "error", err)
	}

	op.log.Info("backup completed",
		"label", op.label.String(),
		"stop_lsn", stop.LSN,
	)
	return nil
}

// syncDataDir mirrors the server's data directory into the labeled
// destination directory. Files vanishing mid-copy are routine on a live
// server and only logged; any other transport failure is returned.
func (op *Operator) syncDataDir(copyArgs []string) error {
	dataDir, err := op.session.DataDirectory(op.ctx)
	if err != nil {
		return err
	}

	src := strings.TrimRight(dataDir, "/") + "/"
	dest := catalog.JoinDest(op.cfg.Destination, op.label.String())
	op.log.Info("syncing data directory", "src", src, "dest", dest)

	err = op.transport.Mirror(op.ctx, src, dest, transport.MirrorOptions{
		DeleteExtraneous: true,
		DelayDeletes:     true,
		Excludes:         syncExcludes,
		CopyArgs:         copyArgs,
	})
	if errors.Is(err, transport.ErrVanished) {
		op.log.Warn("source files vanished during sync", "detail", err.Error())
		return nil
	}
	return err
}

// writeBackupFile stages content in a local temp file and ships it into
// the labeled backup directory. The transport writes by path, not by
// stream, and the destination may be remote.
func (op *Operator) writeBackupFile(name, content string) error {
	tmp, err := os.CreateTemp("", "pgpitr_meta_")
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("stage %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}

	dest := catalog.JoinDest(op.cfg.Destination, op.label.String(), name)
	op.log.Debug("writing backup metadata", "file", name, "dest", dest)
	if err := op.transport.Write(op.ctx, tmp.Name(), dest); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (op *Operator) writeRunRecord(record *Metadata) error {
	encoded, err := record.Encode()
	if err != nil {
		return err
	}
	return op.writeBackupFile(RecordFilename, string(encoded))
}
