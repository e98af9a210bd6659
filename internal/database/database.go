package database

import (
	"context"
	"errors"
)

var (
	ErrConnect     = errors.New("database connection failed")
	ErrBeginBackup = errors.New("begin hot backup failed")
	ErrEndBackup   = errors.New("end hot backup failed")
	ErrQuery       = errors.New("database query failed")
)

// StopResult is what the server reports when a hot backup ends.
type StopResult struct {
	// LSN is the write-ahead log position at which the backup ended;
	// replay must reach it before the backup is consistent.
	LSN string
	// BackupLabel is the recovery metadata blob. Always present.
	BackupLabel string
	// TablespaceMap is empty unless the cluster uses tablespaces outside
	// the data directory.
	TablespaceMap string
}

// Session is one open connection to the server under backup. Hot backup
// control is connection-scoped on the server side, so begin and end must
// travel over the same session. Every failure through a Session is fatal
// to the run; a successful begin with no matching end leaves the server
// in hot-backup mode, and nothing here rolls that back.
type Session interface {
	// BeginHotBackup puts the server into hot-backup mode under label.
	BeginHotBackup(ctx context.Context, label string) error
	// EndHotBackup leaves hot-backup mode and returns the recovery
	// metadata. Never call it unless BeginHotBackup succeeded.
	EndHotBackup(ctx context.Context) (StopResult, error)
	// DataDirectory returns the live data directory path.
	DataDirectory(ctx context.Context) (string, error)
	Close() error
}
