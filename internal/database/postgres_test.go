package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kebairia/pgpitr/internal/logger"
)

func TestBackupControlStatements(t *testing.T) {
	start, stop := backupControl(140005)
	assert.Equal(t, "SELECT pg_start_backup($1, false, false)", start)
	assert.Equal(t, "SELECT lsn, labelfile, spcmapfile FROM pg_stop_backup(false, true)", stop)

	start, stop = backupControl(150000)
	assert.Equal(t, "SELECT pg_backup_start($1, false)", start)
	assert.Equal(t, "SELECT lsn, labelfile, spcmapfile FROM pg_backup_stop(true)", stop)

	start, _ = backupControl(170002)
	assert.Equal(t, "SELECT pg_backup_start($1, false)", start)
}

func TestPostgresDSN(t *testing.T) {
	p := NewPostgres(WithPostgresLogger(logger.Nop()))
	assert.Equal(t, "dbname=postgres sslmode=disable", p.dsn())

	p = NewPostgres(
		WithPostgresHost("db.internal"),
		WithPostgresPort("5433"),
		WithPostgresCredentials("backup", "secret"),
		WithPostgresDatabase("maintenance"),
		WithPostgresSSLMode("require"),
		WithPostgresLogger(logger.Nop()),
	)
	assert.Equal(t,
		"dbname=maintenance sslmode=require host=db.internal port=5433 user=backup password=secret",
		p.dsn(),
	)
}

func TestPostgresOptionsIgnoreEmptyValues(t *testing.T) {
	p := NewPostgres(
		WithPostgresHost(""),
		WithPostgresDatabase(""),
		WithPostgresSSLMode(""),
		WithPostgresLogger(logger.Nop()),
	)
	assert.Equal(t, "postgres", p.Database)
	assert.Equal(t, "disable", p.SSLMode)
	assert.Empty(t, p.Host)
}
