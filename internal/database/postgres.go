package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/kebairia/pgpitr/internal/logger"
)

// PostgresOption lets you override default settings on a Postgres session.
type PostgresOption func(*Postgres)

// Postgres is a Session over a single pinned connection to the server
// under backup.
type Postgres struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string
	Logger   logger.Logger

	db         *sql.DB
	conn       *sql.Conn
	versionNum int
}

// Ensure Postgres satisfies Session.
var _ Session = (*Postgres)(nil)

// NewPostgres returns a Postgres session configured with opts. Call
// Connect before using it.
func NewPostgres(opts ...PostgresOption) *Postgres {
	p := &Postgres{
		Database: "postgres",
		SSLMode:  "disable",
		Logger:   logger.Global(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithPostgresHost overrides the host. Empty means the local socket.
func WithPostgresHost(host string) PostgresOption {
	return func(p *Postgres) {
		if host != "" {
			p.Host = host
		}
	}
}

// WithPostgresPort overrides the port.
func WithPostgresPort(port string) PostgresOption {
	return func(p *Postgres) {
		if port != "" {
			p.Port = port
		}
	}
}

// WithPostgresCredentials sets username and password.
func WithPostgresCredentials(user, pass string) PostgresOption {
	return func(p *Postgres) {
		if user != "" {
			p.Username = user
		}
		if pass != "" {
			p.Password = pass
		}
	}
}

// WithPostgresDatabase overrides the maintenance database name.
func WithPostgresDatabase(db string) PostgresOption {
	return func(p *Postgres) {
		if db != "" {
			p.Database = db
		}
	}
}

// WithPostgresSSLMode overrides the sslmode connection parameter.
func WithPostgresSSLMode(mode string) PostgresOption {
	return func(p *Postgres) {
		if mode != "" {
			p.SSLMode = mode
		}
	}
}

// WithPostgresLogger sets the logger.
func WithPostgresLogger(log logger.Logger) PostgresOption {
	return func(p *Postgres) {
		if log != nil {
			p.Logger = log
		}
	}
}

// Connect opens and pins one connection, then probes the server version,
// which selects the backup-control statements.
func (p *Postgres) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", p.dsn())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	var version string
	if err := conn.QueryRowContext(ctx, "SHOW server_version_num").Scan(&version); err != nil {
		conn.Close()
		db.Close()
		return fmt.Errorf("%w: read server version: %v", ErrConnect, err)
	}
	num, err := strconv.Atoi(version)
	if err != nil {
		conn.Close()
		db.Close()
		return fmt.Errorf("%w: parse server version %q: %v", ErrConnect, version, err)
	}

	p.db = db
	p.conn = conn
	p.versionNum = num
	p.Logger.Debug("database session opened",
		"database", p.Database,
		"server_version_num", num,
	)
	return nil
}

// BeginHotBackup puts the server into hot-backup mode under label.
func (p *Postgres) BeginHotBackup(ctx context.Context, label string) error {
	start, _ := backupControl(p.versionNum)

	var lsn string
	if err := p.conn.QueryRowContext(ctx, start, label).Scan(&lsn); err != nil {
		return fmt.Errorf("%w: %v", ErrBeginBackup, err)
	}
	p.Logger.Info("hot backup started", "label", label, "start_lsn", lsn)
	return nil
}

// EndHotBackup leaves hot-backup mode and returns the recovery metadata.
func (p *Postgres) EndHotBackup(ctx context.Context) (StopResult, error) {
	_, stop := backupControl(p.versionNum)

	var (
		res    StopResult
		spcmap sql.NullString
	)
	err := p.conn.QueryRowContext(ctx, stop).Scan(&res.LSN, &res.BackupLabel, &spcmap)
	if err != nil {
		return StopResult{}, fmt.Errorf("%w: %v", ErrEndBackup, err)
	}
	res.TablespaceMap = spcmap.String

	p.Logger.Info("hot backup stopped", "stop_lsn", res.LSN)
	return res, nil
}

// DataDirectory returns the live data directory path.
func (p *Postgres) DataDirectory(ctx context.Context) (string, error) {
	var dir string
	if err := p.conn.QueryRowContext(ctx, "SHOW data_directory").Scan(&dir); err != nil {
		return "", fmt.Errorf("%w: data_directory: %v", ErrQuery, err)
	}
	return dir, nil
}

// Close releases the pinned connection.
func (p *Postgres) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *Postgres) dsn() string {
	parts := []string{"dbname=" + p.Database, "sslmode=" + p.SSLMode}
	if p.Host != "" {
		parts = append(parts, "host="+p.Host)
	}
	if p.Port != "" {
		parts = append(parts, "port="+p.Port)
	}
	if p.Username != "" {
		parts = append(parts, "user="+p.Username)
	}
	if p.Password != "" {
		parts = append(parts, "password="+p.Password)
	}
	return strings.Join(parts, " ")
}

// backupControl returns the begin/end statements for a server version.
// PostgreSQL 15 renamed the non-exclusive backup-control functions.
func backupControl(versionNum int) (start, stop string) {
	if versionNum >= 150000 {
		return "SELECT pg_backup_start($1, false)",
			"SELECT lsn, labelfile, spcmapfile FROM pg_backup_stop(true)"
	}
	return "SELECT pg_start_backup($1, false, false)",
		"SELECT lsn, labelfile, spcmapfile FROM pg_stop_backup(false, true)"
}
