package operations

import (
	"context"
	"fmt"

	"github.com/kebairia/pgpitr/internal/catalog"
	"github.com/kebairia/pgpitr/internal/config"
	"github.com/kebairia/pgpitr/internal/database"
	"github.com/kebairia/pgpitr/internal/label"
	"github.com/kebairia/pgpitr/internal/logger"
	"github.com/kebairia/pgpitr/internal/transport"
	"github.com/kebairia/pgpitr/internal/vault"
	"github.com/kebairia/pgpitr/internal/wal"
)

// Operator carries the state for one invocation: the run label, stamped
// once at construction so every step of the run agrees on it, plus the
// collaborators each operation needs.
type Operator struct {
	ctx       context.Context
	cfg       config.Config
	log       logger.Logger
	label     label.Label
	session   database.Session
	transport transport.Transport
	pruner    *catalog.Pruner
	cleaner   *wal.Cleaner
}

// NewOperator wires an Operator from the resolved configuration. The
// database session is only opened when the run includes a backup.
func NewOperator(ctx context.Context, cfg config.Config) (*Operator, error) {
	log := logger.Global()

	connectArgs, err := cfg.Transport.ConnectArgs()
	if err != nil {
		return nil, err
	}
	tr := transport.NewRsync(
		transport.WithConnectArgs(connectArgs),
		transport.WithVanishedStatuses(cfg.Transport.VanishedStatus),
		transport.WithLogger(log),
	)

	cleanerOpts := []wal.CleanerOption{
		wal.WithBinDir(cfg.PGBinDir),
		wal.WithCleanerLogger(log),
	}
	if cfg.Archive.Compress {
		cleanerOpts = append(cleanerOpts, wal.WithCompressedExt(wal.CompressedExt))
	}

	op := &Operator{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		label:     label.Now(),
		transport: tr,
		pruner:    catalog.NewPruner(tr, log),
		cleaner:   wal.NewCleaner(cleanerOpts...),
	}

	if cfg.Backup {
		session, err := op.openSession()
		if err != nil {
			return nil, err
		}
		op.session = session
	}
	return op, nil
}

// Close releases the database session, if one was opened.
func (op *Operator) Close() {
	if op.session == nil {
		return
	}
	if err := op.session.Close(); err != nil {
		op.log.Warn("closing database session", "error", err)
	}
	op.session = nil
}

// openSession connects to the server, resolving credentials through Vault
// when it is configured and falling back to the static ones otherwise.
func (op *Operator) openSession() (database.Session, error) {
	username := op.cfg.Postgres.User
	password := op.cfg.Postgres.Password

	if op.cfg.Vault.Enabled() {
		vaultOpts := []vault.Option{
			vault.WithAddress(op.cfg.Vault.Address),
			vault.WithToken(op.cfg.Vault.Token),
			vault.WithAppRole(op.cfg.Vault.RoleID, op.cfg.Vault.RoleName),
		}
		vaultClient, err := vault.NewClient(op.ctx, vaultOpts...)
		if err != nil {
			return nil, fmt.Errorf("vault client init: %w", err)
		}
		creds, err := vaultClient.GetDynamicCredentials(op.ctx, op.cfg.Vault.RolePath)
		if err != nil {
			return nil, fmt.Errorf("vault credentials for %q: %w", op.cfg.Vault.RolePath, err)
		}
		op.log.Debug("using dynamic database credentials",
			"username", creds.Username,
			"ttl", creds.TTL,
		)
		username = creds.Username
		password = creds.Password
	}

	pg := database.NewPostgres(
		database.WithPostgresHost(op.cfg.Postgres.Host),
		database.WithPostgresPort(op.cfg.Postgres.Port),
		database.WithPostgresCredentials(username, password),
		database.WithPostgresDatabase(op.cfg.Postgres.Database),
		database.WithPostgresSSLMode(op.cfg.Postgres.SSLMode),
		database.WithPostgresLogger(op.log),
	)
	if err := pg.Connect(op.ctx); err != nil {
		return nil, err
	}
	return pg, nil
}
