package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// Config is the resolved configuration for one invocation: flags layered
// over environment variables layered over an optional YAML file.
type Config struct {
	// Destination is the positional backup path argument, local or
	// host-qualified (user@host:/path). Filled in by the command, never
	// by the file.
	Destination string `mapstructure:"-" yaml:"-"`

	Backup       bool   `mapstructure:"backup"        yaml:"backup"`
	Keep         int    `mapstructure:"keep"          yaml:"keep"`
	CleanArchive bool   `mapstructure:"clean_archive" yaml:"clean_archive"`
	Verbose      bool   `mapstructure:"verbose"       yaml:"verbose"`
	PGBinDir     string `mapstructure:"pg_bin_dir"    yaml:"pg_bin_dir,omitempty"`

	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Postgres  PostgresConfig  `mapstructure:"postgres"  yaml:"postgres"`
	Vault     VaultConfig     `mapstructure:"vault"     yaml:"vault"`
	Archive   ArchiveConfig   `mapstructure:"archive"   yaml:"archive"`
}

// TransportConfig holds rsync invocation settings.
type TransportConfig struct {
	ConnectOpts    string `mapstructure:"connect_opts"    yaml:"connect_opts,omitempty"`
	BackupOpts     string `mapstructure:"backup_opts"     yaml:"backup_opts,omitempty"`
	VanishedStatus []int  `mapstructure:"vanished_status" yaml:"vanished_status,omitempty"`
}

// ConnectArgs returns the connection options as an argv slice. Splitting
// is shell-like, so a quoted remote shell such as -e "ssh -p 2222" stays
// a single argument.
func (t TransportConfig) ConnectArgs() ([]string, error) {
	args, err := shlex.Split(t.ConnectOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: rsync connect options %q: %v", ErrValidateConfig, t.ConnectOpts, err)
	}
	return args, nil
}

// CopyArgs returns the copy options as an argv slice, split like ConnectArgs.
func (t TransportConfig) CopyArgs() ([]string, error) {
	args, err := shlex.Split(t.BackupOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: rsync copy options %q: %v", ErrValidateConfig, t.BackupOpts, err)
	}
	return args, nil
}

// PostgresConfig holds connection settings for the server under backup.
// Anything left empty falls back to the usual libpq environment.
type PostgresConfig struct {
	Host     string `mapstructure:"host"     yaml:"host,omitempty"`
	Port     string `mapstructure:"port"     yaml:"port,omitempty"`
	User     string `mapstructure:"user"     yaml:"user,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	SSLMode  string `mapstructure:"sslmode"  yaml:"sslmode,omitempty"`
}

// VaultConfig holds connection settings for HashiCorp Vault. When Address
// is empty, Vault is not consulted and database credentials come from the
// config or environment. Token authenticates directly when set; otherwise
// an AppRole login is performed with RoleID and RoleName.
type VaultConfig struct {
	Address  string `mapstructure:"address"   yaml:"address,omitempty"`
	Token    string `mapstructure:"token"     yaml:"token,omitempty"`
	RoleID   string `mapstructure:"role_id"   yaml:"role_id,omitempty"`
	RoleName string `mapstructure:"role_name" yaml:"role_name,omitempty"`
	// RolePath is the database-secrets role to read credentials from.
	RolePath string `mapstructure:"role_path" yaml:"role_path,omitempty"`
}

// Enabled reports whether Vault should be used for database credentials.
func (v VaultConfig) Enabled() bool {
	return v.Address != "" && v.RolePath != ""
}

// ArchiveConfig controls how WAL segments are stored in wal_archive.
type ArchiveConfig struct {
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"backup":             "backup",
	"keep":               "keep",
	"clean-archive":      "clean_archive",
	"verbose":            "verbose",
	"pg-bin-dir":         "pg_bin_dir",
	"rsync-connect-opts": "transport.connect_opts",
	"rsync-backup-opts":  "transport.backup_opts",
	"vanished-status":    "transport.vanished_status",
	"pg-host":            "postgres.host",
	"pg-port":            "postgres.port",
	"pg-user":            "postgres.user",
	"pg-database":        "postgres.database",
	"compress":           "archive.compress",
}

// Load resolves the configuration: defaults, then the optional YAML file
// at path, then PGPITR_* environment variables, then any flags present in
// flags. Flags win.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	// Every key gets a default: viper only surfaces environment values
	// through Unmarshal for keys it already knows about.
	v.SetDefault("backup", false)
	v.SetDefault("keep", 0)
	v.SetDefault("clean_archive", false)
	v.SetDefault("verbose", false)
	v.SetDefault("pg_bin_dir", "")
	v.SetDefault("transport.connect_opts", "")
	v.SetDefault("transport.backup_opts", "-rptg")
	v.SetDefault("transport.vanished_status", []int{24})
	v.SetDefault("postgres.host", "")
	v.SetDefault("postgres.port", "")
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "postgres")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.role_id", "")
	v.SetDefault("vault.role_name", "")
	v.SetDefault("vault.role_path", "")
	v.SetDefault("archive.compress", false)

	v.SetEnvPrefix("PGPITR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("%w: bind flag %s: %v", ErrLoadConfig, name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: read config %s: %v", ErrLoadConfig, path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}
	return cfg, nil
}

// Validate enforces the parse-time constraints that must fail before any
// work starts.
func (c *Config) Validate() error {
	if c.Destination == "" {
		return fmt.Errorf("%w: destination backup path is required", ErrValidateConfig)
	}
	if c.CleanArchive && strings.Contains(c.Destination, ":") {
		return fmt.Errorf(
			"%w: archive cleanup requires a local destination, got %q",
			ErrValidateConfig, c.Destination,
		)
	}
	if _, err := c.Transport.ConnectArgs(); err != nil {
		return err
	}
	if _, err := c.Transport.CopyArgs(); err != nil {
		return err
	}
	return nil
}
