package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kebairia/pgpitr/internal/config"
	"github.com/kebairia/pgpitr/internal/logger"
	"github.com/kebairia/pgpitr/internal/operations"
)

var (
	configFile string

	// rootCmd is the base command for pgpitr.
	rootCmd = &cobra.Command{
		Use:   "pgpitr [flags] DESTINATION",
		Short: "Hot PostgreSQL backups with WAL archive retention",
		Long: `pgpitr takes a base backup of a running PostgreSQL server into
DESTINATION (a local path or an rsync host:path), applies a retention
policy over previous backups, and trims the WAL archive back to the
oldest backup still needed for point-in-time recovery.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}
)

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg.Destination = args[0]
	if err := cfg.Validate(); err != nil {
		return err
	}

	if _, err := logger.Init(cfg.Verbose); err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Cleanup()

	op, err := operations.NewOperator(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer op.Close()

	return op.Run()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		logger.Cleanup()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "path to YAML config file")
	flags.Bool("backup", false, "take a new base backup")
	flags.Int("keep", 0, "number of backups to retain, 0 keeps everything")
	flags.Bool("clean-archive", false, "prune the WAL archive below the oldest backup (local destinations only)")
	flags.String("rsync-connect-opts", "", "extra rsync options for every invocation, e.g. -e \"ssh -p 2222\"")
	flags.String("rsync-backup-opts", "-rptg", "rsync copy options for the data directory sync")
	flags.IntSlice("vanished-status", []int{24}, "rsync exit statuses treated as files vanishing mid-copy")
	flags.String("pg-bin-dir", "", "directory holding pg_archivecleanup, instead of PATH")
	flags.BoolP("verbose", "v", false, "log at debug level")
	flags.String("pg-host", "", "PostgreSQL host, empty uses the local socket")
	flags.String("pg-port", "", "PostgreSQL port")
	flags.String("pg-user", "", "PostgreSQL user")
	flags.String("pg-database", "postgres", "database to connect to")

	rootCmd.AddCommand(archiveCmd)
}
