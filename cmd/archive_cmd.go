package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kebairia/pgpitr/internal/catalog"
	"github.com/kebairia/pgpitr/internal/config"
	"github.com/kebairia/pgpitr/internal/logger"
	"github.com/kebairia/pgpitr/internal/wal"
)

// archiveCmd backs the server's archive_command, e.g.
//
//	archive_command = 'pgpitr archive-wal /backups %p'
var archiveCmd = &cobra.Command{
	Use:   "archive-wal DESTINATION SEGMENT",
	Short: "Store one finished WAL segment in DESTINATION's wal_archive",
	Long: `archive-wal copies a finished WAL segment into the wal_archive
directory under DESTINATION, staging the write so a crashed invocation
never leaves a partial segment behind. PostgreSQL retries archiving on a
non-zero exit, so failures here are safe.`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runArchive,
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	dest, segment := args[0], args[1]
	if strings.Contains(dest, ":") {
		return fmt.Errorf("WAL archiving requires a local destination, got %q", dest)
	}

	if _, err := logger.Init(cfg.Verbose); err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Cleanup()

	archiver := wal.NewArchiver(wal.WithCompression(cfg.Archive.Compress))
	_, err = archiver.Archive(filepath.Join(dest, catalog.WALArchiveDir), segment)
	return err
}

func init() {
	flags := archiveCmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "path to YAML config file")
	flags.Bool("compress", false, "store segments zstd-compressed")
	flags.BoolP("verbose", "v", false, "log at debug level")
}
