package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/kebairia/pgpitr/internal/logger"
	"github.com/kebairia/pgpitr/internal/transport"
)

// Pruner removes backups from a destination. Because the destination may
// be remote, it cannot rely on atomic non-empty-directory deletion, so
// removal runs in two phases: drain every selected entry by mirroring an
// empty directory onto it, then collapse the emptied entries with a single
// include-scoped mirror against the destination root.
type Pruner struct {
	transport transport.Transport
	log       logger.Logger
}

// NewPruner returns a Pruner using the given transport.
func NewPruner(tr transport.Transport, log logger.Logger) *Pruner {
	if log == nil {
		log = logger.Global()
	}
	return &Pruner{transport: tr, log: log}
}

// Remove deletes the given entries from dest. Draining is sequential: a
// failure mid-phase leaves a prefix of entries emptied, which is safe to
// re-run. Re-invoking with entries already absent or already empty is a
// no-op. The scratch empty directory is released on every exit path.
func (p *Pruner) Remove(ctx context.Context, dest string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	scratch, err := os.MkdirTemp("", "pgpitr_empty_")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(scratch); rmErr != nil {
			p.log.Warn("could not remove scratch directory",
				"path", scratch,
				"error", rmErr,
			)
		}
	}()
	src := scratch + string(os.PathSeparator)

	// Drain phase: empty each entry in turn, oldest first.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		p.log.Info("removing backup", "name", entry.Name)
		err := p.transport.Mirror(ctx, src, JoinDest(dest, entry.Name), transport.MirrorOptions{
			DeleteExtraneous: true,
			CopyArgs:         []string{"-r"},
		})
		if err != nil {
			return fmt.Errorf("drain backup %q: %w", entry.Name, err)
		}
		names = append(names, entry.Name)
	}

	// Collapse phase: one call removes all the emptied directory entries,
	// scoped to exactly the drained names.
	err = p.transport.Mirror(ctx, src, dest, transport.MirrorOptions{
		DeleteExtraneous: true,
		DirOnly:          true,
		IncludeOnly:      names,
	})
	if err != nil {
		return fmt.Errorf("collapse removed backups: %w", err)
	}
	return nil
}
