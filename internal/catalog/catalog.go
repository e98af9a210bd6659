package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/kebairia/pgpitr/internal/label"
	"github.com/kebairia/pgpitr/internal/transport"
)

// Names persisted beneath a destination: each backup directory carries
// its recovery metadata, and WAL segments accumulate beside the backups.
const (
	BackupLabelFile   = "backup_label"
	TablespaceMapFile = "tablespace_map"
	WALArchiveDir     = "wal_archive"
)

// Entry is one backup discovered at the destination.
type Entry struct {
	Label label.Label
	// Name is the destination-relative path, which is the label text.
	Name string
}

// Set holds discovered backups in ascending label order. It is recomputed
// from a fresh listing on every use and never cached across runs.
type Set []Entry

// Names returns the entry names in order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, e := range s {
		names[i] = e.Name
	}
	return names
}

// JoinDest joins a destination, possibly carrying a remote-host prefix,
// with relative path elements.
func JoinDest(dest string, elems ...string) string {
	joined := strings.TrimRight(dest, "/")
	for _, e := range elems {
		joined += "/" + e
	}
	return joined
}

// List enumerates the backups at dest through the transport's listing
// capability. Each line's final whitespace-separated token is a candidate
// name; only full label matches are kept. An empty destination yields an
// empty Set. Listing failures propagate unmodified.
func List(ctx context.Context, tr transport.Transport, dest string) (Set, error) {
	lines, err := tr.List(ctx, strings.TrimRight(dest, "/")+"/")
	if err != nil {
		return nil, err
	}

	var set Set
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := fields[len(fields)-1]
		l, ok := label.Parse(name)
		if !ok {
			continue
		}
		set = append(set, Entry{Label: l, Name: name})
	}

	sort.Slice(set, func(i, j int) bool { return set[i].Label.Before(set[j].Label) })
	return set, nil
}
