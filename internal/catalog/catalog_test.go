package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/pgpitr/internal/label"
	"github.com/kebairia/pgpitr/internal/transport"
)

type mirrorCall struct {
	src, dest string
	opts      transport.MirrorOptions
}

// fakeTransport records calls and plays back scripted results.
type fakeTransport struct {
	listLines []string
	listErr   error
	listed    []string

	mirrors   []mirrorCall
	mirrorErr func(call mirrorCall) error
}

var _ transport.Transport = (*fakeTransport)(nil)

func (f *fakeTransport) List(ctx context.Context, dest string) ([]string, error) {
	f.listed = append(f.listed, dest)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listLines, nil
}

func (f *fakeTransport) Mirror(ctx context.Context, src, dest string, opts transport.MirrorOptions) error {
	call := mirrorCall{src: src, dest: dest, opts: opts}
	f.mirrors = append(f.mirrors, call)
	if f.mirrorErr != nil {
		return f.mirrorErr(call)
	}
	return nil
}

func (f *fakeTransport) Write(ctx context.Context, localFile, destPath string) error {
	return nil
}

func mustSet(t *testing.T, names ...string) Set {
	t.Helper()
	set := make(Set, 0, len(names))
	for _, name := range names {
		l, ok := label.Parse(name)
		require.True(t, ok, "bad test label %q", name)
		set = append(set, Entry{Label: l, Name: name})
	}
	return set
}

func TestListFiltersAndOrders(t *testing.T) {
	tr := &fakeTransport{listLines: []string{
		"drwxrwxr-x          4,096 2023/01/02 00:00:00 .",
		"drwxrwxr-x          4,096 2023/01/02 00:00:00 20230102T000000Z",
		"drwxrwxr-x          4,096 2023/01/01 00:00:00 20230101T000000Z",
		"-rw-rw-r--             12 2023/01/01 00:00:00 notabackup",
		"drwxrwxr-x          4,096 2023/01/01 00:00:00 wal_archive",
		"drwxrwxr-x          4,096 2023/01/01 00:00:00 20230101T000000",
	}}

	set, err := List(context.Background(), tr, "/backups")
	require.NoError(t, err)

	assert.Equal(t, []string{"20230101T000000Z", "20230102T000000Z"}, set.Names())

	// The listing call always carries a trailing separator.
	require.Len(t, tr.listed, 1)
	assert.Equal(t, "/backups/", tr.listed[0])
}

func TestListKeepsOnlyFullLabelMatches(t *testing.T) {
	tr := &fakeTransport{listLines: []string{
		"drwxrwxr-x          4,096 2023/01/01 00:00:00 20230101T000000Z",
		"-rw-rw-r--             12 2023/01/01 00:00:00 notabackup",
	}}

	set, err := List(context.Background(), tr, "host:/backups")
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "20230101T000000Z", set[0].Name)
}

func TestListEmptyDestination(t *testing.T) {
	tr := &fakeTransport{listLines: []string{
		"drwxrwxr-x          4,096 2023/01/01 00:00:00 .",
	}}

	set, err := List(context.Background(), tr, "/backups/")
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.Equal(t, "/backups/", tr.listed[0])
}

func TestListPropagatesTransportError(t *testing.T) {
	listErr := fmt.Errorf("%w: rsync status 23", transport.ErrTransport)
	tr := &fakeTransport{listErr: listErr}

	_, err := List(context.Background(), tr, "/backups")
	require.Error(t, err)
	assert.Equal(t, listErr, err)
	assert.ErrorIs(t, err, transport.ErrTransport)
}
