package transport

import (
	"context"
	"errors"
)

var (
	// ErrTransport wraps any listing, copy or write failure.
	ErrTransport = errors.New("transport failure")
	// ErrVanished wraps a mirror failure whose exit status means source
	// files disappeared mid-transfer. Callers that copy a live tree may
	// tolerate it; everyone else treats it like any other failure.
	ErrVanished = errors.New("source files vanished during transfer")
)

// MirrorOptions control a single mirror operation.
type MirrorOptions struct {
	// DeleteExtraneous removes destination entries absent from the source.
	DeleteExtraneous bool
	// DelayDeletes defers deletions until after the transfer.
	DelayDeletes bool
	// DirOnly restricts the operation to directory entries themselves,
	// without recursing into them.
	DirOnly bool
	// Excludes are source patterns to skip.
	Excludes []string
	// IncludeOnly scopes the operation to exactly these names; everything
	// else at the destination is left untouched.
	IncludeOnly []string
	// CopyArgs are transfer options for this call, e.g. "-rptg" for a data
	// sync or "-r" for a drain pass.
	CopyArgs []string
}

// Transport moves files to a destination that may be local or remote
// (user@host:path). Implementations are synchronous; methods must be safe
// to call sequentially from a single goroutine.
type Transport interface {
	// Mirror makes dest match src under the given options.
	Mirror(ctx context.Context, src, dest string, opts MirrorOptions) error
	// List returns the raw listing lines for dest.
	List(ctx context.Context, dest string) ([]string, error)
	// Write copies one local file to destPath.
	Write(ctx context.Context, localFile, destPath string) error
}
