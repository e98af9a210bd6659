package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kebairia/pgpitr/internal/logger"
)

const rsyncBin = "rsync"

// RsyncOption lets you override default settings on an Rsync transport.
type RsyncOption func(*Rsync)

// Rsync runs the system rsync binary for every transport operation. The
// destination string passes through untouched, so remote-host forms work
// exactly as rsync defines them.
type Rsync struct {
	bin         string
	connectArgs []string
	vanished    map[int]bool
	log         logger.Logger
}

// Ensure Rsync satisfies Transport.
var _ Transport = (*Rsync)(nil)

// NewRsync returns an Rsync transport configured with opts.
func NewRsync(opts ...RsyncOption) *Rsync {
	r := &Rsync{
		bin:      rsyncBin,
		vanished: map[int]bool{24: true},
		log:      logger.Global(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithBinary overrides the rsync binary path.
func WithBinary(bin string) RsyncOption {
	return func(r *Rsync) {
		if bin != "" {
			r.bin = bin
		}
	}
}

// WithConnectArgs sets connection options applied to every invocation,
// e.g. -e "ssh -p 2222".
func WithConnectArgs(args []string) RsyncOption {
	return func(r *Rsync) {
		r.connectArgs = args
	}
}

// WithVanishedStatuses sets the exit statuses reported when source files
// vanish during a transfer.
func WithVanishedStatuses(statuses []int) RsyncOption {
	return func(r *Rsync) {
		if len(statuses) == 0 {
			return
		}
		r.vanished = make(map[int]bool, len(statuses))
		for _, s := range statuses {
			r.vanished[s] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) RsyncOption {
	return func(r *Rsync) {
		if log != nil {
			r.log = log
		}
	}
}

// Mirror makes dest match src. Exit statuses configured as "vanished"
// surface as an error wrapping ErrVanished so the caller can decide.
func (r *Rsync) Mirror(ctx context.Context, src, dest string, opts MirrorOptions) error {
	_, err := r.run(ctx, r.mirrorArgs(src, dest, opts))
	return err
}

// List returns the raw --list-only lines for dest.
func (r *Rsync) List(ctx context.Context, dest string) ([]string, error) {
	out, err := r.run(ctx, r.listArgs(dest))
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Write copies one local file to destPath.
func (r *Rsync) Write(ctx context.Context, localFile, destPath string) error {
	_, err := r.run(ctx, r.writeArgs(localFile, destPath))
	return err
}

func (r *Rsync) mirrorArgs(src, dest string, opts MirrorOptions) []string {
	args := append([]string{}, r.connectArgs...)
	args = append(args, opts.CopyArgs...)
	// Include rules must precede the catch-all exclude: first match wins.
	for _, name := range opts.IncludeOnly {
		args = append(args, "--include", name)
	}
	if len(opts.IncludeOnly) > 0 {
		args = append(args, "--exclude", "*")
	}
	for _, pattern := range opts.Excludes {
		args = append(args, "--exclude", pattern)
	}
	if opts.DirOnly {
		args = append(args, "-d")
	}
	if opts.DeleteExtraneous {
		args = append(args, "--delete")
		if opts.DelayDeletes {
			args = append(args, "--delete-delay")
		}
	}
	return append(args, src, dest)
}

func (r *Rsync) listArgs(dest string) []string {
	args := append([]string{}, r.connectArgs...)
	return append(args, "--list-only", dest)
}

func (r *Rsync) writeArgs(localFile, destPath string) []string {
	args := append([]string{}, r.connectArgs...)
	return append(args, localFile, destPath)
}

func (r *Rsync) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.bin, args...)
	r.log.Debug("running transport command", "bin", r.bin, "args", strings.Join(args, " "))

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		status := exitErr.ExitCode()
		if r.vanished[status] {
			return out, fmt.Errorf("%w: %s status %d", ErrVanished, r.bin, status)
		}
		stderr := bytes.TrimSpace(exitErr.Stderr)
		return nil, fmt.Errorf("%w: %s status %d: %s", ErrTransport, r.bin, status, stderr)
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrTransport, r.bin, err)
}
