// Package catalog discovers candidate models: it locates the external
// catalog binary, runs it, reads catalog files and merges the results.
package catalog

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrBinaryNotFound is returned when no candidate path answers a probe.
var ErrBinaryNotFound = errors.New("catalog binary not found")

const defaultProbeTimeout = 5 * time.Second

// DefaultCandidates returns the usual install locations of the opencode
// binary, the bare name first so $PATH wins.
func DefaultCandidates() []string {
	home, _ := os.UserHomeDir()
	out := []string{"opencode"}
	if home != "" {
		out = append(out,
			filepath.Join(home, ".local", "bin", "opencode"),
			filepath.Join(home, ".opencode", "bin", "opencode"),
		)
	}
	out = append(out, "/usr/local/bin/opencode", "/opt/opencode/bin/opencode")
	if home != "" {
		out = append(out, filepath.Join(home, "bin", "opencode"))
	}
	return out
}

// ProbeFunc reports whether path is a working binary.
type ProbeFunc func(ctx context.Context, path string) error

// Locator finds the catalog binary once and caches the answer until
// Invalidate is called. It is safe for concurrent use.
type Locator struct {
	candidates []string
	probe      ProbeFunc

	mu     sync.Mutex
	cached string
}

// NewLocator returns a Locator over candidates. A nil probe runs
// "<path> --version" and requires a zero exit status.
func NewLocator(candidates []string, probe ProbeFunc) *Locator {
	if len(candidates) == 0 {
		candidates = DefaultCandidates()
	}
	if probe == nil {
		probe = versionProbe
	}
	return &Locator{candidates: candidates, probe: probe}
}

// Resolve returns the cached path or probes candidates in order.
func (l *Locator) Resolve(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != "" {
		return l.cached, nil
	}
	var errs []error
	for _, path := range l.candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := l.probe(ctx, path); err != nil {
			errs = append(errs, err)
			continue
		}
		l.cached = path
		return path, nil
	}
	return "", errors.Join(append([]error{ErrBinaryNotFound}, errs...)...)
}

// Cached returns the cached path, or "" before the first successful Resolve.
func (l *Locator) Cached() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cached
}

// Invalidate forgets the cached path so the next Resolve probes again.
func (l *Locator) Invalidate() {
	l.mu.Lock()
	l.cached = ""
	l.mu.Unlock()
}

func versionProbe(ctx context.Context, path string) error {
	_, err := runVersion(ctx, path)
	return err
}

func runVersion(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Version returns the trimmed "--version" output of the located binary.
// A failed run invalidates the cache, since the binary may have moved.
func (l *Locator) Version(ctx context.Context) (string, error) {
	path, err := l.Resolve(ctx)
	if err != nil {
		return "", err
	}
	v, err := runVersion(ctx, path)
	if err != nil {
		l.Invalidate()
		return "", err
	}
	return v, nil
}
