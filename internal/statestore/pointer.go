// File: internal/statestore/pointer.go
package statestore

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const currentPointerName = "state.json"

// pointer is the "current identity" indirection: a fixed path that always
// resolves to the active identity's state file. Two interchangeable backends
// exist; which one is used is decided once, by capability probe, at store
// construction rather than by catching errors at each call site.
type pointer interface {
	// FixedPath is the stable path callers read through.
	FixedPath() string
	// Set makes the fixed path resolve to target.
	Set(target string) error
	// Resolve reports the target (best effort) and whether a current state exists.
	Resolve() (string, bool)
	// Clear removes the indirection.
	Clear() error
}

// newPointer probes whether the directory supports symlinks and picks the
// backend accordingly.
func newPointer(dir, name string) pointer {
	path := filepath.Join(dir, name)
	if symlinksSupported(dir) {
		return &linkPointer{path: path}
	}
	return &copyPointer{path: path}
}

func symlinksSupported(dir string) bool {
	probe := filepath.Join(dir, ".ptr-probe-"+uuid.NewString())
	if err := os.Symlink("probe-target", probe); err != nil {
		return false
	}
	_ = os.Remove(probe)
	return true
}

// linkPointer implements the pointer as a symbolic link.
type linkPointer struct {
	path string
}

func (p *linkPointer) FixedPath() string { return p.path }

func (p *linkPointer) Set(target string) error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(target, p.path)
}

func (p *linkPointer) Resolve() (string, bool) {
	target, err := os.Readlink(p.path)
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(p.path); err != nil {
		// Dangling link.
		return target, false
	}
	return target, true
}

func (p *linkPointer) Clear() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// copyPointer implements the pointer as a physical copy for filesystems
// without symlink support. The copy goes stale if the identity file is
// rewritten, so Set is re-invoked on every save of the active identity.
type copyPointer struct {
	path string
}

func (p *copyPointer) FixedPath() string { return p.path }

func (p *copyPointer) Set(target string) error {
	src, err := os.Open(target)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(p.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (p *copyPointer) Resolve() (string, bool) {
	if _, err := os.Stat(p.path); err != nil {
		return "", false
	}
	return p.path, true
}

func (p *copyPointer) Clear() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
