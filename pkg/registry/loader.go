package registry

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by Loader.Load when no artifact map entry, root
// or parent resolves the requested name. A loader from a superseded
// generation returns it for every name.
var ErrNotFound = errors.New("no such artifact")

// Loader resolves artifact names for one tier. Loaders are immutable
// snapshots except for the live artifact map, which they consult through
// the registry as long as their generation is current.
type Loader struct {
	reg    *Registry
	gen    int
	roots  []string
	parent *Loader
}

// Generation returns the registry generation this loader belongs to.
// Runtimes use it to detect that previously loaded artifacts have been
// invalidated.
func (l *Loader) Generation() int { return l.gen }

// Load resolves a name to artifact bytes: first the registry's in-memory
// artifacts, then the classpath roots in order, then the parent loader.
func (l *Loader) Load(name string) ([]byte, error) {
	if l.reg != nil {
		if bs, ok := l.reg.artifactForGen(name, l.gen); ok {
			return bs, nil
		}
		if l.gen != l.reg.Generation() {
			// This loader has been superseded; its artifacts are gone
			// and its roots must not leak into the new generation.
			return nil, fmt.Errorf("%w: %s (stale loader)", ErrNotFound, name)
		}
	}
	for _, root := range l.roots {
		if bs, ok := loadFromRoot(root, name); ok {
			return bs, nil
		}
	}
	if l.parent != nil {
		return l.parent.Load(name)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func loadFromRoot(root, name string) ([]byte, bool) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, false
	}
	if info.IsDir() {
		bs, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			return nil, false
		}
		return bs, true
	}
	return loadFromArchive(root, name)
}

func loadFromArchive(archive, name string) ([]byte, bool) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, false
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, false
		}
		defer rc.Close()
		bs, err := io.ReadAll(rc)
		if err != nil {
			return nil, false
		}
		return bs, true
	}
	return nil, false
}
