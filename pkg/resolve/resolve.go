// Package resolve maps library coordinates to filesystem paths that can be
// appended to the artifact registry's classpath roots.
//
// A coordinate is either a filesystem path (directory or archive), taken as
// is, or a "name@version" pair looked up under the resolver's cache roots as
// <root>/<name>/<version>. A bare name resolves to <root>/<name>. Resolution
// happens once at session start and again when the user adds libraries
// mid-session.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fraglab/frag/pkg/errutil"
)

// Resolver resolves coordinates against a fixed list of cache roots.
type Resolver struct {
	roots []string
}

// New creates a Resolver over the given cache roots, searched in order.
func New(roots ...string) *Resolver {
	return &Resolver{roots: roots}
}

// Resolve maps each coordinate to a filesystem path. Paths for coordinates
// that resolve are always returned; unresolvable coordinates are reported in
// the joined error alongside them.
func (r *Resolver) Resolve(coords []string) ([]string, error) {
	var paths []string
	var errs []error
	for _, c := range coords {
		p, err := r.resolveOne(c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, p)
	}
	return paths, errutil.Multi(errs...)
}

func (r *Resolver) resolveOne(coord string) (string, error) {
	if _, err := os.Stat(coord); err == nil {
		return coord, nil
	}
	name, version, _ := strings.Cut(coord, "@")
	if name == "" {
		return "", fmt.Errorf("cannot resolve empty coordinate %q", coord)
	}
	for _, root := range r.roots {
		p := filepath.Join(root, name)
		if version != "" {
			p = filepath.Join(p, version)
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("cannot resolve %q in any cache root", coord)
}
