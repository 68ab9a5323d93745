// Package registry maintains the compiled artifacts of a session and the
// tiered loaders that resolve them.
//
// Each tier owns an ordered, append-only list of classpath roots (plain
// directories or zip archives) and a derived loader. A loader resolves a
// name first against the in-memory artifact map, then against its roots,
// then against its parent. Loaders are generation-scoped: structural
// changes that replace the effective loader bump the registry generation,
// after which previously obtained loaders resolve nothing and all
// previously loaded artifacts are discarded. Callers must re-fetch
// CurrentLoader rather than cache it.
package registry

import (
	"os"
	"sync"

	"github.com/fraglab/frag/pkg/logutil"
)

var logger = logutil.GetLogger("[registry] ")

// Tier is an independent loading role.
type Tier int

const (
	// Runtime loads and executes user code.
	Runtime Tier = iota
	// CompilerInternal is used only when invoking the embedded compiler
	// itself, such as for macro-like expansion.
	CompilerInternal
	// Plugin loads compiler extensions.
	Plugin

	numTiers
)

// String returns the name of the tier.
func (t Tier) String() string {
	switch t {
	case Runtime:
		return "runtime"
	case CompilerInternal:
		return "compiler-internal"
	case Plugin:
		return "plugin"
	}
	return "bad tier"
}

// Artifact is a named unit of compiled code plus the wrapper source it was
// generated from. Artifacts are never mutated once added, only superseded
// by re-adding under the same name.
type Artifact struct {
	Name   string
	Bytes  []byte
	Source string
}

// Registry is the tiered artifact store of one session. It must not be
// shared across sessions.
type Registry struct {
	mu         sync.Mutex
	artifacts  map[string]Artifact
	tiers      [numTiers]tierState
	shared     bool
	generation int
	parent     *Loader
	observers  []func(Tier, []string)
}

type tierState struct {
	roots  []string
	loader *Loader
}

// New creates an empty Registry. The parent loader, if not nil, is
// consulted when neither the artifact map nor any root resolves a name.
func New(parent *Loader) *Registry {
	return &Registry{artifacts: make(map[string]Artifact), parent: parent}
}

// AddPaths appends classpath roots to a tier. Paths that do not exist are
// silently filtered. Registered path observers are notified with the
// surviving paths.
func (r *Registry) AddPaths(tier Tier, paths []string) {
	var kept []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			logger.Println("dropping nonexistent path:", p)
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return
	}
	r.mu.Lock()
	r.tiers[tier].roots = append(r.tiers[tier].roots, kept...)
	r.dropLoadersLocked()
	observers := make([]func(Tier, []string), len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()
	for _, f := range observers {
		f(tier, kept)
	}
}

// OnPathsAdded registers an observer called after every successful AddPaths
// with the tier and the surviving paths.
func (r *Registry) OnPathsAdded(f func(Tier, []string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, f)
}

// AddArtifact inserts or overwrites one artifact. The artifact is visible
// to loader queries immediately; the tier loaders are not invalidated.
func (r *Registry) AddArtifact(a Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[a.Name] = a
}

// LookupArtifact returns the bytes of a registered artifact. It never
// consults classpath roots; presentation collaborators use it for fast,
// pure queries.
func (r *Registry) LookupArtifact(name string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.artifacts[name]
	return a.Bytes, ok
}

// ArtifactNames returns the names of all registered artifacts, in
// unspecified order.
func (r *Registry) ArtifactNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.artifacts))
	for name := range r.artifacts {
		names = append(names, name)
	}
	return names
}

// CurrentLoader returns the live loader of a tier. Structural changes
// replace the underlying loader, so callers must re-fetch instead of
// caching the returned value.
func (r *Registry) CurrentLoader(tier Tier) *Loader {
	r.mu.Lock()
	defer r.mu.Unlock()
	eff := r.effectiveLocked(tier)
	if r.tiers[eff].loader == nil {
		r.tiers[eff].loader = &Loader{
			reg:    r,
			gen:    r.generation,
			roots:  r.rootsLocked(eff),
			parent: r.parent,
		}
	}
	return r.tiers[eff].loader
}

// rootsLocked returns a copy of the tier's roots. In shared mode the
// coalesced Runtime loader additionally resolves CompilerInternal's roots,
// in tier order, without either tier's own list being touched.
func (r *Registry) rootsLocked(tier Tier) []string {
	roots := append([]string(nil), r.tiers[tier].roots...)
	if r.shared && tier == Runtime {
		roots = append(roots, r.tiers[CompilerInternal].roots...)
	}
	return roots
}

// SetSharedCompileExecuteMode coalesces the Runtime and CompilerInternal
// tiers into one loader when enabled, so that compiler-embedding code and
// user code observe identical artifact identity. Toggling the mode replaces
// the effective loader and therefore invalidates every previously loaded
// artifact: the registry is emptied and prior loader references resolve
// nothing. It reports whether such an invalidation happened.
func (r *Registry) SetSharedCompileExecuteMode(enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shared == enabled {
		return false
	}
	r.shared = enabled
	r.generation++
	r.artifacts = make(map[string]Artifact)
	r.dropLoadersLocked()
	logger.Println("loader generation now", r.generation)
	return true
}

// Generation returns the current loader generation. It increases every
// time the effective loader set is replaced.
func (r *Registry) Generation() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *Registry) effectiveLocked(tier Tier) Tier {
	if r.shared && tier == CompilerInternal {
		return Runtime
	}
	return tier
}

func (r *Registry) dropLoadersLocked() {
	for i := range r.tiers {
		r.tiers[i].loader = nil
	}
}

// artifactForGen looks up an artifact on behalf of a loader from the given
// generation. It takes the registry lock itself.
func (r *Registry) artifactForGen(name string, gen int) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return nil, false
	}
	a, ok := r.artifacts[name]
	return a.Bytes, ok
}
