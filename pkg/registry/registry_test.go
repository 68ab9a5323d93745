package registry

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/fraglab/frag/pkg/must"
)

func TestAddArtifact_VisibleToLoaderImmediately(t *testing.T) {
	r := New(nil)
	ld := r.CurrentLoader(Runtime)
	r.AddArtifact(Artifact{Name: "frag0", Bytes: []byte("a")})

	bs, err := ld.Load("frag0")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(bs) != "a" {
		t.Errorf("Load = %q, want a", bs)
	}
	// Re-adding under the same name supersedes.
	r.AddArtifact(Artifact{Name: "frag0", Bytes: []byte("b")})
	bs, _ = ld.Load("frag0")
	if string(bs) != "b" {
		t.Errorf("Load after re-add = %q, want b", bs)
	}
}

func TestLookupArtifact(t *testing.T) {
	r := New(nil)
	r.AddArtifact(Artifact{Name: "frag0", Bytes: []byte("src"), Source: "src"})
	if bs, ok := r.LookupArtifact("frag0"); !ok || string(bs) != "src" {
		t.Errorf("LookupArtifact = (%q, %v), want (src, true)", bs, ok)
	}
	if _, ok := r.LookupArtifact("nope"); ok {
		t.Errorf("LookupArtifact found nonexistent artifact")
	}
}

func TestAddPaths_FiltersNonexistentSilently(t *testing.T) {
	dir := t.TempDir()
	must.OK(os.WriteFile(filepath.Join(dir, "lib0"), []byte("lib"), 0644))

	r := New(nil)
	var notified []string
	r.OnPathsAdded(func(tier Tier, paths []string) {
		if tier != Runtime {
			t.Errorf("observer got tier %v, want runtime", tier)
		}
		notified = append(notified, paths...)
	})
	r.AddPaths(Runtime, []string{filepath.Join(dir, "missing"), dir})

	if diff := cmp.Diff([]string{dir}, notified); diff != "" {
		t.Errorf("observer paths (-want +got):\n%s", diff)
	}
	bs, err := r.CurrentLoader(Runtime).Load("lib0")
	if err != nil || string(bs) != "lib" {
		t.Errorf("Load from dir root = (%q, %v), want (lib, nil)", bs, err)
	}
}

func TestLoader_ArchiveRoot(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "libs.zip")
	f := must.OK1(os.Create(archive))
	zw := zip.NewWriter(f)
	w := must.OK1(zw.Create("packed"))
	must.OK1(w.Write([]byte("zipped")))
	must.OK(zw.Close())
	must.OK(f.Close())

	r := New(nil)
	r.AddPaths(Plugin, []string{archive})
	bs, err := r.CurrentLoader(Plugin).Load("packed")
	if err != nil || string(bs) != "zipped" {
		t.Errorf("Load from archive = (%q, %v), want (zipped, nil)", bs, err)
	}
}

func TestLoader_ParentFallback(t *testing.T) {
	parentReg := New(nil)
	parentReg.AddArtifact(Artifact{Name: "shared", Bytes: []byte("p")})
	r := New(parentReg.CurrentLoader(Runtime))

	bs, err := r.CurrentLoader(Runtime).Load("shared")
	if err != nil || string(bs) != "p" {
		t.Errorf("Load via parent = (%q, %v), want (p, nil)", bs, err)
	}
	_, err = r.CurrentLoader(Runtime).Load("absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(absent) = %v, want ErrNotFound", err)
	}
}

func TestTiersAreIndependent(t *testing.T) {
	dir := t.TempDir()
	must.OK(os.WriteFile(filepath.Join(dir, "macro"), []byte("m"), 0644))

	r := New(nil)
	r.AddPaths(CompilerInternal, []string{dir})
	if _, err := r.CurrentLoader(Runtime).Load("macro"); !errors.Is(err, ErrNotFound) {
		t.Errorf("runtime tier sees compiler-internal root: %v", err)
	}
	if _, err := r.CurrentLoader(CompilerInternal).Load("macro"); err != nil {
		t.Errorf("compiler-internal tier cannot see own root: %v", err)
	}
}

func TestSharedCompileExecuteMode_InvalidatesAndRecovers(t *testing.T) {
	dir := t.TempDir()
	must.OK(os.WriteFile(filepath.Join(dir, "macro"), []byte("m"), 0644))

	r := New(nil)
	r.AddPaths(CompilerInternal, []string{dir})
	r.AddArtifact(Artifact{Name: "frag0", Bytes: []byte("old")})
	oldLoader := r.CurrentLoader(Runtime)
	gen := r.Generation()

	if !r.SetSharedCompileExecuteMode(true) {
		t.Fatal("enabling shared mode reported no loader change")
	}
	if r.Generation() == gen {
		t.Error("generation did not advance")
	}
	// The previously fetched loader must no longer resolve the old
	// artifact, and the registry is treated as empty going forward.
	if _, err := oldLoader.Load("frag0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale loader resolved old artifact: %v", err)
	}
	if _, ok := r.LookupArtifact("frag0"); ok {
		t.Error("registry kept artifacts across the swap")
	}

	// Both tiers now share one loader that sees the union of roots, and
	// new artifacts work normally (empty-registry recovery).
	if r.CurrentLoader(Runtime) != r.CurrentLoader(CompilerInternal) {
		t.Error("tiers not coalesced")
	}
	if bs, err := r.CurrentLoader(Runtime).Load("macro"); err != nil || string(bs) != "m" {
		t.Errorf("coalesced loader missing compiler-internal root: (%q, %v)", bs, err)
	}
	r.AddArtifact(Artifact{Name: "frag1", Bytes: []byte("new")})
	if bs, err := r.CurrentLoader(Runtime).Load("frag1"); err != nil || string(bs) != "new" {
		t.Errorf("new artifact not loadable after swap: (%q, %v)", bs, err)
	}

	// Toggling to the value already in effect is a no-op.
	if r.SetSharedCompileExecuteMode(true) {
		t.Error("no-op toggle reported a loader change")
	}
}

func TestSharedCompileExecuteMode_DisableRestoresTierIsolation(t *testing.T) {
	dir := t.TempDir()
	must.OK(os.WriteFile(filepath.Join(dir, "macro"), []byte("m"), 0644))

	r := New(nil)
	r.AddPaths(CompilerInternal, []string{dir})
	r.SetSharedCompileExecuteMode(true)
	if _, err := r.CurrentLoader(Runtime).Load("macro"); err != nil {
		t.Fatalf("coalesced loader missing compiler-internal root: %v", err)
	}

	r.SetSharedCompileExecuteMode(false)
	if _, err := r.CurrentLoader(Runtime).Load("macro"); !errors.Is(err, ErrNotFound) {
		t.Errorf("runtime tier kept compiler-internal root after disable: %v", err)
	}
	if _, err := r.CurrentLoader(CompilerInternal).Load("macro"); err != nil {
		t.Errorf("compiler-internal tier lost its own root: %v", err)
	}
}

func TestSharedCompileExecuteMode_PathsAddedWhileSharedAreUnioned(t *testing.T) {
	dir := t.TempDir()
	must.OK(os.WriteFile(filepath.Join(dir, "macro"), []byte("m"), 0644))

	r := New(nil)
	r.SetSharedCompileExecuteMode(true)
	r.AddPaths(CompilerInternal, []string{dir})
	if bs, err := r.CurrentLoader(Runtime).Load("macro"); err != nil || string(bs) != "m" {
		t.Errorf("coalesced loader = (%q, %v), want (m, nil)", bs, err)
	}
}
