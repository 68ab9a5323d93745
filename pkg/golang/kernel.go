// Package golang is the Go language kernel. Fragments are classified with
// go/parser and executed by a session-scoped yaegi interpreter whose
// lifetime follows the registry's loader generation: a generation change
// discards the interpreter together with every binding it held.
package golang

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/traefik/yaegi/stdlib/unrestricted"

	"github.com/fraglab/frag/pkg/diag"
	"github.com/fraglab/frag/pkg/eval"
	"github.com/fraglab/frag/pkg/imports"
	"github.com/fraglab/frag/pkg/logutil"
	"github.com/fraglab/frag/pkg/registry"
	"github.com/fraglab/frag/pkg/wrap"
)

var logger = logutil.GetLogger("[golang] ")

// Bootstrap is evaluated before the first user fragment. It binds exit so
// that user code has a way to request clean termination.
const Bootstrap = `import "bridge"

var exit = bridge.Exit`

// Config configures a Kernel.
type Config struct {
	// Stdout and Stderr are the writers interpreted code prints to.
	// Defaults to the process's own.
	Stdout io.Writer
	Stderr io.Writer
	// Unrestricted additionally exposes the stdlib symbols the interpreter
	// gates by default, such as os.Exit and syscall.
	Unrestricted bool
	// GoPath is handed to the interpreter for source imports.
	GoPath string
}

// Kernel implements the parser, compiler and runtime collaborators for Go
// fragments on top of one persistent interpreter. A Kernel is confined to
// one session.
type Kernel struct {
	cfg Config

	mu       sync.Mutex
	itp      *interp.Interpreter
	gen      int
	units    map[string]*interp.Program
	imported map[string]bool
}

// NewKernel creates a Kernel with a fresh interpreter.
func NewKernel(cfg Config) (*Kernel, error) {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	k := &Kernel{
		cfg:      cfg,
		units:    make(map[string]*interp.Program),
		imported: make(map[string]bool),
	}
	itp, err := k.newInterp()
	if err != nil {
		return nil, err
	}
	k.itp = itp
	return k, nil
}

func (k *Kernel) newInterp() (*interp.Interpreter, error) {
	itp := interp.New(interp.Options{
		Stdout:       k.cfg.Stdout,
		Stderr:       k.cfg.Stderr,
		GoPath:       k.cfg.GoPath,
		Unrestricted: k.cfg.Unrestricted,
	})
	if err := itp.Use(stdlib.Symbols); err != nil {
		return nil, err
	}
	if k.cfg.Unrestricted {
		if err := itp.Use(unrestricted.Symbols); err != nil {
			return nil, err
		}
	}
	if err := itp.Use(bridgeSymbols()); err != nil {
		return nil, err
	}
	return itp, nil
}

// Compile runs each unit through the interpreter's compile phase without
// executing it, caches the compiled program for loading and derives the
// unit's exports. Imports of packages already live in the interpreter are
// dropped from the compiled form, since re-importing is a redeclaration
// there; the registered artifact keeps the full source so a fresh
// interpreter can rebuild the unit after a generation change.
func (k *Kernel) Compile(units []wrap.Unit, warn io.Writer) (*eval.Compiled, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := &eval.Compiled{}
	for _, u := range units {
		prog, err := k.compileLocked(u.Source)
		if err != nil {
			return nil, &diag.Error{Type: "compile error", Message: err.Error()}
		}
		k.units[u.Name] = prog
		out.Artifacts = append(out.Artifacts, registry.Artifact{
			Name: u.Name, Bytes: []byte(u.Source), Source: u.Source,
		})
		out.Exports = append(out.Exports, exportsOf(u.Source, u.Entry)...)
	}
	return out, nil
}

func (k *Kernel) compileLocked(src string) (*interp.Program, error) {
	filtered, added := dropLiveImports(src, k.imported)
	prog, err := k.itp.Compile(filtered)
	if err != nil {
		return nil, err
	}
	for _, key := range added {
		k.imported[key] = true
	}
	return prog, nil
}

// Load prepares one unit for invocation. A generation change on the loader
// resets the interpreter; the unit is then re-fetched through the loader
// and recompiled against the fresh state.
func (k *Kernel) Load(name, entry string, ld *registry.Loader) (eval.Loadable, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if gen := ld.Generation(); gen != k.gen {
		logger.Println("loader generation", k.gen, "->", gen, "; resetting interpreter")
		itp, err := k.newInterp()
		if err != nil {
			return nil, err
		}
		k.itp = itp
		k.gen = gen
		k.units = make(map[string]*interp.Program)
		k.imported = make(map[string]bool)
	}
	prog, ok := k.units[name]
	if !ok {
		bs, err := ld.Load(name)
		if err != nil {
			return nil, err
		}
		prog, err = k.compileLocked(string(bs))
		if err != nil {
			return nil, err
		}
		k.units[name] = prog
	}
	return &loadable{k: k, prog: prog, entry: entry}, nil
}

type loadable struct {
	k     *Kernel
	prog  *interp.Program
	entry string
}

// InvokeEntry executes the unit's compiled program, establishing its
// declarations in the interpreter scope, then calls the entry point.
// Closing interrupt cancels either phase through the interpreter's context
// support.
func (l *loadable) InvokeEntry(interrupt <-chan struct{}) (interface{}, error) {
	l.k.mu.Lock()
	defer l.k.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if interrupt != nil {
		go func() {
			select {
			case <-interrupt:
				cancel()
			case <-ctx.Done():
			}
		}()
	}
	if _, err := l.k.itp.ExecuteWithContext(ctx, l.prog); err != nil {
		return nil, convertFault(ctx, err)
	}
	v, err := l.k.itp.EvalWithContext(ctx, l.entry+"()")
	if err != nil {
		return nil, convertFault(ctx, err)
	}
	if !v.IsValid() || v.Kind() == reflect.Interface && v.IsNil() {
		return nil, nil
	}
	return v.Interface(), nil
}

// dropLiveImports removes plain imports of packages the interpreter already
// holds and returns the filtered source plus the keys of the imports it
// newly introduces. Dot and blank imports pass through untouched; repeating
// them is harmless.
func dropLiveImports(src string, live map[string]bool) (string, []string) {
	chunks, _ := splitTop(src)
	var kept, added []string
	seen := map[string]bool{}
	for _, chunk := range chunks {
		d := importChunk(chunk)
		if d == nil {
			kept = append(kept, chunk)
			continue
		}
		for _, spec := range d.Specs {
			is := spec.(*ast.ImportSpec)
			key, plain := importKey(is)
			if plain && (live[key] || seen[key]) {
				continue
			}
			if plain {
				seen[key] = true
				added = append(added, key)
			}
			kept = append(kept, renderImport(is))
		}
	}
	return strings.Join(kept, "\n"), added
}

func importChunk(chunk string) *ast.GenDecl {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(
		fset, "input", declHeader+chunk, parser.SkipObjectResolution)
	if err != nil || len(file.Decls) == 0 {
		return nil
	}
	d, ok := file.Decls[0].(*ast.GenDecl)
	if !ok || d.Tok != token.IMPORT {
		return nil
	}
	return d
}

// importKey identifies an import by alias and path, so a repeated import of
// the same package dedupes while a clashing alias still surfaces as the
// redeclaration it is.
func importKey(is *ast.ImportSpec) (key string, plain bool) {
	p, _ := strconv.Unquote(is.Path.Value)
	if is.Name == nil {
		return p, true
	}
	if is.Name.Name == "." || is.Name.Name == "_" {
		return "", false
	}
	return is.Name.Name + " " + p, true
}

func renderImport(is *ast.ImportSpec) string {
	if is.Name != nil {
		return "import " + is.Name.Name + " " + is.Path.Value
	}
	return "import " + is.Path.Value
}

// exitSignal is panicked by bridge.Exit and recognized by convertFault.
type exitSignal struct{ code int }

func bridgeSymbols() interp.Exports {
	return interp.Exports{
		"bridge/bridge": {
			"Exit": reflect.ValueOf(func(code int) {
				panic(exitSignal{code})
			}),
		},
	}
}

func convertFault(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return &eval.Fault{Reason: eval.ErrInterrupted}
	}
	var p interp.Panic
	if errors.As(err, &p) {
		if sig, ok := p.Value.(exitSignal); ok {
			return fmt.Errorf("entry invocation: %w",
				fmt.Errorf("exit status %d: %w", sig.code, eval.ErrExitRequested))
		}
		return &eval.Fault{
			Reason: fmt.Errorf("panic: %v", p.Value),
			Frames: panicFrames(p.Stack),
		}
	}
	return err
}

// panicFrames converts a captured goroutine stack into frames. Interpreter
// and runtime plumbing is marked internal.
func panicFrames(stack []byte) []eval.Frame {
	lines := strings.Split(strings.TrimRight(string(stack), "\n"), "\n")
	var frames []eval.Frame
	for i := 1; i < len(lines); i += 2 {
		fn := strings.TrimSpace(lines[i])
		if fn == "" {
			continue
		}
		if j := strings.LastIndex(fn, "("); j > 0 {
			fn = fn[:j]
		}
		internal := strings.Contains(fn, "github.com/traefik/yaegi") ||
			strings.HasPrefix(fn, "runtime") ||
			strings.HasPrefix(fn, "reflect")
		frames = append(frames, eval.Frame{Where: fn, Internal: internal})
	}
	return frames
}

// exportsOf derives the import entries a compiled unit makes available:
// every top-level binding, definition and := assignment except the entry
// point, plus the external modules the unit imports.
func exportsOf(src, entry string) []imports.Entry {
	chunks, _ := splitTop(src)
	var out []imports.Entry
	for _, chunk := range chunks {
		fset := token.NewFileSet()
		file, err := parser.ParseFile(
			fset, "input", declHeader+chunk, parser.SkipObjectResolution)
		if err == nil && len(file.Decls) > 0 {
			out = append(out, declExports(file.Decls[0], entry)...)
			continue
		}
		fset = token.NewFileSet()
		file, err = parser.ParseFile(
			fset, "input", stmtHeader+chunk+stmtFooter, parser.SkipObjectResolution)
		if err != nil {
			continue
		}
		fn := file.Decls[len(file.Decls)-1].(*ast.FuncDecl)
		for _, st := range fn.Body.List {
			if as, ok := st.(*ast.AssignStmt); ok && as.Tok == token.DEFINE {
				for _, name := range lhsNames(as) {
					out = append(out, imports.Entry{Local: name, Source: name})
				}
			}
		}
	}
	return out
}

func declExports(d ast.Decl, entry string) []imports.Entry {
	switch d := d.(type) {
	case *ast.FuncDecl:
		if name := d.Name.Name; name != entry && name != "_" {
			return []imports.Entry{{Local: name, Source: name}}
		}
	case *ast.GenDecl:
		if d.Tok == token.IMPORT {
			var out []imports.Entry
			for _, spec := range d.Specs {
				out = append(out, importExport(spec.(*ast.ImportSpec)))
			}
			return out
		}
		var out []imports.Entry
		for _, name := range specNames(d) {
			out = append(out, imports.Entry{Local: name, Source: name})
		}
		return out
	}
	return nil
}

func importExport(spec *ast.ImportSpec) imports.Entry {
	p, _ := strconv.Unquote(spec.Path.Value)
	e := imports.Entry{
		Local: path.Base(p), Source: path.Base(p), Prefix: p, External: true,
	}
	if spec.Name != nil {
		switch spec.Name.Name {
		case ".":
			e.Wildcard = true
			e.Local, e.Source = p, p
		case "_":
			e.Implicit = true
			e.Local, e.Source = p, "_"
		default:
			e.Local, e.Source = spec.Name.Name, spec.Name.Name
		}
	}
	return e
}
