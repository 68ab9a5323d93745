package eval

import (
	"errors"
	"io"

	"github.com/fraglab/frag/pkg/imports"
	"github.com/fraglab/frag/pkg/registry"
	"github.com/fraglab/frag/pkg/wrap"
)

// Sentinel errors that the Parser collaborator returns to classify input
// that produced no declarations.
var (
	// ErrIncompleteInput reports that the fragment is syntactically
	// incomplete and must be buffered until more input arrives.
	ErrIncompleteInput = errors.New("incomplete input")
	// ErrBlankInput reports that the fragment contains nothing to
	// evaluate.
	ErrBlankInput = errors.New("blank input")
)

// Parser is the external parser collaborator. Parse turns one fragment
// into declarations and a display expression: the expression whose value
// the generated entry point returns, or "" when the fragment has no value
// to show. Parse errors other than the sentinels above fail the fragment.
type Parser interface {
	Parse(text string, line int) (decls []Declaration, display string, err error)
}

// Compiled is the successful output of the Compiler collaborator.
type Compiled struct {
	// Artifacts are the compiled units, keyed by wrapper name.
	Artifacts []registry.Artifact
	// Exports are the import entries the fragment makes available to
	// later fragments. Entries for wrapper bindings are emitted with an
	// empty prefix; the loop rewrites them to the new wrapper identifier.
	Exports []imports.Entry
}

// Compiler is the external compiler collaborator. Diagnostics beyond the
// returned error are written to warn.
type Compiler interface {
	Compile(units []wrap.Unit, warn io.Writer) (*Compiled, error)
}

// Loadable is a loaded entry point ready for invocation.
type Loadable interface {
	// InvokeEntry executes the entry point and returns its display
	// value. Closing interrupt requests cancellation; the implementation
	// converts cancellation into an error wrapping ErrInterrupted.
	InvokeEntry(interrupt <-chan struct{}) (interface{}, error)
}

// Runtime is the dynamic-loading collaborator. Load resolves the named
// unit through the given loader and prepares its entry point. Compile
// success is expected to guarantee loadability; a Load failure is strongly
// exceptional.
type Runtime interface {
	Load(unit, entry string, ld *registry.Loader) (Loadable, error)
}
