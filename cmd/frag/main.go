// Frag is an interactive, incremental code-execution engine: fragments of
// source text are accumulated into one session, each compiled into a
// wrapper unit and invoked, with bindings and imports carried across
// fragments. It is suitable for both interactive use and scripting.
package main

import (
	"os"

	"github.com/fraglab/frag/pkg/buildinfo"
	"github.com/fraglab/frag/pkg/lsp"
	"github.com/fraglab/frag/pkg/prog"
	"github.com/fraglab/frag/pkg/shell"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(buildinfo.Program, lsp.Program, shell.Program{})))
}
