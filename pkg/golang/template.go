package golang

import (
	"path"
	"strconv"
	"strings"

	"github.com/fraglab/frag/pkg/imports"
	"github.com/fraglab/frag/pkg/wrap"
)

// Template returns the Go wrapper template. Only the flat strategy is
// supported; the interpreter has no instance construct to wrap with.
func Template() wrap.Template {
	return wrap.Template{Flat: flatUnit, Entry: entryName}
}

func entryName(name string) string { return name + "_entry" }

func flatUnit(name, preamble string, members, stmts []string, display string) string {
	var sb strings.Builder
	sb.WriteString("// " + name + "\n")
	sb.WriteString(preamble)
	for _, m := range members {
		sb.WriteString(m)
		sb.WriteString("\n")
	}
	sb.WriteString("func " + entryName(name) + "() interface{} {\n")
	for _, s := range stmts {
		sb.WriteString("\t" + s + "\n")
	}
	if display == "" {
		sb.WriteString("\treturn nil\n")
	} else {
		sb.WriteString("\treturn " + display + "\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Render turns one ledger entry into an import preamble line. Wrapper
// bindings render empty: the persistent interpreter scope already resolves
// them, so no textual re-import is needed.
func Render(e imports.Entry) string {
	if !e.External {
		return ""
	}
	switch {
	case e.Wildcard:
		return "import . " + strconv.Quote(e.Prefix)
	case e.Implicit:
		return "import _ " + strconv.Quote(e.Prefix)
	case e.Local != path.Base(e.Prefix):
		return "import " + e.Local + " " + strconv.Quote(e.Prefix)
	default:
		return "import " + strconv.Quote(e.Prefix)
	}
}
