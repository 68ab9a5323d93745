package eval

import (
	"fmt"
	"strings"
)

// DisplayKind tags what a declaration did, for synthesizing "what happened"
// feedback.
type DisplayKind int

const (
	// Definition introduces a function, type or module member.
	Definition DisplayKind = iota
	// Import brings names from an external module into scope.
	Import
	// IdentityBinding binds a name to an eagerly evaluated value.
	IdentityBinding
	// LazyBinding binds a name to a value evaluated on first use.
	LazyBinding
)

// DisplayItem describes one visible effect of a declaration.
type DisplayItem struct {
	Kind  DisplayKind
	Names []string
}

// Declaration is one top-level statement or definition from a fragment.
// Declarations are produced fresh per fragment and do not outlive wrapping.
type Declaration struct {
	// Code is the source text of the declaration, possibly normalized by
	// the parser collaborator.
	Code string
	// Display lists the visible effects, used for user feedback.
	Display []DisplayItem
	// Refs is the set of names the declaration references, used to
	// compute which prior imports must be re-emitted.
	Refs []string
	// Member marks a declaration that becomes a wrapper member rather
	// than an executable statement in the entry body.
	Member bool
	// FlatEscape requests flat-module wrapping for this declaration even
	// inside an instance-wrapping session.
	FlatEscape bool
}

// referencedNames unions the Refs of all declarations.
func referencedNames(decls []Declaration) map[string]bool {
	refs := make(map[string]bool)
	for _, d := range decls {
		for _, name := range d.Refs {
			refs[name] = true
		}
	}
	return refs
}

// feedback synthesizes a one-line summary of what the declarations did,
// like "defined x, imported fmt". It returns "" when there is nothing to
// report.
func feedback(decls []Declaration) string {
	var defined, imported []string
	for _, d := range decls {
		for _, item := range d.Display {
			switch item.Kind {
			case Import:
				imported = append(imported, item.Names...)
			default:
				defined = append(defined, item.Names...)
			}
		}
	}
	var parts []string
	if len(defined) > 0 {
		parts = append(parts, "defined "+strings.Join(defined, ", "))
	}
	if len(imported) > 0 {
		parts = append(parts, "imported "+strings.Join(imported, ", "))
	}
	return strings.Join(parts, "; ")
}

// String implements fmt.Stringer for debugging output.
func (k DisplayKind) String() string {
	switch k {
	case Definition:
		return "definition"
	case Import:
		return "import"
	case IdentityBinding:
		return "binding"
	case LazyBinding:
		return "lazy binding"
	}
	return fmt.Sprintf("bad display kind %d", int(k))
}
