// Package wrap turns a batch of declarations plus the current import
// preamble into compilable units with a deterministic entry point.
//
// The language-specific source text is supplied through a Template; this
// package owns the parts that must hold for every language: wrapper
// identifiers are unique per session line and identifier-safe, the preamble
// is embedded verbatim before user declarations, and the entry point
// returns the caller-supplied display computation rather than the bindings
// themselves.
package wrap

import (
	"errors"
	"strconv"
	"strings"
)

// Strategy selects how declarations are wrapped.
type Strategy int

const (
	// FlatModule places declarations as members of one top-level named
	// module.
	FlatModule Strategy = iota
	// InstanceWrapping places declarations in a freshly instantiated
	// object held by a singleton, giving value-semantics isolation.
	InstanceWrapping
)

// Decl is the wrapper-facing view of one parsed declaration.
type Decl struct {
	// Code is the declaration source text.
	Code string
	// Member marks a declaration that becomes a member of the wrapper.
	// Non-member declarations are executable statements placed in the
	// entry point body, before the display computation.
	Member bool
	// FlatEscape requests flat-module treatment for this declaration even
	// inside an instance-wrapping session.
	FlatEscape bool
}

// Template supplies the language-specific source text of wrapper units.
// Instance may be nil for languages that only support the flat strategy.
type Template struct {
	Flat     func(name, preamble string, members, stmts []string, display string) string
	Instance func(name, preamble string, members, stmts []string, display string) string
	// Entry returns the entry-point symbol for a wrapper name.
	Entry func(name string) string
}

// Unit is one compilable unit produced for a fragment.
type Unit struct {
	// Name is the wrapper identifier, unique within the session.
	Name string
	// Entry is the entry-point symbol, or "" for a sibling unit without
	// an entry point.
	Entry string
	// Source is the full generated source text.
	Source string
}

// ErrNoInstanceTemplate is returned when the instance-wrapping strategy is
// requested but the template does not support it.
var ErrNoInstanceTemplate = errors.New("language template does not support instance wrapping")

// Generator generates wrapper units. It is stateless apart from its
// configuration; identifier uniqueness comes from the caller's
// monotonically increasing line counter.
type Generator struct {
	stem     string
	strategy Strategy
	tmpl     Template
}

// NewGenerator returns a Generator that derives wrapper identifiers from
// the given stem and wraps with the given strategy.
func NewGenerator(stem string, strategy Strategy, tmpl Template) *Generator {
	return &Generator{stem, strategy, tmpl}
}

// Name returns the wrapper identifier for a session line. Characters that
// are not identifier-safe (such as the sign of the bootstrap line) are
// sanitized.
func (g *Generator) Name(line int) string {
	return g.stem + sanitizeIdent(strconv.Itoa(line))
}

// Generate wraps decls for the given session line. It returns the units to
// compile and the identifier of the unit holding the entry point. Under the
// instance-wrapping strategy, declarations carrying the flat-escape marker
// are filtered into a sibling flat unit whose identifier is adjusted to
// avoid colliding with the primary wrapper for the same line.
func (g *Generator) Generate(line int, decls []Decl, preamble, display string) ([]Unit, string, error) {
	name := g.Name(line)
	if g.strategy == FlatModule {
		members, stmts := split(decls)
		unit := Unit{name, g.tmpl.Entry(name), g.tmpl.Flat(name, preamble, members, stmts, display)}
		return []Unit{unit}, name, nil
	}
	if g.tmpl.Instance == nil {
		return nil, "", ErrNoInstanceTemplate
	}
	escaped, kept := partition(decls)
	members, stmts := split(kept)
	primary := Unit{name, g.tmpl.Entry(name), g.tmpl.Instance(name, preamble, members, stmts, display)}
	if len(escaped) == 0 {
		return []Unit{primary}, name, nil
	}
	sibling := name + "_flat"
	escMembers, escStmts := split(escaped)
	flat := Unit{sibling, "", g.tmpl.Flat(sibling, preamble, escMembers, escStmts, "")}
	return []Unit{primary, flat}, name, nil
}

// partition separates declarations carrying the flat-escape marker from
// the rest, preserving order within each group.
func partition(decls []Decl) (escaped, kept []Decl) {
	for _, d := range decls {
		if d.FlatEscape {
			escaped = append(escaped, d)
		} else {
			kept = append(kept, d)
		}
	}
	return escaped, kept
}

func split(decls []Decl) (members, stmts []string) {
	for _, d := range decls {
		if d.Member {
			members = append(members, d.Code)
		} else {
			stmts = append(stmts, d.Code)
		}
	}
	return members, stmts
}

func sanitizeIdent(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == '_' || r >= '0' && r <= '9' ||
			r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
