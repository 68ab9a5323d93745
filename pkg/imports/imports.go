// Package imports implements the session's import ledger.
//
// The ledger accumulates every binding that fragments export over the life
// of a session, deduplicated by local name, and renders the import preamble
// embedded at the top of the next generated wrapper. Rendering only the
// entries whose names the next fragment actually references keeps wrappers
// small as the session grows; wildcard and implicit entries are retained
// unconditionally because their effect is invisible to reference-name
// computation.
package imports

import "strings"

// Entry is one accumulated import binding.
type Entry struct {
	// Local is the name visible to later fragments.
	Local string
	// Source is the name in the producing scope. It equals Local unless
	// the binding was renamed.
	Source string
	// Prefix identifies the producing wrapper, or the external module for
	// entries with External set.
	Prefix string
	// Wildcard marks an entry that imports every name from Prefix.
	// Wildcard entries never shadow and are retained additively.
	Wildcard bool
	// Implicit marks an entry that affects resolution even when its name
	// is not textually referenced. Implicit entries always render.
	Implicit bool
	// External marks an entry whose Prefix names an external module
	// rather than a session wrapper. The prefix of external entries is
	// never rewritten by the evaluation loop.
	External bool
}

// Renderer turns an entry into one line of import preamble. Returning an
// empty string omits the entry from the rendered block; languages whose
// runtime resolves wrapper bindings without a textual import use this for
// non-external entries.
type Renderer func(Entry) string

// Ledger is the ordered, deduplicated set of import bindings visible to
// subsequent fragments. The zero value is an empty ledger ready for use.
type Ledger struct {
	entries []Entry
}

// Update merges newly exported entries into the ledger. A non-wildcard
// entry replaces, in place, any existing non-wildcard entry with the same
// local name; a brand-new name appends. Wildcard entries always append.
func (lg *Ledger) Update(entries []Entry) {
	for _, e := range entries {
		if e.Wildcard {
			lg.entries = append(lg.entries, e)
			continue
		}
		replaced := false
		for i, old := range lg.entries {
			if !old.Wildcard && old.Local == e.Local {
				lg.entries[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			lg.entries = append(lg.entries, e)
		}
	}
}

// PreviousImportBlock renders, in ledger order, the entries whose local
// name is in referenced, plus all implicit and wildcard entries, as a
// textual import preamble. The block ends with a newline unless it is
// empty.
func (lg *Ledger) PreviousImportBlock(referenced map[string]bool, render Renderer) string {
	var sb strings.Builder
	for _, e := range lg.entries {
		if !e.Wildcard && !e.Implicit && !referenced[e.Local] {
			continue
		}
		if line := render(e); line != "" {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Entries returns a copy of the live entries in ledger order.
func (lg *Ledger) Entries() []Entry {
	return append([]Entry(nil), lg.entries...)
}

// Names returns the local names of all non-wildcard entries in ledger
// order, for use by completion.
func (lg *Ledger) Names() []string {
	var names []string
	for _, e := range lg.entries {
		if !e.Wildcard {
			names = append(names, e.Local)
		}
	}
	return names
}
