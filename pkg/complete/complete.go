// Package complete produces completion candidates for a session: the local
// names accumulated in the import ledger and the wrapper artifacts held by
// the registry. Candidates are matched by identifier prefix; ranking is out
// of scope.
package complete

import (
	"sort"
	"strings"
)

// Candidate is one completion candidate.
type Candidate struct {
	// Text is the full replacement text.
	Text string
	// Kind tags where the candidate came from, "binding" or "artifact".
	Kind string
}

// Source supplies the names to complete over. *eval.Session satisfies it.
type Source interface {
	LedgerNames() []string
	ArtifactNames() []string
}

// Complete returns the candidates matching the identifier prefix that ends
// at cursor, along with the length of that prefix. Bindings shadow artifacts
// of the same name.
func Complete(src Source, text string, cursor int) ([]Candidate, int) {
	prefix := prefixAt(text, cursor)
	seen := make(map[string]bool)
	var out []Candidate
	for _, name := range src.LedgerNames() {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			out = append(out, Candidate{Text: name, Kind: "binding"})
		}
	}
	for _, name := range src.ArtifactNames() {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			out = append(out, Candidate{Text: name, Kind: "artifact"})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out, len(prefix)
}

// prefixAt returns the identifier characters immediately before cursor.
func prefixAt(text string, cursor int) string {
	if cursor > len(text) {
		cursor = len(text)
	}
	if cursor < 0 {
		cursor = 0
	}
	start := cursor
	for start > 0 && isIdentByte(text[start-1]) {
		start--
	}
	return text[start:cursor]
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' ||
		b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
