package eval

import (
	"github.com/fraglab/frag/pkg/hist"
	"github.com/fraglab/frag/pkg/imports"
	"github.com/fraglab/frag/pkg/logutil"
	"github.com/fraglab/frag/pkg/registry"
)

var logger = logutil.GetLogger("[eval] ")

// Session aggregates the mutable state threaded across fragments: the line
// counter, the in-memory history, the import ledger and the artifact
// registry. There are no process-wide singletons; independent sessions can
// be constructed side by side, each confined to one logical thread.
type Session struct {
	line    int
	history []string
	store   hist.Store

	// Ledger is the session's import ledger.
	Ledger *imports.Ledger
	// Registry is the session's artifact registry.
	Registry *registry.Registry
}

// NewSession creates a session around the given registry, with the line
// counter at zero and an empty ledger.
func NewSession(reg *registry.Registry) *Session {
	return &Session{Ledger: &imports.Ledger{}, Registry: reg}
}

// Line returns the current session line, the one the next fragment will be
// wrapped under.
func (s *Session) Line() int { return s.line }

// advance increments the line counter and returns the line the current
// fragment owns. It is called exactly once per fragment that produced
// declarations, even when a later stage fails, so wrapper identifiers are
// never reused.
func (s *Session) advance() int {
	line := s.line
	s.line++
	return line
}

// AttachHistory attaches a persistent history store and seeds the
// in-memory history buffer from it.
func (s *Session) AttachHistory(store hist.Store) error {
	records, err := store.List()
	if err != nil {
		return err
	}
	for _, r := range records {
		s.history = append(s.history, r.Text)
	}
	s.store = store
	return nil
}

// AddHistory appends one raw fragment to the history, persisting it when a
// store is attached. Persistence failures are logged, not fatal.
func (s *Session) AddHistory(text string) {
	s.history = append(s.history, text)
	if s.store != nil {
		if _, err := s.store.Add(text); err != nil {
			logger.Println("cannot persist history:", err)
		}
	}
}

// History returns a copy of the in-memory history.
func (s *Session) History() []string {
	return append([]string(nil), s.history...)
}

// ArtifactNames exposes the registry's artifact names for completion.
func (s *Session) ArtifactNames() []string { return s.Registry.ArtifactNames() }

// LedgerNames exposes the ledger's local names for completion.
func (s *Session) LedgerNames() []string { return s.Ledger.Names() }
