// Package hist persists session history.
//
// Two implementations are provided: a plain append-only file of records
// separated by a fixed delimiter, and a bolt-backed store for installations
// that already keep a session database. On restart the stored records seed
// the session's initial history buffer.
package hist

// Sep separates records in the file-backed store. Records may contain
// newlines (multi-line fragments), so a rarer delimiter is used.
const Sep = "\x00\n"

// Record is one stored history item.
type Record struct {
	// Seq is the 1-based sequence number.
	Seq int
	// Text is the raw fragment text.
	Text string
}

// Store is the interface satisfied by history storage.
type Store interface {
	// Add appends one record and returns its sequence number.
	Add(text string) (int, error)
	// List returns all records in insertion order.
	List() ([]Record, error)
	// Close releases the underlying resources.
	Close() error
}
