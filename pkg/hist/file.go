package hist

import (
	"os"
	"strings"
	"sync"
)

// fileStore is the delimiter-separated append-only file store.
type fileStore struct {
	mu   sync.Mutex
	path string
	f    *os.File
	seq  int
}

// NewFileStore opens (creating if needed) a file-backed history store.
func NewFileStore(path string) (Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	s := &fileStore{path: path, f: f}
	records, err := s.List()
	if err != nil {
		f.Close()
		return nil, err
	}
	s.seq = len(records)
	return s, nil
}

func (s *fileStore) Add(text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.WriteString(text + Sep); err != nil {
		return 0, err
	}
	s.seq++
	return s.seq, nil
}

func (s *fileStore) List() ([]Record, error) {
	bs, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var records []Record
	for i, text := range strings.Split(string(bs), Sep) {
		if text == "" && i > 0 {
			// Trailing delimiter.
			continue
		}
		if text != "" {
			records = append(records, Record{Seq: i + 1, Text: text})
		}
	}
	return records, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
