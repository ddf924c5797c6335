package wordindex

import (
	"errors"
	"os"
	"sync"
	"time"
)

// Store serves the index at a path, rereading it when the file changes so a
// long-running process picks up a rebuild.
type Store struct {
	path string

	mu      sync.Mutex
	ix      *Index
	modTime time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Get returns the current index. A missing file yields an empty index.
func (s *Store) Get() (*Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.ix, s.modTime = New(), time.Time{}
		return s.ix, nil
	}
	if err != nil {
		return nil, err
	}
	if s.ix != nil && info.ModTime().Equal(s.modTime) {
		return s.ix, nil
	}

	ix, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.ix, s.modTime = ix, info.ModTime()
	return ix, nil
}
