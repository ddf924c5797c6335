package idcache

import (
	"context"

	"dj-backend/pkg/fileutil"
)

// FileBackend stores the cache as a JSON object of key to identifier, with
// null marking a confirmed miss.
type FileBackend struct {
	Path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (b *FileBackend) Load(ctx context.Context) (map[string]Entry, error) {
	var raw map[string]*string
	if _, err := fileutil.ReadJSON(b.Path, &raw); err != nil {
		return nil, err
	}
	entries := make(map[string]Entry, len(raw))
	for k, v := range raw {
		if v == nil || *v == "" {
			entries[k] = Absent()
			continue
		}
		entries[k] = Found(*v)
	}
	return entries, nil
}

func (b *FileBackend) Save(ctx context.Context, entries map[string]Entry) error {
	raw := make(map[string]*string, len(entries))
	for k, e := range entries {
		if e.Absent {
			raw[k] = nil
			continue
		}
		id := e.ID
		raw[k] = &id
	}
	return fileutil.WriteJSON(b.Path, raw)
}
