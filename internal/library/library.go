// Package library is the user's named shortcuts to track identifiers.
package library

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"dj-backend/pkg/fileutil"
)

// maxAvailable is how many names a failed Find lists.
const maxAvailable = 10

// Library maps lowercase names to identifiers and is stored as one JSON
// object. Every call rereads the file, so edits made elsewhere are seen.
type Library struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Library {
	return &Library{path: path}
}

func (l *Library) load() (map[string]string, error) {
	tracks := make(map[string]string)
	if _, err := fileutil.ReadJSON(l.path, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// Save stores uri under the lowercased name, replacing any earlier entry.
func (l *Library) Save(name, uri string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tracks, err := l.load()
	if err != nil {
		return "", err
	}
	tracks[strings.ToLower(strings.TrimSpace(name))] = uri
	if err := fileutil.WriteJSON(l.path, tracks); err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved '%s' -> %s", name, uri), nil
}

// Find returns the identifier for an exact name, or for the only name that
// contains query. Otherwise it returns a human-readable list of candidates.
func (l *Library) Find(query string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tracks, err := l.load()
	if err != nil {
		return "", err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if uri, ok := tracks[q]; ok {
		return uri, nil
	}

	names := sortedNames(tracks)
	var matches []string
	for _, name := range names {
		if strings.Contains(name, q) {
			matches = append(matches, name)
		}
	}

	switch {
	case len(matches) == 1:
		return tracks[matches[0]], nil
	case len(matches) > 1:
		var b strings.Builder
		b.WriteString("Multiple matches:")
		for _, m := range matches {
			b.WriteString("\n  - " + m)
		}
		return b.String(), nil
	}

	if len(names) > maxAvailable {
		names = names[:maxAvailable]
	}
	return fmt.Sprintf("Not found. Available: %s...", strings.Join(names, ", ")), nil
}

// List returns every entry sorted by name.
func (l *Library) List() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tracks, err := l.load()
	if err != nil {
		return "", err
	}
	if len(tracks) == 0 {
		return "Library is empty. Use save to add tracks!", nil
	}
	lines := make([]string, 0, len(tracks))
	for _, name := range sortedNames(tracks) {
		lines = append(lines, fmt.Sprintf("  %s: %s", name, tracks[name]))
	}
	return fmt.Sprintf("Your library (%d tracks):\n%s", len(tracks), strings.Join(lines, "\n")), nil
}

func sortedNames(tracks map[string]string) []string {
	names := make([]string, 0, len(tracks))
	for k := range tracks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
