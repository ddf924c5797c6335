// Package catalog holds the list of songs the index is built from.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"dj-backend/pkg/fileutil"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

//go:embed default_catalog.toml
var defaultCatalog []byte

var logger = log.With().Str("component", "catalog").Logger()

// Entry is one song to index. Catalog order is processing order.
type Entry struct {
	Artist string
	Title  string
}

func (e Entry) String() string {
	return e.Artist + " - " + e.Title
}

// tomlFile is the on-disk layout: songs = [["Artist", "Title"], ...]
type tomlFile struct {
	Songs [][]string `toml:"songs"`
}

// Default returns the embedded catalog.
func Default() []Entry {
	entries, err := decode(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return entries
}

// Load reads the catalog at path. An empty path or a missing file yields the
// embedded default.
func Load(path string) ([]Entry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info().Str("path", path).Msg("Catalog file not found, using built-in catalog")
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	entries, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return entries, nil
}

// Save overwrites path with entries.
func Save(path string, entries []Entry) error {
	f := tomlFile{Songs: make([][]string, 0, len(entries))}
	for _, e := range entries {
		f.Songs = append(f.Songs, []string{e.Artist, e.Title})
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return fileutil.WriteFileOverwrite(path, buf.Bytes(), 0644)
}

// Add appends a song to the catalog at path, seeding the file from the
// built-in catalog on first use. It reports false if the song is already there.
func Add(path string, e Entry) (bool, error) {
	e.Artist = strings.TrimSpace(e.Artist)
	e.Title = strings.TrimSpace(e.Title)
	if e.Artist == "" || e.Title == "" {
		return false, errors.New("artist and title are required")
	}

	entries, err := Load(path)
	if err != nil {
		return false, err
	}
	if Contains(entries, e) {
		return false, nil
	}
	entries = append(entries, e)
	if err := Save(path, entries); err != nil {
		return false, err
	}
	logger.Info().Str("artist", e.Artist).Str("title", e.Title).Int("songs", len(entries)).Msg("Song added to catalog")
	return true, nil
}

// Contains reports whether entries has e, ignoring case.
func Contains(entries []Entry, e Entry) bool {
	for _, x := range entries {
		if strings.EqualFold(x.Artist, e.Artist) && strings.EqualFold(x.Title, e.Title) {
			return true
		}
	}
	return false
}

func decode(data []byte) ([]Entry, error) {
	var f tomlFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(f.Songs))
	for i, s := range f.Songs {
		if len(s) != 2 {
			return nil, fmt.Errorf("song %d: want [artist, title], got %d fields", i+1, len(s))
		}
		entries = append(entries, Entry{Artist: s[0], Title: s[1]})
	}
	return entries, nil
}
