// Package wordindex holds the word → occurrence mapping produced by a build
// and answers lookups against it.
package wordindex

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"dj-backend/internal/tokenize"
	"dj-backend/pkg/fileutil"
)

var (
	ErrWordNotFound      = errors.New("word not found")
	ErrVariantOutOfRange = errors.New("variant out of range")
)

// MaxSuggestions caps the substring matches returned for an unknown word.
const MaxSuggestions = 20

// VariantError reports a variant index outside [0, Count).
type VariantError struct {
	Word  string
	Index int
	Count int
}

func (e *VariantError) Error() string {
	return fmt.Sprintf("variant %d of %q out of range (have %d)", e.Index, e.Word, e.Count)
}

func (e *VariantError) Unwrap() error { return ErrVariantOutOfRange }

// Occurrence is one place a word is sung.
type Occurrence struct {
	Artist   string  `json:"artist"`
	Track    string  `json:"track"`
	URI      string  `json:"uri"`
	Time     float64 `json:"time"`
	Line     string  `json:"line"`
	Duration float64 `json:"duration"`
}

// Index maps normalized words to their occurrences in insertion order.
// It is not safe for concurrent mutation; lookups on a finished index are.
type Index struct {
	words map[string][]Occurrence
}

func New() *Index {
	return &Index{words: make(map[string][]Occurrence)}
}

// Add appends occ to word's bucket. word must already be normalized.
func (ix *Index) Add(word string, occ Occurrence) {
	ix.words[word] = append(ix.words[word], occ)
}

// Len returns the number of distinct words.
func (ix *Index) Len() int { return len(ix.words) }

// Occurrences returns the total number of occurrence records.
func (ix *Index) Occurrences() int {
	n := 0
	for _, occs := range ix.words {
		n += len(occs)
	}
	return n
}

// Words returns every key in ascending order.
func (ix *Index) Words() []string {
	keys := make([]string, 0, len(ix.words))
	for k := range ix.words {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LookupResult holds either the exact bucket for a word or, when the word is
// absent, the keys that contain it.
type LookupResult struct {
	Word        string
	Occurrences []Occurrence
	Suggestions []string
}

// Exact reports whether the lookup hit a bucket directly.
func (r LookupResult) Exact() bool { return len(r.Occurrences) > 0 }

// Lookup finds word case-insensitively. On a miss it falls back to substring
// matching over all keys; ErrWordNotFound is returned only when that is empty too.
func (ix *Index) Lookup(word string) (LookupResult, error) {
	w := tokenize.NormalizeWord(word)
	res := LookupResult{Word: w}
	if w == "" {
		return res, fmt.Errorf("%w: %q", ErrWordNotFound, word)
	}
	if occs, ok := ix.words[w]; ok {
		res.Occurrences = occs
		return res, nil
	}

	for _, k := range ix.Words() {
		if strings.Contains(k, w) {
			res.Suggestions = append(res.Suggestions, k)
			if len(res.Suggestions) == MaxSuggestions {
				break
			}
		}
	}
	if len(res.Suggestions) == 0 {
		return res, fmt.Errorf("%w: %q", ErrWordNotFound, w)
	}
	return res, nil
}

// SelectVariant returns the n-th occurrence of word.
func (ix *Index) SelectVariant(word string, n int) (Occurrence, error) {
	w := tokenize.NormalizeWord(word)
	occs, ok := ix.words[w]
	if !ok {
		return Occurrence{}, fmt.Errorf("%w: %q", ErrWordNotFound, w)
	}
	if n < 0 || n >= len(occs) {
		return Occurrence{}, &VariantError{Word: w, Index: n, Count: len(occs)}
	}
	return occs[n], nil
}

// Load reads an index written by Save. A missing file yields an empty index.
func Load(path string) (*Index, error) {
	words := make(map[string][]Occurrence)
	if _, err := fileutil.ReadJSON(path, &words); err != nil {
		return nil, err
	}
	return &Index{words: words}, nil
}

// Save writes the index with keys in ascending order, so equal indexes
// produce identical files.
func (ix *Index) Save(path string) error {
	return fileutil.WriteJSON(path, ix.words)
}
