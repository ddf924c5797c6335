package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dj-backend/internal/catalog"
	"dj-backend/internal/library"
	"dj-backend/internal/player"
	"dj-backend/internal/sequencer"
	"dj-backend/internal/songinfo"
	"dj-backend/internal/tokenize"
	"dj-backend/internal/wordindex"
)

const maxListed = 20

type Sequencer interface {
	Snippet(ctx context.Context, req sequencer.Request) sequencer.Result
	Sequence(ctx context.Context, reqs []sequencer.Request) sequencer.Result
	Play(ctx context.Context) string
	Pause(ctx context.Context) string
	Toggle(ctx context.Context) string
	Next(ctx context.Context) string
	Previous(ctx context.Context) string
	Open(ctx context.Context, uri string) string
	Seek(ctx context.Context, secs float64) string
	Position(ctx context.Context) string
	NowPlaying(ctx context.Context) string
	Current(ctx context.Context) (player.Metadata, error)
}

type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type Deps struct {
	Sequencer   Sequencer
	Index       *wordindex.Store
	Library     *library.Library
	Search      Searcher
	CatalogPath string
	// Songs may be nil when no AI model is configured.
	Songs *songinfo.Extractor
}

// NewDJ registers every DJ tool against d.
func NewDJ(d Deps) *Registry {
	r := NewRegistry()

	simple := func(name, desc string, fn func(context.Context) string) {
		r.Register(Tool{Name: name, Description: desc, Handler: func(ctx context.Context, _ Args) string { return fn(ctx) }})
	}
	simple("play", "Start or resume playback", d.Sequencer.Play)
	simple("pause", "Pause playback", d.Sequencer.Pause)
	simple("toggle", "Toggle between play and pause", d.Sequencer.Toggle)
	simple("next", "Skip to the next track", d.Sequencer.Next)
	simple("previous", "Go back to the previous track", d.Sequencer.Previous)
	simple("now", "Describe the track that is playing", d.Sequencer.NowPlaying)
	simple("position", "Report the playback position", d.Sequencer.Position)

	r.Register(Tool{
		Name:        "open",
		Description: "Open a track, album or playlist URI",
		Params:      []string{"uri"},
		Handler: func(ctx context.Context, a Args) string {
			return d.Sequencer.Open(ctx, a.String("uri"))
		},
	})
	r.Register(Tool{
		Name:        "seek",
		Description: "Seek to an absolute position in seconds",
		Params:      []string{"seconds"},
		Handler: func(ctx context.Context, a Args) string {
			secs, err := a.Float("seconds", 0)
			if err != nil {
				return "Failed: " + err.Error()
			}
			return d.Sequencer.Seek(ctx, secs)
		},
	})
	r.Register(Tool{
		Name:        "snippet",
		Description: "Play duration seconds of a track starting at start",
		Params:      []string{"uri", "start", "duration"},
		Handler: func(ctx context.Context, a Args) string {
			return snippet(ctx, d.Sequencer, a, 0, 0)
		},
	})
	r.Register(Tool{
		Name:        "drop",
		Description: "Play a short musical moment, 8 seconds from the start by default",
		Params:      []string{"uri", "start", "duration"},
		Handler: func(ctx context.Context, a Args) string {
			return snippet(ctx, d.Sequencer, a, 0, 8)
		},
	})

	r.Register(Tool{
		Name:        "search",
		Description: "Search the web for a track and return its URI",
		Params:      []string{"query"},
		Handler: func(ctx context.Context, a Args) string {
			q := a.String("query")
			uri, err := d.Search.Search(ctx, q)
			if err != nil {
				return "Search failed: " + err.Error()
			}
			if uri == "" {
				return fmt.Sprintf("No Spotify track found for '%s'", q)
			}
			return uri
		},
	})

	r.Register(Tool{
		Name:        "find",
		Description: "Find a track URI in the personal library",
		Params:      []string{"query"},
		Handler: func(ctx context.Context, a Args) string {
			return textOrErr(d.Library.Find(a.String("query")))
		},
	})
	r.Register(Tool{
		Name:        "save",
		Description: "Save a track URI under a memorable name",
		Params:      []string{"uri", "name"},
		Handler: func(ctx context.Context, a Args) string {
			name, uri := a.String("name"), a.String("uri")
			if strings.TrimSpace(name) == "" || strings.TrimSpace(uri) == "" {
				return "Failed: name and uri are required"
			}
			return textOrErr(d.Library.Save(name, uri))
		},
	})
	r.Register(Tool{
		Name:        "library",
		Description: "List the personal library",
		Handler: func(ctx context.Context, a Args) string {
			return textOrErr(d.Library.List())
		},
	})

	r.Register(Tool{
		Name:        "lookup",
		Description: "List where a word is sung",
		Params:      []string{"word"},
		Handler: func(ctx context.Context, a Args) string {
			return lookup(d.Index, a.String("word"))
		},
	})
	r.Register(Tool{
		Name:        "say",
		Description: "Play the moment a word is sung; variant picks which occurrence",
		Params:      []string{"word", "variant"},
		Handler: func(ctx context.Context, a Args) string {
			n, err := a.Int("variant", 0)
			if err != nil {
				return "Failed: " + err.Error()
			}
			return say(ctx, d, a.String("word"), n)
		},
	})
	r.Register(Tool{
		Name:        "phrase",
		Description: "Say several words in a row, one clip per word",
		Params:      []string{"words"},
		Handler: func(ctx context.Context, a Args) string {
			return phrase(ctx, d, a.Strings("words"))
		},
	})

	r.Register(Tool{
		Name:        "catalog_add",
		Description: "Add a song to the catalog used by the next build",
		Params:      []string{"artist", "title"},
		Handler: func(ctx context.Context, a Args) string {
			return addToCatalog(d.CatalogPath, catalog.Entry{Artist: a.String("artist"), Title: a.String("title")})
		},
	})
	r.Register(Tool{
		Name:        "catalog_add_current",
		Description: "Add the song that is playing to the catalog",
		Handler: func(ctx context.Context, a Args) string {
			md, err := d.Sequencer.Current(ctx)
			if err != nil {
				if errors.Is(err, player.ErrUnavailable) {
					return "Failed - is Spotify running?"
				}
				return "Failed: " + err.Error()
			}
			info, err := d.Songs.Resolve(ctx, md.Artist, md.Title)
			if err != nil {
				return "Could not work out the song: " + err.Error()
			}
			return addToCatalog(d.CatalogPath, catalog.Entry{Artist: info.Artist, Title: info.Title})
		},
	})

	return r
}

func snippet(ctx context.Context, s Sequencer, a Args, defStart, defDuration float64) string {
	start, err := a.Float("start", defStart)
	if err != nil {
		return "Failed: " + err.Error()
	}
	dur, err := a.Float("duration", defDuration)
	if err != nil {
		return "Failed: " + err.Error()
	}
	return s.Snippet(ctx, sequencer.Request{URI: a.String("uri"), Start: start, Duration: dur}).Status
}

func lookup(store *wordindex.Store, word string) string {
	ix, err := store.Get()
	if err != nil {
		return "Failed to load word index: " + err.Error()
	}
	res, err := ix.Lookup(word)
	if err != nil {
		return missing(word)
	}
	if !res.Exact() {
		return suggest(word, res.Suggestions)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "'%s' - %d variants:", res.Word, len(res.Occurrences))
	for i, occ := range res.Occurrences {
		if i == maxListed {
			fmt.Fprintf(&b, "\n  ... %d more", len(res.Occurrences)-maxListed)
			break
		}
		fmt.Fprintf(&b, "\n  [%d] %s - %s @ %.2fs: %q", i, occ.Artist, occ.Track, occ.Time, occ.Line)
	}
	return b.String()
}

func say(ctx context.Context, d Deps, word string, n int) string {
	occ, msg := resolveWord(d.Index, word, n)
	if msg != "" {
		return msg
	}
	res := d.Sequencer.Snippet(ctx, sequencer.Request{URI: occ.URI, Start: occ.Time, Duration: occ.Duration})
	if !res.OK {
		return res.Status
	}
	return fmt.Sprintf("Saying '%s' (%s - %s @ %.2fs): %q", tokenize.NormalizeWord(word), occ.Artist, occ.Track, occ.Time, occ.Line)
}

func phrase(ctx context.Context, d Deps, words []string) string {
	if len(words) == 0 {
		return "Failed: words are required"
	}
	reqs := make([]sequencer.Request, 0, len(words))
	for _, w := range words {
		occ, msg := resolveWord(d.Index, w, 0)
		if msg != "" {
			return msg
		}
		reqs = append(reqs, sequencer.Request{URI: occ.URI, Start: occ.Time, Duration: occ.Duration})
	}
	res := d.Sequencer.Sequence(ctx, reqs)
	if !res.OK {
		return res.Status
	}
	return fmt.Sprintf("Saying \"%s\": %s", strings.Join(words, " "), res.Status)
}

// resolveWord returns the occurrence for word, or a message explaining why
// there is none.
func resolveWord(store *wordindex.Store, word string, n int) (wordindex.Occurrence, string) {
	ix, err := store.Get()
	if err != nil {
		return wordindex.Occurrence{}, "Failed to load word index: " + err.Error()
	}
	occ, err := ix.SelectVariant(word, n)
	var ve *wordindex.VariantError
	switch {
	case err == nil:
		return occ, ""
	case errors.As(err, &ve):
		return occ, fmt.Sprintf("'%s' has only %d variants (0-%d)", ve.Word, ve.Count, ve.Count-1)
	}

	res, lerr := ix.Lookup(word)
	if lerr == nil && !res.Exact() {
		return occ, suggest(word, res.Suggestions)
	}
	return occ, missing(word)
}

func suggest(word string, keys []string) string {
	return fmt.Sprintf("No exact match for '%s'. Did you mean: %s", word, strings.Join(keys, ", "))
}

func missing(word string) string {
	return fmt.Sprintf("Word '%s' is not in the index", word)
}

func addToCatalog(path string, e catalog.Entry) string {
	e.Artist, e.Title = strings.TrimSpace(e.Artist), strings.TrimSpace(e.Title)
	added, err := catalog.Add(path, e)
	if err != nil {
		return "Failed: " + err.Error()
	}
	if !added {
		return fmt.Sprintf("Already in catalog: %s", e)
	}
	return fmt.Sprintf("Added to catalog: %s", e)
}

func textOrErr(s string, err error) string {
	if err != nil {
		return "Failed: " + err.Error()
	}
	return s
}
