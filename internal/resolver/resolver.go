// Package resolver maps an artist and title to a playable track identifier
// by scraping a web search result page.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"dj-backend/internal/idcache"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var logger = log.With().Str("component", "resolver").Logger()

// ErrTransient marks a lookup that failed for reasons unrelated to the song
// (network, throttling). Such results are not cached.
var ErrTransient = errors.New("transient resolution failure")

var trackPattern = regexp.MustCompile(`open\.spotify\.com/track/([a-zA-Z0-9]+)`)

// TrackURIPrefix is prepended to the extracted id.
const TrackURIPrefix = "spotify:track:"

type State int

const (
	Found State = iota + 1
	Absent
)

func (s State) String() string {
	switch s {
	case Found:
		return "found"
	case Absent:
		return "absent"
	default:
		return "unresolved"
	}
}

type Resolution struct {
	State State
	URI   string
	// Cached is set when no external call was made.
	Cached bool
}

// Searcher returns the raw result page for a text query.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type Resolver struct {
	search  Searcher
	cache   *idcache.Cache
	limiter *rate.Limiter
}

type Option func(*Resolver)

// WithLimiter makes every external search wait on l first.
func WithLimiter(l *rate.Limiter) Option {
	return func(r *Resolver) {
		r.limiter = l
	}
}

func New(search Searcher, cache *idcache.Cache, opts ...Option) *Resolver {
	r := &Resolver{search: search, cache: cache}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve consults the cache and, on a miss, issues a single search. Found and
// absent outcomes are written back to the cache; failures wrap ErrTransient.
func (r *Resolver) Resolve(ctx context.Context, artist, title string) (Resolution, error) {
	key := idcache.Key(artist, title)
	if r.cache != nil {
		if e, ok := r.cache.Get(key); ok {
			if e.Absent {
				return Resolution{State: Absent, Cached: true}, nil
			}
			return Resolution{State: Found, URI: e.ID, Cached: true}, nil
		}
	}

	uri, err := r.lookup(ctx, query(artist, title))
	if err != nil {
		logger.Debug().Err(err).Str("artist", artist).Str("title", title).Msg("resolution failed")
		return Resolution{}, fmt.Errorf("%w: %s - %s: %v", ErrTransient, artist, title, err)
	}

	res := Resolution{State: Absent}
	entry := idcache.Absent()
	if uri != "" {
		res = Resolution{State: Found, URI: uri}
		entry = idcache.Found(uri)
	}
	if r.cache != nil {
		r.cache.Put(key, entry)
	}
	return res, nil
}

// Search runs a free-form query and returns the first identifier on the page,
// or "" if there is none. Results are not cached.
func (r *Resolver) Search(ctx context.Context, q string) (string, error) {
	return r.lookup(ctx, q+" spotify track")
}

func (r *Resolver) lookup(ctx context.Context, q string) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	body, err := r.search.Search(ctx, q)
	if err != nil {
		return "", err
	}
	return ExtractURI(body), nil
}

// ExtractURI returns the first track identifier found in body.
func ExtractURI(body string) string {
	m := trackPattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return TrackURIPrefix + m[1]
}

func query(artist, title string) string {
	return strings.TrimSpace(artist+" "+title) + " spotify track"
}
