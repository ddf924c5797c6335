// Package builder turns a song catalog into a word index by resolving each
// song to a track identifier and indexing its synced lyrics.
package builder

import (
	"context"
	"errors"
	"fmt"
	"math"

	"dj-backend/internal/catalog"
	"dj-backend/internal/lyrics"
	"dj-backend/internal/resolver"
	"dj-backend/internal/tokenize"
	"dj-backend/internal/wordindex"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var logger = log.With().Str("component", "builder").Logger()

const (
	DefaultFlushEvery = 20
	DefaultDuration   = 1.5
)

type Resolver interface {
	Resolve(ctx context.Context, artist, title string) (resolver.Resolution, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, artist, title string) []lyrics.Line
}

// Flusher persists the identifier cache.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Outcome is what happened to one catalog entry.
type Outcome int

const (
	Indexed Outcome = iota
	NoIdentifier
	NoLyrics
	Transient
)

func (o Outcome) String() string {
	switch o {
	case Indexed:
		return "indexed"
	case NoIdentifier:
		return "no identifier"
	case NoLyrics:
		return "no lyrics"
	case Transient:
		return "transient error"
	default:
		return "unknown"
	}
}

// Progress receives per-entry notifications during a build.
type Progress interface {
	Start(total int)
	Step(index int, entry catalog.Entry, outcome Outcome, lines int)
	Finish(summary Summary)
}

type nopProgress struct{}

func (nopProgress) Start(int)                             {}
func (nopProgress) Step(int, catalog.Entry, Outcome, int) {}
func (nopProgress) Finish(Summary)                        {}

type Summary struct {
	Songs            int
	Indexed          int
	NoIdentifier     int
	NoLyrics         int
	Transient        int
	UniqueWords      int
	TotalOccurrences int
}

type Options struct {
	// FlushEvery is how many processed entries pass between cache flushes.
	FlushEvery int
	// Duration is the default play length stored on each occurrence.
	Duration float64
	// Limiter spaces out lyrics requests. The resolver is expected to share it.
	Limiter *rate.Limiter
	// IndexPath, when set, is where the finished index is written.
	IndexPath string
	Progress  Progress
}

type Builder struct {
	resolver Resolver
	fetcher  Fetcher
	cache    Flusher
	opts     Options
}

func New(r Resolver, f Fetcher, cache Flusher, opts Options) *Builder {
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = DefaultFlushEvery
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}
	return &Builder{resolver: r, fetcher: f, cache: cache, opts: opts}
}

// Build processes entries in order. Misses are counted, never fatal; only a
// failure to persist the cache or index aborts the build.
func (b *Builder) Build(ctx context.Context, entries []catalog.Entry) (*wordindex.Index, Summary, error) {
	ix := wordindex.New()
	sum := Summary{Songs: len(entries)}
	b.opts.Progress.Start(len(entries))

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			if ferr := b.flush(ctx); ferr != nil {
				return nil, sum, ferr
			}
			return nil, sum, err
		}

		outcome, lines := b.process(ctx, ix, e)
		switch outcome {
		case Indexed:
			sum.Indexed++
		case NoIdentifier:
			sum.NoIdentifier++
		case NoLyrics:
			sum.NoLyrics++
		case Transient:
			sum.Transient++
		}
		b.opts.Progress.Step(i, e, outcome, lines)

		if (i+1)%b.opts.FlushEvery == 0 {
			if err := b.flush(ctx); err != nil {
				return nil, sum, err
			}
		}
	}

	if err := b.flush(ctx); err != nil {
		return nil, sum, err
	}

	sum.UniqueWords = ix.Len()
	sum.TotalOccurrences = ix.Occurrences()

	if b.opts.IndexPath != "" {
		if err := ix.Save(b.opts.IndexPath); err != nil {
			return nil, sum, fmt.Errorf("failed to save word index: %w", err)
		}
		logger.Info().Str("path", b.opts.IndexPath).Int("words", sum.UniqueWords).Msg("Word index saved")
	}

	b.opts.Progress.Finish(sum)
	return ix, sum, nil
}

func (b *Builder) process(ctx context.Context, ix *wordindex.Index, e catalog.Entry) (Outcome, int) {
	res, err := b.resolver.Resolve(ctx, e.Artist, e.Title)
	if err != nil {
		if !errors.Is(err, resolver.ErrTransient) {
			logger.Warn().Err(err).Str("song", e.String()).Msg("Unexpected resolver error")
		}
		logger.Info().Str("song", e.String()).Msg("Identifier lookup failed, will retry next run")
		return Transient, 0
	}
	if res.State != resolver.Found {
		logger.Info().Str("song", e.String()).Msg("No identifier found")
		return NoIdentifier, 0
	}

	if b.opts.Limiter != nil {
		if err := b.opts.Limiter.Wait(ctx); err != nil {
			return Transient, 0
		}
	}
	lines := b.fetcher.Fetch(ctx, e.Artist, e.Title)
	if len(lines) == 0 {
		logger.Info().Str("song", e.String()).Str("uri", res.URI).Msg("No lyrics")
		return NoLyrics, 0
	}

	for _, line := range lines {
		occ := wordindex.Occurrence{
			Artist:   e.Artist,
			Track:    e.Title,
			URI:      res.URI,
			Time:     math.Round(line.Time*100) / 100,
			Line:     line.Text,
			Duration: b.opts.Duration,
		}
		for _, word := range tokenize.Tokenize(line.Text) {
			ix.Add(word, occ)
		}
	}
	logger.Debug().Str("song", e.String()).Int("lines", len(lines)).Msg("Song indexed")
	return Indexed, len(lines)
}

func (b *Builder) flush(ctx context.Context) error {
	if b.cache == nil {
		return nil
	}
	if err := b.cache.Flush(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to persist identifier cache")
		return err
	}
	return nil
}
