package lyrics

import (
	"bufio"
	"context"
	"regexp"
	"strconv"
	"strings"

	"dj-backend/pkg/music"

	"github.com/rs/zerolog/log"
)

// Line is one line of synced lyrics. Time is in seconds from track start.
type Line struct {
	Time float64
	Text string
}

var (
	syncedLineRe = regexp.MustCompile(`^\[(\d+):(\d+\.\d+)\]\s*(.*)$`)
	logger       = log.With().Str("component", "lyrics").Logger()
)

// ParseSynced parses a synced-lyrics payload of "[mm:ss.ff] text" lines.
// Lines that do not match, or whose text is empty after trimming, are
// dropped. The provider's order is kept as is.
func ParseSynced(payload string) []Line {
	var result []Line
	scanner := bufio.NewScanner(strings.NewReader(payload))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		match := syncedLineRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		minutes, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		seconds, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}

		text := strings.TrimSpace(match[3])
		if text == "" {
			continue
		}

		result = append(result, Line{Time: float64(minutes*60) + seconds, Text: text})
	}
	return result
}

// Fetcher retrieves synced lyrics and never fails: every transport or parse
// problem comes back as an empty result.
type Fetcher struct {
	source music.LyricsAPI
}

func NewFetcher(source music.LyricsAPI) *Fetcher {
	return &Fetcher{source: source}
}

// Fetch returns the synced lines for a track, or nil on any miss.
func (f *Fetcher) Fetch(ctx context.Context, artist, title string) []Line {
	payload, err := f.source.GetSyncedLyrics(ctx, artist, title)
	if err != nil {
		logger.Debug().Err(err).Str("artist", artist).Str("title", title).Msg("lyrics miss")
		return nil
	}
	return ParseSynced(payload)
}
