// Package songinfo works out an artist and title from what a player reports.
package songinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dj-backend/pkg/ai"
	"dj-backend/pkg/ai/gemini"
	"dj-backend/pkg/ai/openai"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "songinfo").Logger()

var (
	ErrNotASong = errors.New("media title does not describe a song")
	ErrNoModel  = errors.New("no AI model configured")
)

const maxRetries = 3

type SongInfo struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	IsSong bool   `json:"is_song"`
}

func formatQuerySong(title string) string {
	return fmt.Sprintf(`Extract the song from the media title below and answer with JSON only, exactly in this shape: {"is_song": true, "title": "song title", "artist": "performer"}. If the title does not name a song, answer {"is_song": false}. Title and artist must be accurate. Do not use markdown. Media title: %s`, title)
}

// NewModel builds the text model named by moduleName: "gemini" or any OpenAI
// compatible model name.
func NewModel(ctx context.Context, moduleName, apiKey, baseURL string) (ai.AiInterface, error) {
	if apiKey == "" {
		return nil, ErrNoModel
	}
	if moduleName == "" || moduleName == "gemini" {
		g, err := gemini.NewGemini(ctx, apiKey, "")
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return openai.NewOpenAi(apiKey, moduleName, baseURL), nil
}

type Extractor struct {
	model      ai.AiInterface
	retryDelay time.Duration
}

func NewExtractor(model ai.AiInterface) *Extractor {
	return &Extractor{model: model, retryDelay: time.Second}
}

// Resolve returns artist and title as given when both are known, and asks the
// model to split rawTitle otherwise.
func (e *Extractor) Resolve(ctx context.Context, artist, rawTitle string) (SongInfo, error) {
	artist = strings.TrimSpace(artist)
	rawTitle = strings.TrimSpace(rawTitle)
	if artist != "" && rawTitle != "" {
		return SongInfo{Title: rawTitle, Artist: artist, IsSong: true}, nil
	}
	if rawTitle == "" {
		return SongInfo{}, errors.New("nothing is playing")
	}
	return e.Extract(ctx, rawTitle)
}

// Extract asks the model for the song in rawTitle, retrying failed calls.
func (e *Extractor) Extract(ctx context.Context, rawTitle string) (SongInfo, error) {
	if e == nil || e.model == nil {
		return SongInfo{}, ErrNoModel
	}

	var (
		raw string
		err error
	)
	for i := 0; i < maxRetries; i++ {
		raw, err = e.model.HandleText(ctx, formatQuerySong(rawTitle))
		if err == nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", i+1).Str("model", e.model.Name()).Msg("Song extraction failed")
		if i < maxRetries-1 {
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				return SongInfo{}, ctx.Err()
			}
		}
	}
	if err != nil {
		return SongInfo{}, fmt.Errorf("failed to query %s after %d attempts: %w", e.model.Name(), maxRetries, err)
	}

	var info SongInfo
	if err := json.Unmarshal([]byte(stripFences(raw)), &info); err != nil {
		return SongInfo{}, fmt.Errorf("failed to parse %s response: %w", e.model.Name(), err)
	}
	if !info.IsSong || info.Title == "" || info.Artist == "" {
		return SongInfo{}, fmt.Errorf("%w: %q", ErrNotASong, rawTitle)
	}
	logger.Info().Str("artist", info.Artist).Str("title", info.Title).Msg("Song extracted")
	return info, nil
}

// stripFences removes a ```json ... ``` wrapper some models add anyway.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
